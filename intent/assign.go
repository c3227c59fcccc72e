package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"aura-api/board"
	"aura-api/domain"
	"aura-api/llm"
)

// Assignment is who a task is for and what it is.
type Assignment struct {
	EmployeeName    string `json:"employee_name"`
	TaskDescription string `json:"task_description"`
}

type assignmentReply struct {
	EmployeeName    string `json:"employee_name"`
	TaskDescription string `json:"task_description"`
}

// ParseAssignment extracts the employee and task from an instruction such
// as "Assign Taran to fix the login bug". The employee is matched against
// knownNames when possible and reported in its known spelling.
func (c *Classifier) ParseAssignment(ctx context.Context, query string, knownNames []string) (Assignment, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Assignment{}, domain.Ambiguous("empty instruction")
	}

	var a Assignment
	out, err := llm.Call(ctx, c.model, assignmentPrompt(query, knownNames))
	if err != nil {
		c.logger.WithError(err).Warn("intent.assign.model_unavailable")
	} else if obj := llm.ExtractObject(out); obj != "" {
		var reply assignmentReply
		if err := sonic.UnmarshalString(obj, &reply); err == nil {
			a = Assignment{
				EmployeeName:    strings.TrimSpace(reply.EmployeeName),
				TaskDescription: strings.TrimSpace(reply.TaskDescription),
			}
		}
	}
	if a.EmployeeName == "" || a.TaskDescription == "" {
		h := heuristicAssignment(query, knownNames)
		if a.EmployeeName == "" {
			a.EmployeeName = h.EmployeeName
		}
		if a.TaskDescription == "" {
			a.TaskDescription = h.TaskDescription
		}
	}

	if a.EmployeeName == "" && len(knownNames) == 1 {
		a.EmployeeName = knownNames[0]
	}
	if a.EmployeeName == "" {
		return Assignment{}, domain.Ambiguous("could not find who the task is for; name the employee")
	}
	if a.TaskDescription == "" {
		return Assignment{}, domain.Ambiguous("could not find the task to assign to %s; describe what needs to be done", a.EmployeeName)
	}
	return c.knownSpelling(a, knownNames), nil
}

// AssignmentFromParams reads the employee and task the classifier already
// extracted. It reports false unless both are present.
func (c *Classifier) AssignmentFromParams(cl Classification, knownNames []string) (Assignment, bool) {
	a := Assignment{
		EmployeeName:    strings.TrimSpace(cl.Param(ParamEmployee)),
		TaskDescription: strings.TrimSpace(cl.Param(ParamTask)),
	}
	if a.EmployeeName == "" || a.TaskDescription == "" {
		return Assignment{}, false
	}
	return c.knownSpelling(a, knownNames), true
}

func (c *Classifier) knownSpelling(a Assignment, knownNames []string) Assignment {
	if known, ok := matchKnownName(a.EmployeeName, knownNames); ok {
		a.EmployeeName = known
	} else if len(knownNames) > 0 {
		c.logger.WithField("employee", a.EmployeeName).Warn("intent.assign.unknown_employee")
	}
	return a
}

func assignmentPrompt(query string, knownNames []string) string {
	names := "unknown"
	if len(knownNames) > 0 {
		names = strings.Join(knownNames, ", ")
	}
	return fmt.Sprintf(`Extract the task assignment from the instruction below.
Employees: %s

Reply with JSON only: {"employee_name": "<one employee>", "task_description": "<the task, without the employee name or the word assign>"}

Instruction: %s`, names, query)
}

var (
	assignToPattern = regexp.MustCompile(`(?i)^\s*(?:please\s+)?(?:assign|give|allot|allocate)\s+(.+?)\s+(?:to|the task(?: of| to)?|with)\s+(.+?)[.!]?\s*$`)
	modalPattern    = regexp.MustCompile(`(?i)^\s*([\p{L}][\p{L}'.-]*(?:\s+[\p{L}][\p{L}'.-]*)?)\s+(?:should|needs to|has to|must|will|is to)\s+(.+?)[.!]?\s*$`)
	colonPattern    = regexp.MustCompile(`^\s*([\p{L}][\p{L}'.-]*(?:\s+[\p{L}][\p{L}'.-]*)?)\s*[:\-]\s+(.+?)\s*$`)
	leadingVerbs    = regexp.MustCompile(`(?i)^\s*(?:please\s+)?(?:assign|give|allot|allocate)\s+(?:(?:the\s+)?task\s+)?(?:to\s+)?`)
)

func heuristicAssignment(query string, knownNames []string) Assignment {
	if m := assignToPattern.FindStringSubmatch(query); m != nil {
		first, second := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		// "assign the login bug to Taran" puts the person last
		if _, ok := matchKnownName(first, knownNames); !ok {
			if name, ok := matchKnownName(second, knownNames); ok {
				return Assignment{EmployeeName: name, TaskDescription: first}
			}
		}
		return Assignment{EmployeeName: first, TaskDescription: second}
	}
	for _, p := range []*regexp.Regexp{modalPattern, colonPattern} {
		if m := p.FindStringSubmatch(query); m != nil {
			return Assignment{EmployeeName: strings.TrimSpace(m[1]), TaskDescription: strings.TrimSpace(m[2])}
		}
	}
	for _, name := range knownNames {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
		if err != nil {
			continue
		}
		loc := re.FindStringIndex(query)
		if loc == nil {
			continue
		}
		rest := strings.TrimSpace(query[:loc[0]] + " " + query[loc[1]:])
		rest = leadingVerbs.ReplaceAllString(rest, "")
		rest = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), "to "))
		return Assignment{EmployeeName: name, TaskDescription: rest}
	}
	return Assignment{}
}

// matchKnownName resolves candidate against known names: case-insensitive
// equality first, then containment either way.
func matchKnownName(candidate string, knownNames []string) (string, bool) {
	if len(knownNames) == 0 || strings.TrimSpace(candidate) == "" {
		return "", false
	}
	users := make([]domain.User, len(knownNames))
	for i, n := range knownNames {
		users[i] = domain.User{ID: n, Name: n}
	}
	u, m := board.Resolve(candidate, users)
	if !m.Found {
		return "", false
	}
	if m.Rank == board.RankSubstring && (len(strings.TrimSpace(candidate)) < 3 || len(u.Name) < 3) {
		return "", false
	}
	if m.Ties > 0 {
		log.WithFields(log.Fields{"candidate": candidate, "ties": m.Ties}).Debug("intent.name.ambiguous")
	}
	return u.Name, true
}
