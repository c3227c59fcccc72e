package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"aura-api/domain"
	"aura-api/llm"
)

// Operation is the kind of board operation a query asks for.
type Operation string

const (
	Read   Operation = "Read"
	Write  Operation = "Write"
	Delete Operation = "Delete"
)

// Where a classification came from.
const (
	SourceModel     = "model"
	SourceModelText = "model_text"
	SourceHeuristic = "heuristic"
)

// Parameter keys a classification may carry.
const (
	ParamBoardID  = "board_id"
	ParamListName = "list_name"
	ParamCardName = "card_name"
	ParamEmployee = "employee_name"
	ParamTask     = "task_description"
)

// Classification is the decoded intent of a query.
type Classification struct {
	Operations []Operation       `json:"operations"`
	Functions  []string          `json:"functions,omitempty"`
	Parameters map[string]string `json:"parameters,omitempty"`
	Source     string            `json:"source"`
}

// Has reports whether op is among the classified operations.
func (c Classification) Has(op Operation) bool {
	for _, o := range c.Operations {
		if o == op {
			return true
		}
	}
	return false
}

// Function returns the first read function, or "".
func (c Classification) Function() string {
	if len(c.Functions) == 0 {
		return ""
	}
	return c.Functions[0]
}

// Param returns a parameter value, or "".
func (c Classification) Param(key string) string {
	if c.Parameters == nil {
		return ""
	}
	return c.Parameters[key]
}

// Classifier maps free text to board operations using the model, with
// keyword fallbacks when the model is unavailable or replies with garbage.
type Classifier struct {
	model  llm.Model
	logger *log.Logger
}

// New returns a Classifier. model may be nil, in which case only the
// heuristics run.
func New(model llm.Model, logger *log.Logger) *Classifier {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Classifier{model: model, logger: logger}
}

type classificationReply struct {
	Operations []string       `json:"operations"`
	Operation  string         `json:"operation"`
	Functions  []string       `json:"functions"`
	Function   string         `json:"function"`
	Parameters map[string]any `json:"parameters"`
}

// Classify decides which operations and read functions a query asks for.
// It fails with an AmbiguousInputError when nothing can be recognized.
func (c *Classifier) Classify(ctx context.Context, query string, knownNames []string) (Classification, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Classification{}, domain.Ambiguous("empty query")
	}

	out, err := llm.Call(ctx, c.model, classifyPrompt(query, knownNames))
	if err != nil {
		c.logger.WithError(err).Warn("intent.classify.model_unavailable")
	} else {
		if cl, ok := parseClassification(out); ok {
			cl.Source = SourceModel
			return c.finish(query, cl)
		}
		if cl, ok := scanClassification(out); ok {
			cl.Source = SourceModelText
			return c.finish(query, cl)
		}
		c.logger.WithField("reply", truncate(out, 200)).Warn("intent.classify.unparseable_reply")
	}

	if cl, ok := heuristicClassification(query); ok {
		cl.Source = SourceHeuristic
		return c.finish(query, cl)
	}
	return Classification{}, domain.Ambiguous("could not tell what you want to do; mention a list, card, deadline or checklist, or who to assign a task to")
}

func (c *Classifier) finish(query string, cl Classification) (Classification, error) {
	if cl.Parameters == nil {
		cl.Parameters = map[string]string{}
	}
	if cl.Parameters[ParamBoardID] == "" {
		if id := ExtractBoardID(query); id != "" {
			cl.Parameters[ParamBoardID] = id
		}
	}
	if cl.Has(Read) && len(cl.Functions) == 0 {
		if h, ok := heuristicClassification(query); ok {
			cl.Functions = h.Functions
		}
		if len(cl.Functions) == 0 {
			return Classification{}, domain.Ambiguous("could not tell what to read; ask about a list, card, deadline or checklist")
		}
	}
	c.logger.WithFields(log.Fields{
		"operations": cl.Operations,
		"functions":  cl.Functions,
		"source":     cl.Source,
	}).Debug("intent.classified")
	return cl, nil
}

func classifyPrompt(query string, knownNames []string) string {
	names := "none"
	if len(knownNames) > 0 {
		names = strings.Join(knownNames, ", ")
	}
	return fmt.Sprintf(`Classify a request made against a Trello-style board.

Operations: Read (look something up), Write (create or assign a task), Delete (remove something).
Read functions:
%s
Known people: %s

Reply with JSON only, no prose:
{"operations": ["Read"|"Write"|"Delete", ...], "functions": ["<read function>", ...], "parameters": {"board_id": "", "list_name": "", "card_name": "", "employee_name": "", "task_description": ""}}

Request: %s`, functionHelp(), names, query)
}

func parseClassification(out string) (Classification, bool) {
	obj := llm.ExtractObject(out)
	if obj == "" {
		return Classification{}, false
	}
	var reply classificationReply
	if err := sonic.UnmarshalString(obj, &reply); err != nil {
		return Classification{}, false
	}
	ops := reply.Operations
	if reply.Operation != "" {
		ops = append(ops, reply.Operation)
	}
	fns := reply.Functions
	if reply.Function != "" {
		fns = append(fns, reply.Function)
	}
	cl := Classification{
		Operations: normalizeOperations(ops),
		Functions:  knownFunctions(fns),
		Parameters: map[string]string{},
	}
	for k, v := range reply.Parameters {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			cl.Parameters[k] = strings.TrimSpace(s)
		}
	}
	if len(cl.Operations) == 0 && len(cl.Functions) > 0 {
		cl.Operations = []Operation{Read}
	}
	return cl, len(cl.Operations) > 0
}

var operationWord = regexp.MustCompile(`(?i)\b(read|write|delete)\b`)

func scanClassification(out string) (Classification, bool) {
	var words []string
	for _, m := range operationWord.FindAllStringSubmatch(out, -1) {
		words = append(words, m[1])
	}
	cl := Classification{
		Operations: normalizeOperations(words),
		Functions:  ParseFunctionList(out),
	}
	if len(cl.Operations) == 0 && len(cl.Functions) > 0 {
		cl.Operations = []Operation{Read}
	}
	return cl, len(cl.Operations) > 0
}

func normalizeOperations(raw []string) []Operation {
	var out []Operation
	seen := map[Operation]bool{}
	for _, r := range raw {
		var op Operation
		switch strings.ToLower(strings.TrimSpace(r)) {
		case "read":
			op = Read
		case "write":
			op = Write
		case "delete":
			op = Delete
		default:
			continue
		}
		if !seen[op] {
			seen[op] = true
			out = append(out, op)
		}
	}
	return out
}

var (
	deleteWords = regexp.MustCompile(`(?i)\b(delete|remove|archive|drop)\b`)
	writeWords  = regexp.MustCompile(`(?i)\b(assign|add|create|give|allot|allocate|put)\b`)
)

type keywordRule struct {
	pattern  *regexp.Regexp
	function string
}

// checked in order; the first match wins
var readRules = []keywordRule{
	{regexp.MustCompile(`(?i)\bchecklists?\b`), FnChecklist},
	{regexp.MustCompile(`(?i)\bcomments?\b`), FnCardComment},
	{regexp.MustCompile(`(?i)\b(all|every)\b.*\b(deadlines?|due)\b`), FnAllDeadlines},
	{regexp.MustCompile(`(?i)\bcard\b.*\b(deadline|due)\b|\b(deadline|due)\b.*\bcard\b`), FnDeadline},
	{regexp.MustCompile(`(?i)\b(deadlines?|due|overdue)\b`), FnAllDeadlines},
	{regexp.MustCompile(`(?i)\b(description|describe|details)\b`), FnCardDescription},
	{regexp.MustCompile(`(?i)\b(actions|activity|everything|all tasks)\b`), FnAllActions},
	{regexp.MustCompile(`(?i)\blist\b`), FnListContent},
	{regexp.MustCompile(`(?i)\b(board|overview|summary)\b`), FnBoardContent},
}

func heuristicClassification(query string) (Classification, bool) {
	var cl Classification
	switch {
	case deleteWords.MatchString(query):
		cl.Operations = []Operation{Delete}
	case writeWords.MatchString(query):
		cl.Operations = []Operation{Write}
	}
	for _, r := range readRules {
		if r.pattern.MatchString(query) {
			cl.Functions = []string{r.function}
			break
		}
	}
	if len(cl.Operations) == 0 && len(cl.Functions) > 0 {
		cl.Operations = []Operation{Read}
	}
	return cl, len(cl.Operations) > 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
