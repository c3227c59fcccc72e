// Package meetings turns raw meeting transcripts into a summary, a
// participant list and per-person action items.
package meetings

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"aura-api/domain"
	"aura-api/llm"
)

// MaxParallelTaskCalls bounds concurrent per-participant model calls.
const MaxParallelTaskCalls = 3

// Result is a processed transcript.
type Result struct {
	Title        string              `json:"title"`
	Summary      string              `json:"summary"`
	Participants []string            `json:"participants"`
	ActionItems  []domain.ActionItem `json:"action_items"`
	Transcript   string              `json:"transcript_text"`
}

// Processor runs the summary, participant and task prompts.
type Processor struct {
	model  llm.Model
	logger *log.Logger
	now    func() time.Time
}

func NewProcessor(model llm.Model, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Processor{model: model, logger: logger, now: time.Now}
}

// Process summarizes transcript and extracts action items. A failure of the
// summary call is returned as is; later calls degrade to what the summary
// itself reveals.
func (p *Processor) Process(ctx context.Context, transcript string) (Result, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return Result{}, domain.Ambiguous("the transcript is empty")
	}

	summary, err := llm.Call(ctx, p.model, summaryPrompt(transcript))
	if err != nil {
		return Result{}, err
	}

	participants := p.participants(ctx, summary)
	items, err := p.actionItems(ctx, summary, participants)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Title:        Title(summary, p.now()),
		Summary:      summary,
		Participants: participants,
		ActionItems:  items,
		Transcript:   transcript,
	}
	p.logger.WithFields(log.Fields{
		"title":        res.Title,
		"participants": len(participants),
		"actionItems":  len(items),
	}).Info("meetings.processed")
	return res, nil
}

func (p *Processor) participants(ctx context.Context, summary string) []string {
	out, err := llm.Call(ctx, p.model, participantsPrompt(summary))
	if err != nil {
		p.logger.WithError(err).Warn("meetings.participants.model_unavailable")
		return ParticipantsFromSummary(summary)
	}
	names := ParseParticipants(out)
	if len(names) == 0 {
		return ParticipantsFromSummary(summary)
	}
	return names
}

func (p *Processor) actionItems(ctx context.Context, summary string, participants []string) ([]domain.ActionItem, error) {
	perPerson := make([][]domain.ActionItem, len(participants))
	var g errgroup.Group
	g.SetLimit(MaxParallelTaskCalls)
	for i, person := range participants {
		g.Go(func() error {
			out, err := llm.Call(ctx, p.model, taskPrompt(summary, person))
			if err != nil {
				p.logger.WithError(err).WithField("participant", person).Warn("meetings.tasks.model_unavailable")
				return nil
			}
			perPerson[i] = ParseTasks(out, person)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := []domain.ActionItem{}
	for _, list := range perPerson {
		items = append(items, list...)
	}
	return items, nil
}

var titleMarker = regexp.MustCompile(`(?i)^(?:\(\s*title\s*\)|title\s*:)\s*`)

// Title takes the first line of a summary, without its "(TITLE)" marker or
// markdown emphasis. It falls back to "Meeting - YYYY-MM-DD".
func Title(summary string, now time.Time) string {
	lines := strings.Split(summary, "\n")
	for i, line := range lines {
		line = cleanLine(line)
		if line == "" {
			continue
		}
		if t := cleanLine(titleMarker.ReplaceAllString(line, "")); t != "" {
			if !strings.HasPrefix(strings.ToLower(t), "particip") {
				return t
			}
			break
		}
		// a bare "(TITLE)" heading puts the title on the next line
		for _, next := range lines[i+1:] {
			if next = cleanLine(next); next != "" {
				if strings.HasPrefix(strings.ToLower(next), "particip") {
					break
				}
				return next
			}
		}
		break
	}
	return fmt.Sprintf("Meeting - %s", now.UTC().Format("2006-01-02"))
}

func cleanLine(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "#*_"))
}

var andSeparator = regexp.MustCompile(`(?i)\s+and\s+`)

// ParseParticipants reads a participant list the model produced as a JSON
// array, a single-quoted list literal or plain "A, B and C" text.
func ParseParticipants(raw string) []string {
	raw = strings.TrimSpace(llm.StripFences(raw))
	if raw == "" {
		return nil
	}

	var names []string
	base := raw
	if arr := llm.ExtractArray(raw); arr != "" {
		base = arr
		if err := sonic.UnmarshalString(arr, &names); err != nil {
			names = nil
		}
	}
	if names == nil {
		var single string
		if err := sonic.UnmarshalString(raw, &single); err == nil {
			names = []string{single}
		}
	}
	if names == nil {
		cleaned := strings.TrimSuffix(strings.TrimPrefix(base, "["), "]")
		cleaned = andSeparator.ReplaceAllString(cleaned, ",")
		for _, part := range strings.Split(cleaned, ",") {
			names = append(names, strings.Trim(strings.TrimSpace(part), `"'`))
		}
	}
	return dedupe(names)
}

var participantsLine = regexp.MustCompile(`(?im)^\W*partic[a-z]*\s*(?:of the meet(?:ing)?|names?)?\s*:\s*(.+)$`)

// ParticipantsFromSummary reads the "Participants of the meet:" line the
// summary prompt asks for.
func ParticipantsFromSummary(summary string) []string {
	m := participantsLine.FindStringSubmatch(summary)
	if m == nil {
		return []string{}
	}
	line := strings.Trim(strings.TrimSpace(m[1]), " *.")
	return ParseParticipants(line)
}

func dedupe(names []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

var taskPrefix = regexp.MustCompile(`^[\s*\-•]*Task-\d+[\s*:.)\-]*`)

// ParseTasks reads "Task-N <text>, Assigned by: <name>" lines. Lines without
// a Task- marker are ignored and a missing assigner becomes "Unknown".
func ParseTasks(raw, assignee string) []domain.ActionItem {
	items := []domain.ActionItem{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "Task-") {
			continue
		}
		text, assigner, _ := strings.Cut(line, "Assigned by:")
		text = taskPrefix.ReplaceAllString(text, "")
		text = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(text), ",.;"))
		assigner = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(assigner), "."))
		if text == "" {
			continue
		}
		if assigner == "" {
			assigner = "Unknown"
		}
		items = append(items, domain.ActionItem{Text: text, Assignee: assignee, AssignedBy: assigner})
	}
	return items
}

func summaryPrompt(transcript string) string {
	return fmt.Sprintf(`Summarize the meeting transcript below for its participants. Use exactly this layout:

(TITLE)
<the most fitting title for the meeting>

Participants of the meet: <every person present, comma separated>

<the motivation and main objective of the meeting>

<each topic discussed: how the work is going and any issues raised>

<the tasks that were agreed and who owns them>

(Conclusion)
<the conclusion of the meeting>

Transcript:
%s`, transcript)
}

func participantsPrompt(summary string) string {
	return fmt.Sprintf(`List the names of the people who attended the meeting described below.
Reply with a JSON array of strings only, for example ["Taran", "Garv", "Vatsal"].

Meeting:
%s`, summary)
}

func taskPrompt(summary, person string) string {
	return fmt.Sprintf(`List the tasks assigned to %s in the meeting described below. Be specific; no vague tasks.
Reply with one task per line in exactly this format and nothing else:
Task-1 <the task>, Assigned by: <who assigned it>
Task-2 <the task>, Assigned by: <who assigned it>

Meeting:
%s`, person, summary)
}
