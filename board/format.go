package board

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"aura-api/domain"
	"aura-api/llm"
)

// DefaultTimezone is the zone deadlines are shown in unless configured otherwise.
const DefaultTimezone = "Asia/Kolkata"

const displayLayout = "2006-01-02 15:04 MST"

// FormatDuration renders d as "{d}d {h}h {m}m", leaving out zero units, as
// "{s}s" when under a minute, with a leading "-" when negative.
func FormatDuration(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	total := int64(d / time.Second)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s%ds", sign, seconds)
	}
	return sign + strings.Join(parts, " ")
}

var dueLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDue parses an ISO-8601 due date and converts it to loc.
func ParseDue(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dueLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

// LoadLocation loads the named zone, falling back to UTC.
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.WithError(err).WithField("tz", name).Warn("board.timezone.fallback_utc")
		return time.UTC
	}
	return loc
}

// RenderDeadlines renders one line per card.
func RenderDeadlines(ds []Deadline) string {
	if len(ds) == 0 {
		return "No cards found."
	}
	var b strings.Builder
	for _, d := range ds {
		if d.Due == nil {
			fmt.Fprintf(&b, "- %s: no deadline\n", d.Card)
			continue
		}
		status := "left"
		if d.Overdue {
			status = "overdue"
		}
		fmt.Fprintf(&b, "- %s: due %s (%s %s)\n", d.Card, d.Due.Format(displayLayout), d.Remaining, status)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderSnapshot renders lists with their cards.
func RenderSnapshot(s Snapshot, loc *time.Location) string {
	var b strings.Builder
	name := s.Board.Name
	if name == "" {
		name = s.Board.ID
	}
	fmt.Fprintf(&b, "Board: %s\n\nLists & Cards:\n", name)
	if len(s.Lists) == 0 {
		b.WriteString("(no lists)")
		return b.String()
	}
	for _, l := range s.Lists {
		fmt.Fprintf(&b, "\n%s\n", l.Name)
		cards := s.CardsByList[l.ID]
		if len(cards) == 0 {
			b.WriteString("  (no cards)\n")
			continue
		}
		for _, c := range cards {
			writeCardLine(&b, c, loc)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderListContent renders the cards of one list.
func RenderListContent(l domain.List, cards []domain.Card, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "List: %s\n", l.Name)
	if len(cards) == 0 {
		b.WriteString("  (no cards)")
		return b.String()
	}
	for _, c := range cards {
		writeCardLine(&b, c, loc)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeCardLine(b *strings.Builder, c domain.Card, loc *time.Location) {
	fmt.Fprintf(b, "  * %s", c.Name)
	if due, ok := ParseDue(c.Due, loc); ok {
		fmt.Fprintf(b, " (due %s)", due.Format(displayLayout))
	}
	b.WriteByte('\n')
	if desc := strings.TrimSpace(c.Desc); desc != "" {
		fmt.Fprintf(b, "    %s\n", strings.ReplaceAll(desc, "\n", " "))
	}
}

// RenderChecklists renders checklists grouped by card.
func RenderChecklists(groups []CardChecklists, loc *time.Location) string {
	if len(groups) == 0 {
		return "No checklists found."
	}
	var b strings.Builder
	for _, g := range groups {
		fmt.Fprintf(&b, "%s", g.Card.Name)
		if due, ok := ParseDue(g.Card.Due, loc); ok {
			fmt.Fprintf(&b, " (due %s)", due.Format(displayLayout))
		}
		b.WriteByte('\n')
		for _, cl := range g.Checklists {
			fmt.Fprintf(&b, "  %s\n", cl.Name)
			for _, it := range cl.CheckItems {
				fmt.Fprintf(&b, "    [%s] %s\n", checkMark(it.Done()), it.Name)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderTasks renders a person's tasks, numbered from 1.
func RenderTasks(tl TaskList) string {
	if !tl.Found {
		return "No todo card found."
	}
	if len(tl.Tasks) == 0 {
		return fmt.Sprintf("%s has no tasks.", tl.Card.Name)
	}
	var b strings.Builder
	for i, t := range tl.Tasks {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, checkMark(t.Completed), t.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderCard renders a card's description and comments.
func RenderCard(c domain.Card, comments []domain.Comment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Card: %s\n", c.Name)
	if desc := strings.TrimSpace(c.Desc); desc != "" {
		fmt.Fprintf(&b, "Description: %s\n", desc)
	} else if comments == nil {
		b.WriteString("Description: (empty)\n")
	}
	for _, cm := range comments {
		author := cm.Author
		if author == "" {
			author = "unknown"
		}
		fmt.Fprintf(&b, "- %s: %s\n", author, cm.Text)
	}
	if comments != nil && len(comments) == 0 {
		b.WriteString("(no comments)\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func checkMark(done bool) string {
	if done {
		return "x"
	}
	return " "
}

// Formatter turns plain renderings into a friendlier answer using the model.
type Formatter struct {
	model  llm.Model
	logger *log.Logger
}

// NewFormatter returns a Formatter. A nil model always yields the plain text.
func NewFormatter(model llm.Model, logger *log.Logger) *Formatter {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Formatter{model: model, logger: logger}
}

// Summarize asks the model to present block as an answer to query. Any
// model failure falls back to block unchanged.
func (f *Formatter) Summarize(ctx context.Context, title, block, query string) string {
	if f == nil || f.model == nil {
		return block
	}
	prompt := fmt.Sprintf(`You are a project assistant. Present the following %s to the user in a short, readable form.
Keep every name, date and time remaining exactly as given. Do not invent items.

User request: %s

%s`, title, query, block)
	out, err := llm.Call(ctx, f.model, prompt)
	if err != nil || out == "" {
		f.logger.WithError(err).WithField("title", title).Warn("board.format.plain_fallback")
		return block
	}
	return out
}
