package intent

import (
	"strings"

	"github.com/bytedance/sonic"

	"aura-api/llm"
)

// Read functions a query can be routed to.
const (
	FnCardDescription = "get_card_description"
	FnListContent     = "get_list_content"
	FnDeadline        = "get_deadline"
	FnAllDeadlines    = "get_all_deadlines"
	FnBoardContent    = "get_board_content"
	FnCardComment     = "get_card_comment"
	FnAllActions      = "get_all_actions"
	FnChecklist       = "get_checklist"
)

// ReadFunctions is the read vocabulary in the order replies are scanned.
var ReadFunctions = []string{
	FnCardDescription,
	FnListContent,
	FnDeadline,
	FnAllDeadlines,
	FnBoardContent,
	FnCardComment,
	FnAllActions,
	FnChecklist,
}

var functionDescriptions = map[string]string{
	FnCardDescription: "description of one named card",
	FnListContent:     "cards in one named list",
	FnDeadline:        "deadline of one named card",
	FnAllDeadlines:    "deadlines of every card",
	FnBoardContent:    "all lists and cards on the board",
	FnCardComment:     "comments on one named card",
	FnAllActions:      "everything on the board, including checklists",
	FnChecklist:       "checklists and their items",
}

func functionHelp() string {
	var b strings.Builder
	for _, fn := range ReadFunctions {
		b.WriteString("- ")
		b.WriteString(fn)
		b.WriteString(": ")
		b.WriteString(functionDescriptions[fn])
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// ParseFunctionList reads the read functions named in a model reply. A
// JSON array is tried first; otherwise every known function name found as
// a case-insensitive substring of the text is returned in vocabulary order.
func ParseFunctionList(text string) []string {
	if arr := llm.ExtractArray(text); arr != "" {
		var names []string
		if err := sonic.UnmarshalString(arr, &names); err == nil {
			if known := knownFunctions(names); len(known) > 0 {
				return known
			}
		}
	}
	lower := strings.ToLower(text)
	var out []string
	for _, fn := range ReadFunctions {
		if strings.Contains(lower, fn) {
			out = append(out, fn)
		}
	}
	return out
}

func knownFunctions(names []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if _, ok := functionDescriptions[n]; ok && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
