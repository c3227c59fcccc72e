package intent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"aura-api/domain"
	"aura-api/llm"
)

// TaskUpdate checks or unchecks one of the caller's tasks.
type TaskUpdate struct {
	TaskID   string `json:"task_id"`
	Complete bool   `json:"complete"`
}

type updateReply struct {
	TaskID string `json:"task_id"`
	Action string `json:"action"`
}

// ParseTaskUpdates works out which of tasks a natural-language request such
// as "mark task 2 as done" refers to. Only ids present in tasks are returned.
func (c *Classifier) ParseTaskUpdates(ctx context.Context, query string, tasks []domain.Task) ([]TaskUpdate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.Ambiguous("empty request")
	}
	if len(tasks) == 0 {
		return nil, domain.Ambiguous("you have no tasks to update")
	}

	out, err := llm.Call(ctx, c.model, updatePrompt(query, tasks))
	if err != nil {
		c.logger.WithError(err).Warn("intent.update.model_unavailable")
	} else if updates := parseUpdates(out, tasks); len(updates) > 0 {
		return updates, nil
	}

	if updates := heuristicUpdates(query, tasks); len(updates) > 0 {
		return updates, nil
	}
	return nil, domain.Ambiguous("could not tell which task to update; refer to it by number or name")
}

func updatePrompt(query string, tasks []domain.Task) string {
	var b strings.Builder
	for i, t := range tasks {
		state := "incomplete"
		if t.Completed {
			state = "complete"
		}
		fmt.Fprintf(&b, "%d. id=%s [%s] %s\n", i+1, t.ID, state, t.Name)
	}
	return fmt.Sprintf(`The user wants to check or uncheck some of their tasks.
Tasks:
%s
Reply with JSON only, an array of {"task_id": "<id>", "action": "check"|"uncheck"}.

Request: %s`, b.String(), query)
}

func parseUpdates(out string, tasks []domain.Task) []TaskUpdate {
	arr := llm.ExtractArray(out)
	if arr == "" {
		return nil
	}
	var replies []updateReply
	if err := sonic.UnmarshalString(arr, &replies); err != nil {
		return nil
	}
	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.ID] = true
	}
	var updates []TaskUpdate
	for _, r := range replies {
		if !known[r.TaskID] {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(r.Action)) {
		case "check", "complete", "done":
			updates = append(updates, TaskUpdate{TaskID: r.TaskID, Complete: true})
		case "uncheck", "incomplete", "undo":
			updates = append(updates, TaskUpdate{TaskID: r.TaskID, Complete: false})
		}
	}
	return updates
}

var (
	uncheckWords = regexp.MustCompile(`(?i)\b(uncheck|unmark|not done|incomplete|undo|reopen|pending)\b`)
	ordinalRef   = regexp.MustCompile(`(?i)(?:\btask\s*#?\s*|#)(\d+)\b|\b(\d+)(?:st|nd|rd|th)\b`)
	allRef       = regexp.MustCompile(`(?i)\b(all|every|everything)\b`)
)

func heuristicUpdates(query string, tasks []domain.Task) []TaskUpdate {
	complete := !uncheckWords.MatchString(query)
	picked := map[int]bool{}
	var order []int
	pick := func(i int) {
		if i >= 0 && i < len(tasks) && !picked[i] {
			picked[i] = true
			order = append(order, i)
		}
	}

	for _, m := range ordinalRef.FindAllStringSubmatch(query, -1) {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if n, err := strconv.Atoi(raw); err == nil {
			pick(n - 1)
		}
	}
	if len(order) == 0 {
		lq := strings.ToLower(query)
		for i, t := range tasks {
			if name := strings.ToLower(strings.TrimSpace(t.Name)); name != "" && strings.Contains(lq, name) {
				pick(i)
			}
		}
	}
	if len(order) == 0 && allRef.MatchString(query) {
		for i := range tasks {
			pick(i)
		}
	}

	updates := make([]TaskUpdate, 0, len(order))
	for _, i := range order {
		updates = append(updates, TaskUpdate{TaskID: tasks[i].ID, Complete: complete})
	}
	return updates
}
