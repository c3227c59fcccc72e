package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"aura-api/domain"
	"aura-api/llm"
)

// HistoryWindow is how many earlier messages go into the prompt.
const HistoryWindow = 5

// Replies used when there is nothing to answer from.
const (
	NoSourcesAnswer = "No documents available. Please upload a document or meeting transcript first."
	NoContextAnswer = "No relevant content found in the uploaded documents."
)

// Service answers questions over sources.
type Service struct {
	model    llm.Model
	splitter Splitter
	logger   *log.Logger
}

func NewService(model llm.Model, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Service{
		model:    model,
		splitter: NewSplitter(DefaultChunkSize, DefaultChunkOverlap),
		logger:   logger,
	}
}

// Answer builds the context and asks the model. Model failures come back as
// ModelUnavailableError; having nothing to read from is not an error.
func (s *Service) Answer(ctx context.Context, question string, sources []Source, history []domain.Message) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", domain.Ambiguous("ask a question")
	}
	if len(sources) == 0 {
		return NoSourcesAnswer, nil
	}
	packed := BuildContext(sources, s.splitter)
	if packed == "" {
		return NoContextAnswer, nil
	}

	out, err := llm.Call(ctx, s.model, answerPrompt(packed, historyText(history), question))
	if err != nil {
		return "", err
	}
	s.logger.WithFields(log.Fields{
		"sources":      len(sources),
		"contextChars": len(packed),
		"history":      len(history),
	}).Debug("rag.answered")
	return out, nil
}

// AppendTurn records a question and its answer, keeping history chronological.
func AppendTurn(conv domain.Conversation, question, answer string, now time.Time) domain.Conversation {
	conv.Messages = append(conv.Messages,
		domain.Message{Role: "user", Content: question},
		domain.Message{Role: "assistant", Content: answer},
	)
	conv.UpdatedAt = now
	return conv
}

func historyText(history []domain.Message) string {
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}
	var parts []string
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := "Assistant"
		if m.Role == "user" {
			role = "User"
		}
		parts = append(parts, role+": "+m.Content)
	}
	return strings.Join(parts, "\n\n")
}

func answerPrompt(packed, history, question string) string {
	var b strings.Builder
	b.WriteString("You are an assistant helping users understand their uploaded documents and meeting transcripts.\n\n")
	b.WriteString("Context from the uploaded documents, most recent first:\n\n")
	b.WriteString(packed)
	b.WriteString("\n\n")
	if history != "" {
		fmt.Fprintf(&b, "Previous conversation:\n%s\n\n", history)
	}
	b.WriteString(`Answer the question below accurately and concisely using only the context above`)
	if history != "" {
		b.WriteString(" and the previous conversation")
	}
	b.WriteString(`.
- If the answer is not in the documents, say "I cannot find this information in the uploaded documents."
- Do not make up information.
- Prefer the most recent documents when they conflict with older ones.

Question: `)
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}
