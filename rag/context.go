package rag

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"aura-api/domain"
)

// Context packing limits.
const (
	MaxContextChars  = 12000
	ChunkSeparator   = "\n\n---CHUNK SEPARATOR---\n\n"
	maxMeetingSource = 2
)

// SourceKind tells uploaded documents from meeting transcripts.
type SourceKind string

const (
	KindDocument SourceKind = "document"
	KindMeeting  SourceKind = "meeting"
)

// Source is one text the answer may draw on.
type Source struct {
	Kind      SourceKind
	Label     string
	Text      string
	CreatedAt time.Time
}

// FromDocuments converts uploaded documents to sources.
func FromDocuments(docs []domain.Document) []Source {
	out := make([]Source, 0, len(docs))
	for _, d := range docs {
		out = append(out, Source{Kind: KindDocument, Label: d.Filename, Text: d.Content, CreatedAt: d.CreatedAt})
	}
	return out
}

// FromMeetings converts meetings to sources. The transcript is used when
// stored, otherwise the summary.
func FromMeetings(meetings []domain.Meeting) []Source {
	out := make([]Source, 0, len(meetings))
	for _, m := range meetings {
		text := m.Transcript
		if strings.TrimSpace(text) == "" {
			text = m.Summary
		}
		label := m.Filename
		if label == "" {
			label = m.Title
		}
		out = append(out, Source{Kind: KindMeeting, Label: label, Text: text, CreatedAt: m.Date})
	}
	return out
}

// Prioritize keeps only the newest document when any document exists, and
// otherwise the two newest meetings.
func Prioritize(sources []Source) []Source {
	sorted := make([]Source, 0, len(sources))
	for _, s := range sources {
		if strings.TrimSpace(s.Text) != "" {
			sorted = append(sorted, s)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })

	var meetings []Source
	for _, s := range sorted {
		if s.Kind == KindDocument {
			return []Source{s}
		}
		if s.Kind == KindMeeting && len(meetings) < maxMeetingSource {
			meetings = append(meetings, s)
		}
	}
	return meetings
}

// BuildContext splits the prioritized sources into labelled chunks and
// keeps them, in order, until MaxContextChars would be exceeded.
func BuildContext(sources []Source, splitter Splitter) string {
	var selected []string
	total := 0
	for i, src := range Prioritize(sources) {
		label := src.Label
		if label == "" {
			label = fmt.Sprintf("Document %d", i+1)
		}
		for _, chunk := range splitter.Split(src.Text) {
			labelled := fmt.Sprintf("[Document: %s]\n%s", label, chunk)
			n := size(labelled)
			if total+n > MaxContextChars {
				return strings.Join(selected, ChunkSeparator)
			}
			selected = append(selected, labelled)
			total += n
		}
	}
	return strings.Join(selected, ChunkSeparator)
}
