package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"

	"aura-api/domain"
	"aura-api/llm"
)

// Kinds of names ExtractName can look for.
const (
	KindList = "list"
	KindCard = "card"
)

var boardIDPattern = regexp.MustCompile(`(?i)(?:board[_\s-]*id|\bbid)\b\s*[:=]?\s*([A-Za-z0-9_\-:.]{4,})`)

// ExtractBoardID finds an explicit board id such as "board id: 5f3a..." in text.
func ExtractBoardID(text string) string {
	m := boardIDPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimRight(m[1], ".:")
}

var (
	quotedName = regexp.MustCompile(`"([^"]+)"|“([^”]+)”|(?:^|\s)'([^']+)'(?:$|[\s?.!,])`)
	kindName   = map[string]*regexp.Regexp{
		KindList: regexp.MustCompile(`(?i)\blist\s+(?:named\s+|called\s+)?['"]?([^'"\n,?]+)`),
		KindCard: regexp.MustCompile(`(?i)\bcard\s+(?:named\s+|called\s+)?['"]?([^'"\n,?]+)`),
	}
	trailingNoise = regexp.MustCompile(`(?i)\s+(?:on|in|from)\s+(?:the\s+)?board\b.*$`)
)

type nameReply struct {
	Name string `json:"name"`
}

// ExtractName finds the list or card name a query refers to.
func (c *Classifier) ExtractName(ctx context.Context, kind, query string) (string, error) {
	out, err := llm.Call(ctx, c.model, fmt.Sprintf(`Extract the %s name the user refers to.
Reply with JSON only: {"name": "<%s name or empty>"}

Request: %s`, kind, kind, query))
	if err == nil {
		if obj := llm.ExtractObject(out); obj != "" {
			var reply nameReply
			if sonic.UnmarshalString(obj, &reply) == nil && strings.TrimSpace(reply.Name) != "" {
				return strings.TrimSpace(reply.Name), nil
			}
		}
	} else {
		c.logger.WithError(err).WithField("kind", kind).Warn("intent.extract.model_unavailable")
	}

	if name := HeuristicName(kind, query); name != "" {
		return name, nil
	}
	return "", domain.Ambiguous("could not find which %s you mean; put its name in quotes", kind)
}

// HeuristicName pulls a quoted name or the words after "list"/"card".
func HeuristicName(kind, query string) string {
	if m := quotedName.FindStringSubmatch(query); m != nil {
		for _, g := range m[1:] {
			if g = strings.TrimSpace(g); g != "" {
				return g
			}
		}
	}
	re, ok := kindName[kind]
	if !ok {
		return ""
	}
	m := re.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	name := trailingNoise.ReplaceAllString(m[1], "")
	return strings.TrimSpace(strings.TrimRight(name, ".!? "))
}
