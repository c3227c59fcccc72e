package board

import "strings"

// Named is anything that can be matched by name: lists, cards, checklists,
// items and users.
type Named interface {
	EntityID() string
	EntityName() string
	IsClosed() bool
}

// Rank orders how strongly a candidate matched.
type Rank int

const (
	NoMatch Rank = iota
	RankSubstring
	RankFold
	RankExact
)

func (r Rank) String() string {
	switch r {
	case RankExact:
		return "exact"
	case RankFold:
		return "case-insensitive"
	case RankSubstring:
		return "substring"
	}
	return "none"
}

// Match describes the outcome of Resolve. Ties counts the other items that
// matched at the same rank; the first one in iteration order was chosen.
type Match struct {
	Found bool
	Rank  Rank
	Ties  int
}

// Resolve finds the item best matching candidate. Exact equality beats
// case-insensitive equality, which beats substring containment in either
// direction. Closed items never match.
func Resolve[T Named](candidate string, items []T) (T, Match) {
	var best T
	var m Match
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return best, m
	}
	lc := strings.ToLower(candidate)
	for _, it := range items {
		if it.IsClosed() {
			continue
		}
		r := rank(candidate, lc, it.EntityName())
		switch {
		case r == NoMatch:
		case r > m.Rank:
			best, m = it, Match{Found: true, Rank: r}
		case r == m.Rank:
			m.Ties++
		}
	}
	return best, m
}

func rank(candidate, lc, name string) Rank {
	name = strings.TrimSpace(name)
	if name == "" {
		return NoMatch
	}
	if name == candidate {
		return RankExact
	}
	ln := strings.ToLower(name)
	if ln == lc {
		return RankFold
	}
	if strings.Contains(ln, lc) || strings.Contains(lc, ln) {
		return RankSubstring
	}
	return NoMatch
}

// ResolveTodoCard finds a person's task card: "{person}'s Todo" first, then
// any card starting with "{person}'", then a plain name match.
func ResolveTodoCard[T Named](person string, cards []T) (T, Match) {
	var zero T
	person = strings.TrimSpace(person)
	if person == "" {
		return zero, Match{}
	}
	if c, m := Resolve(person+"'s Todo", cards); m.Found && m.Rank >= RankFold {
		return c, m
	}
	prefix := strings.ToLower(person) + "'"
	for _, c := range cards {
		if c.IsClosed() {
			continue
		}
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(c.EntityName())), prefix) {
			return c, Match{Found: true, Rank: RankFold}
		}
	}
	return Resolve(person, cards)
}
