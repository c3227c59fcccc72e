package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"

	"aura-api/domain"
)

// maxPropertyChars keeps every string property under the 64 KiB table limit
// (UTF-16, two bytes per char).
const maxPropertyChars = 30000

// Table entities are capped at 1 MiB and 255 properties, three of which
// (PartitionKey, RowKey, Timestamp) the service owns.
const (
	maxEntityBytes = 1 << 20
	maxEntityProps = 252
)

// props is a table entity decoded as a property map.
type props map[string]any

func newProps(pk, rk string) props {
	return props{"PartitionKey": pk, "RowKey": rk}
}

func (p props) str(name string) string {
	s, _ := p[name].(string)
	return s
}

func (p props) number(name string) int {
	switch v := p[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

func (p props) timestamp(name string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, p.str(name))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (p props) setTime(name string, t time.Time) {
	p[name] = t.UTC().Format(time.RFC3339Nano)
}

// putText stores s under name, name_1, name_2 ... so that no single property
// exceeds maxPropertyChars. A name_count property records the part count.
func (p props) putText(name, s string) {
	parts := splitRunes(s, maxPropertyChars)
	for i, part := range parts {
		p[partName(name, i)] = part
	}
	p[name+"_count"] = len(parts)
}

// text reassembles a value written by putText. Values written as a single
// plain property are read as is.
func (p props) text(name string) string {
	n := p.number(name + "_count")
	if n <= 1 {
		return p.str(name)
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(p.str(partName(name, i)))
	}
	return b.String()
}

func (p props) putJSON(name string, v any) error {
	data, err := sonic.MarshalString(v)
	if err != nil {
		return err
	}
	p.putText(name, data)
	return nil
}

func (p props) decodeJSON(name string, v any) error {
	raw := p.text(name)
	if raw == "" {
		return nil
	}
	return sonic.UnmarshalString(raw, v)
}

func partName(name string, i int) string {
	if i == 0 {
		return name
	}
	return name + "_" + strconv.Itoa(i)
}

func splitRunes(s string, n int) []string {
	if utf8.RuneCountInString(s) <= n {
		return []string{s}
	}
	var parts []string
	for s != "" {
		cut, count := 0, 0
		for cut < len(s) && count < n {
			_, size := utf8.DecodeRuneInString(s[cut:])
			cut += size
			count++
		}
		parts = append(parts, s[:cut])
		s = s[cut:]
	}
	return parts
}

// size estimates the stored entity size: strings count two bytes per UTF-16
// unit, other values eight, and every property pays for its name.
func (p props) size() int {
	n := 0
	for k, v := range p {
		n += 8 + utf16Bytes(k)
		if s, ok := v.(string); ok {
			n += utf16Bytes(s)
			continue
		}
		n += 8
	}
	return n
}

// fits reports domain.ErrTooLarge when the entity would be refused by the
// table service.
func (p props) fits() error {
	if len(p) > maxEntityProps {
		return fmt.Errorf("%w: %d properties", domain.ErrTooLarge, len(p))
	}
	if n := p.size(); n > maxEntityBytes {
		return fmt.Errorf("%w: about %d bytes", domain.ErrTooLarge, n)
	}
	return nil
}

func utf16Bytes(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 4
		} else {
			n += 2
		}
	}
	return n
}
