package kanban

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// Record is one entity as decoded from a board API response.
type Record map[string]any

// ID returns the record id or an empty string.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Name returns the record name or an empty string.
func (r Record) Name() string {
	name, _ := r["name"].(string)
	return name
}

var errUnexpectedShape = errors.New("unexpected response shape")

// wrapperKeys hold a single created entity in some proxy responses.
var wrapperKeys = []string{"list", "card", "checklist", "checkItem", "result"}

// Records turns any of the response shapes the board API (or a proxy in
// front of it) produces into a flat sequence of records:
//
//	[ {...}, ... ]
//	{"data": [ {...}, ... ]}
//	{"data": {"details": [ {...}, ... ]}}
//	{"<first list field>": [ {"id": ...}, ... ], ...}
//	{"id": ..., ...}
//
// A nil result means the body was null or carried nothing recognizable;
// an empty non-nil result means the remote answered with an empty list.
func Records(body []byte) ([]Record, error) {
	raw, err := recordsRaw(body)
	if err != nil || raw == nil {
		return nil, err
	}
	out := []Record{}
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return out, nil
}

// Decode normalizes body like Records and decodes every record into T.
func Decode[T any](body []byte) ([]T, error) {
	raw, err := recordsRaw(body)
	if err != nil || raw == nil {
		return nil, err
	}
	out := []T{}
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return out, nil
}

// DecodeOne decodes a single entity, typically the response to a create
// call. It fails when the response carries no id.
func DecodeOne[T any](body []byte) (T, error) {
	var zero T
	recs, err := Records(body)
	if err != nil {
		return zero, err
	}
	if len(recs) == 0 || recs[0].ID() == "" {
		return zero, errors.New("response carried no id")
	}
	data, err := sonic.Marshal(recs[0])
	if err != nil {
		return zero, err
	}
	var out T
	if err := sonic.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("decode record: %w", err)
	}
	return out, nil
}

func recordsRaw(body []byte) ([]byte, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}
	switch body[0] {
	case '[':
		return body, nil
	case '{':
	default:
		return nil, errUnexpectedShape
	}

	fields, err := objectFields(body)
	if err != nil {
		return nil, err
	}
	if v, ok := lookup(fields, "data"); ok {
		return recordsRaw(v)
	}
	if v, ok := lookup(fields, "details"); ok && len(v) > 0 && v[0] == '[' {
		return v, nil
	}
	if _, ok := lookup(fields, "id"); ok {
		wrapped := make([]byte, 0, len(body)+2)
		wrapped = append(wrapped, '[')
		wrapped = append(wrapped, body...)
		return append(wrapped, ']'), nil
	}
	for _, f := range fields {
		if isRecordArray(f.value) {
			return f.value, nil
		}
	}
	for _, key := range wrapperKeys {
		if v, ok := lookup(fields, key); ok && len(v) > 0 && v[0] == '{' {
			return recordsRaw(v)
		}
	}
	return nil, nil
}

type field struct {
	key   string
	value json.RawMessage
}

// objectFields keeps document order, which decoding into a map would lose.
func objectFields(body []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode object: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errUnexpectedShape
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode field %q: %w", key, err)
		}
		fields = append(fields, field{key: key, value: bytes.TrimSpace(v)})
	}
	return fields, nil
}

func lookup(fields []field, key string) (json.RawMessage, bool) {
	for _, f := range fields {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

// isRecordArray reports whether v is an array that is empty or whose first
// element is an object carrying an id.
func isRecordArray(v json.RawMessage) bool {
	if len(v) == 0 || v[0] != '[' {
		return false
	}
	var items []map[string]any
	if err := sonic.Unmarshal(v, &items); err != nil {
		return false
	}
	if len(items) == 0 {
		return true
	}
	_, ok := items[0]["id"]
	return ok
}
