package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Overflow holds server-sent fields that are not modelled, keyed by field
// name, with the raw JSON text of each value kept verbatim.
type Overflow map[string]json.RawMessage

// fieldSet lists the wire names a type models explicitly.
type fieldSet map[string]struct{}

func newFieldSet(names ...string) fieldSet {
	set := make(fieldSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

func (s fieldSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

// parseObject validates that data is a single JSON object.
func parseObject(data []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("invalid json")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return gjson.Result{}, fmt.Errorf("expected a json object, got %s", root.Type)
	}
	return root, nil
}

// captureOverflow collects every top-level key of root that is not in known.
// It returns nil when there is nothing to keep.
func captureOverflow(root gjson.Result, known fieldSet) Overflow {
	var extra Overflow
	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if known.has(name) {
			return true
		}
		if extra == nil {
			extra = make(Overflow)
		}
		extra[name] = json.RawMessage(value.Raw)
		return true
	})
	return extra
}

// emitOverflow writes the overflow fields next to the known ones already
// encoded in base. Known fields always win over an overflow entry with the
// same name. Keys are emitted in sorted order.
func emitOverflow(base []byte, extra Overflow, known fieldSet) ([]byte, error) {
	keys := make([]string, 0, len(extra))
	for name := range extra {
		if !known.has(name) {
			keys = append(keys, name)
		}
	}
	slices.Sort(keys)

	out := base
	for _, name := range keys {
		raw := extra[name]
		if !json.Valid(raw) {
			return nil, fmt.Errorf("overflow field %q holds invalid json", name)
		}
		var err error
		if name == "" {
			out, err = appendMember(out, name, raw)
		} else {
			out, err = sjson.SetRawBytes(out, escapePath(name), raw)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to emit overflow field %q: %w", name, err)
		}
	}
	return out, nil
}

// appendMember adds name:raw before the closing brace of the object in obj.
// sjson has no path for the empty key, so that one is spliced in here.
func appendMember(obj []byte, name string, raw json.RawMessage) ([]byte, error) {
	obj = bytes.TrimRight(obj, " \t\r\n")
	if len(obj) < 2 || obj[len(obj)-1] != '}' {
		return nil, fmt.Errorf("expected a json object")
	}
	key, err := json.Marshal(name)
	if err != nil {
		return nil, err
	}

	body := bytes.TrimRight(obj[:len(obj)-1], " \t\r\n")
	out := make([]byte, 0, len(obj)+len(key)+len(raw)+2)
	out = append(out, body...)
	if body[len(body)-1] != '{' {
		out = append(out, ',')
	}
	out = append(out, key...)
	out = append(out, ':')
	out = append(out, raw...)
	out = append(out, '}')
	return out, nil
}

// escapePath turns a literal key into an sjson path of one component.
func escapePath(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		switch r {
		case '.', '*', '?', '\\', '|', '#', '@', '!', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
