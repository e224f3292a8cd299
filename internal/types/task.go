package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Task is an opaque, schema-less task document. Values are whatever a JSON
// object decodes to, with integral numbers kept as int64.
type Task map[string]any

var (
	ErrNotObject   = errors.New("json value is not an object")
	ErrNumberRange = errors.New("json number out of range")
)

// DecodeObject reads exactly one JSON object from r.
func DecodeObject(r io.Reader) (Task, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode json: unexpected data after object")
	}

	normalized, err := normalize(raw)
	if err != nil {
		return nil, err
	}
	obj, ok := normalized.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return Task(obj), nil
}

// DecodeObjectBytes is DecodeObject over a byte slice. Empty input and a bare
// null both yield a nil Task.
func DecodeObjectBytes(data []byte) (Task, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	return DecodeObject(bytes.NewReader(trimmed))
}

// normalize converts json.Number leaves to int64 or float64 so stores keep
// integer fields as integers. Numbers outside float64 range are rejected.
func normalize(v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNumberRange, val.String())
		}
		return f, nil
	case map[string]any:
		for k, item := range val {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			val[k] = n
		}
		return val, nil
	case []any:
		for i, item := range val {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			val[i] = n
		}
		return val, nil
	default:
		return v, nil
	}
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	if t == nil {
		return nil
	}
	return Task(cloneValue(map[string]any(t)).(map[string]any))
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case Task:
		return cloneValue(map[string]any(val))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
