package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// LogRecord is the normalized form of one input line.
type LogRecord struct {
	LineNumber int       `json:"line_number"`
	Raw        string    `json:"raw"`                 // original line text
	Timestamp  time.Time `json:"timestamp,omitzero"`  // zero when unknown
	SourceIP   string    `json:"source_ip,omitempty"` // empty when unknown
	Fields     Fields    `json:"fields"`
	Format     string    `json:"format"` // handler that produced the record
}

// FormatGeneric is the format of records produced by the fallback handler.
const FormatGeneric = "generic"

// Structured reports whether a format-specific handler produced the record.
func (r LogRecord) Structured() bool {
	return r.Format != "" && r.Format != FormatGeneric
}

// HasTimestamp reports whether a timestamp was extracted.
func (r LogRecord) HasTimestamp() bool {
	return !r.Timestamp.IsZero()
}

// Fields is a read-only string map that remembers insertion order. Copies share
// storage, which is safe because nothing mutates a Fields after FieldsBuilder
// hands it out.
type Fields struct {
	keys   []string
	values map[string]string
}

// FieldsBuilder accumulates the fields of a record under construction.
type FieldsBuilder struct {
	keys   []string
	values map[string]string
}

// Set stores v under k. Re-setting a key keeps its original position.
func (b *FieldsBuilder) Set(k, v string) {
	if b.values == nil {
		b.values = make(map[string]string)
	}
	if _, ok := b.values[k]; !ok {
		b.keys = append(b.keys, k)
	}
	b.values[k] = v
}

// Get returns the value stored under k so far.
func (b *FieldsBuilder) Get(k string) (string, bool) {
	v, ok := b.values[k]
	return v, ok
}

// Fields returns the accumulated fields and resets b, so later Sets start a new
// map and never reach the returned value.
func (b *FieldsBuilder) Fields() Fields {
	f := Fields{keys: b.keys, values: b.values}
	*b = FieldsBuilder{}
	return f
}

// Get returns the value stored under k.
func (f Fields) Get(k string) (string, bool) {
	v, ok := f.values[k]
	return v, ok
}

// Keys returns the keys in insertion order.
func (f Fields) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

func (f Fields) Len() int { return len(f.keys) }

// Each calls fn for every pair in insertion order.
func (f Fields) Each(fn func(k, v string)) {
	for _, k := range f.keys {
		fn(k, f.values[k])
	}
}

// MarshalJSON writes the fields as an object, preserving key order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(f.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
