package protocol

import "strings"

// Field is one "key: value" line of an MPD response. Keys repeat for
// list-style responses, so ordered fields are the canonical form and
// map views are derived.
type Field struct {
	Key   string
	Value string
}

// Response is a complete successful reply to one command: all fields
// received before the terminating OK line. Immutable once returned.
type Response struct {
	fields []Field
}

// NewResponse builds a response from ordered fields. Used by tests and
// the cache; the connection constructs responses directly from the wire.
func NewResponse(fields ...Field) *Response {
	return &Response{fields: fields}
}

// Fields returns the ordered key/value pairs of the response
func (r *Response) Fields() []Field {
	return r.fields
}

// Get returns the first value for key, or "" if absent
func (r *Response) Get(key string) string {
	for _, f := range r.fields {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

// Has reports whether the response contains at least one field with key
func (r *Response) Has(key string) bool {
	for _, f := range r.fields {
		if f.Key == key {
			return true
		}
	}
	return false
}

// GetAll returns every value for key in wire order
func (r *Response) GetAll(key string) []string {
	var values []string
	for _, f := range r.fields {
		if f.Key == key {
			values = append(values, f.Value)
		}
	}
	return values
}

// Attrs flattens the response into a map, keeping the first value for
// repeated keys. Suitable for single-object responses like status.
func (r *Response) Attrs() map[string]string {
	attrs := make(map[string]string, len(r.fields))
	for _, f := range r.fields {
		if _, ok := attrs[f.Key]; !ok {
			attrs[f.Key] = f.Value
		}
	}
	return attrs
}

// parseField splits a "key: value" line. Returns ok=false for lines
// that do not follow the field format.
func parseField(line string) (Field, bool) {
	idx := strings.Index(line, ": ")
	if idx < 1 {
		// "key:" with an empty value is still valid
		if strings.HasSuffix(line, ":") && len(line) > 1 {
			return Field{Key: line[:len(line)-1]}, true
		}
		return Field{}, false
	}
	return Field{Key: line[:idx], Value: line[idx+2:]}, true
}
