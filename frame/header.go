// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package frame

// Header is an ordered collection of frame headers with unique names.
// Iteration follows insertion order, which is also the order written to the
// wire.
type Header struct {
	fields []field
}

type field struct {
	name  string
	value string
}

// NewHeader creates a header from name/value pairs. A trailing name without
// a value is ignored.
func NewHeader(kv ...string) *Header {
	h := &Header{fields: make([]field, 0, len(kv)/2+4)}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

// Len returns the number of headers.
func (h *Header) Len() int {
	return len(h.fields)
}

func (h *Header) index(name string) int {
	for i := range h.fields {
		if h.fields[i].name == name {
			return i
		}
	}
	return -1
}

// Get returns the value of the named header.
func (h *Header) Get(name string) (string, bool) {
	if i := h.index(name); i >= 0 {
		return h.fields[i].value, true
	}
	return "", false
}

// Contains reports whether the named header is present.
func (h *Header) Contains(name string) bool {
	return h.index(name) >= 0
}

// Set stores the value, replacing an existing header in place.
func (h *Header) Set(name, value string) {
	if i := h.index(name); i >= 0 {
		h.fields[i].value = value
		return
	}
	h.fields = append(h.fields, field{name: name, value: value})
}

// Add appends the header only if no header with that name exists yet, so the
// first occurrence wins. It reports whether the header was stored.
func (h *Header) Add(name, value string) bool {
	if h.index(name) >= 0 {
		return false
	}
	h.fields = append(h.fields, field{name: name, value: value})
	return true
}

// Del removes the named header and returns its previous value.
func (h *Header) Del(name string) (string, bool) {
	i := h.index(name)
	if i < 0 {
		return "", false
	}
	value := h.fields[i].value
	h.fields = append(h.fields[:i], h.fields[i+1:]...)
	return value, true
}

// Range calls fn for every header in order until fn returns false.
func (h *Header) Range(fn func(name, value string) bool) {
	for _, f := range h.fields {
		if !fn(f.name, f.value) {
			return
		}
	}
}

// Names returns the header names in order.
func (h *Header) Names() []string {
	names := make([]string, len(h.fields))
	for i, f := range h.fields {
		names[i] = f.name
	}
	return names
}
