package subject

import (
	"slices"
	"strings"

	berrors "github.com/letsencrypt/certreq/errors"
)

// Attributes holds the values of a subject, keyed by schema key. A
// single-valued attribute holds at most one value; a multi-valued attribute
// keeps its values in the order they were added. Empty values are never
// stored.
type Attributes struct {
	values map[string][]string
}

// NewAttributes returns an empty set of attributes.
func NewAttributes() *Attributes {
	return &Attributes{values: make(map[string][]string)}
}

// Add records value for attr. For a single-valued attribute the value
// replaces any previous one; for a multi-valued attribute it is appended.
// Values are written one per line into the request configuration, so a value
// containing a line break is a Malformed error.
func (a *Attributes) Add(attr Attribute, value string) error {
	if strings.ContainsAny(value, "\r\n") {
		return berrors.MalformedError("value for %s contains a line break: %q", attr.CanonicalName, value)
	}
	if value == "" {
		return nil
	}
	key := strings.ToLower(attr.Key)
	if attr.MultiValued {
		a.values[key] = append(a.values[key], value)
		return nil
	}
	a.values[key] = []string{value}
	return nil
}

// Reset removes every value recorded for attr.
func (a *Attributes) Reset(attr Attribute) {
	delete(a.values, strings.ToLower(attr.Key))
}

// Values returns a copy of the values recorded for key, in the order they
// were added.
func (a *Attributes) Values(key string) []string {
	return slices.Clone(a.values[strings.ToLower(key)])
}

// Populated reports whether at least one DN attribute has a value.
func (a *Attributes) Populated() bool {
	for _, attr := range DNAttributes() {
		if len(a.values[attr.Key]) > 0 {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of a.
func (a *Attributes) Clone() *Attributes {
	out := NewAttributes()
	for k, v := range a.values {
		out.values[k] = slices.Clone(v)
	}
	return out
}

// Equal reports whether a and b hold the same values in the same order.
func (a *Attributes) Equal(b *Attributes) bool {
	for _, attr := range AllAttributes() {
		if !slices.Equal(a.values[attr.Key], b.values[attr.Key]) {
			return false
		}
	}
	return true
}

// Pair is one attribute/value pair of a subject.
type Pair struct {
	Attribute Attribute
	// Index is the zero-based occurrence of this value within its attribute.
	Index int
	Value string
}

// Pairs flattens a into attribute/value pairs in schema order, then
// insertion order within each multi-valued attribute. It is the only
// iteration order used for rendering.
func (a *Attributes) Pairs() []Pair {
	var out []Pair
	for _, attr := range DNAttributes() {
		for i, v := range a.values[attr.Key] {
			out = append(out, Pair{Attribute: attr, Index: i, Value: v})
		}
	}
	return out
}
