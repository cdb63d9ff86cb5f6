package predictor

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownCategory is returned when a name is outside an encoder's closed set.
var ErrUnknownCategory = errors.New("unknown category")

// Encoder maps a closed, ordered set of labels to integer codes.
// The code of a label is its position in the set.
type Encoder struct {
	label  string
	names  []string
	codes  map[string]int
	folded map[string]string
}

// NewEncoder builds an encoder over names. Names must be non-empty and unique
// (case-insensitively).
func NewEncoder(label string, names []string) (*Encoder, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%s encoder: no categories", label)
	}
	e := &Encoder{
		label:  label,
		names:  slices.Clone(names),
		codes:  make(map[string]int, len(names)),
		folded: make(map[string]string, len(names)),
	}
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%s encoder: empty category at index %d", label, i)
		}
		key := strings.ToLower(name)
		if _, dup := e.folded[key]; dup {
			return nil, fmt.Errorf("%s encoder: duplicate category %q", label, name)
		}
		e.names[i] = name
		e.codes[name] = i
		e.folded[key] = name
	}
	return e, nil
}

// Label names the encoded attribute, e.g. "crop".
func (e *Encoder) Label() string {
	return e.label
}

// Encode returns the code of name. The match is exact.
func (e *Encoder) Encode(name string) (int, error) {
	code, ok := e.codes[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s %q", ErrUnknownCategory, e.label, name)
	}
	return code, nil
}

// Canonical resolves user input to a known name, ignoring surrounding
// whitespace and case.
func (e *Encoder) Canonical(raw string) (string, bool) {
	name, ok := e.folded[strings.ToLower(strings.TrimSpace(raw))]
	return name, ok
}

// Names returns the known names in code order.
func (e *Encoder) Names() []string {
	return slices.Clone(e.names)
}

// Len returns the number of known names.
func (e *Encoder) Len() int {
	return len(e.names)
}
