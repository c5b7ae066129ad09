// Package classes - Label tables mapping model class indices to names.
package classes

import (
	"github.com/pkg/errors"
)

// ErrUnknownClass is returned when a class index has no entry in a Table.
// The model emitted a class its metadata does not describe, which is a data
// integrity problem upstream.
var ErrUnknownClass = errors.New("class index not in label table")

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int `json:"index" yaml:"index"`
	// The human-readable label.
	Name string `json:"name" yaml:"name"`
}

// Table is a read-only, contiguous mapping from class index (0..Len()-1) to
// label. It is built once when the model is loaded and shared by every call
// to the pipeline, so it must never be mutated after construction.
type Table struct {
	classes []OutputClass
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// NewTable creates a Table from names ordered by class index.
//
// Arguments:
//   - names: The label of class i at position i.
//
// Returns:
//   - *Table: The label table.
func NewTable(names ...string) *Table {
	t := &Table{
		classes:   make([]OutputClass, len(names)),
		nameToIdx: make(map[string]int, len(names)),
	}
	for i, name := range names {
		t.classes[i] = OutputClass{Index: i, Name: name}
		if _, dup := t.nameToIdx[name]; !dup {
			t.nameToIdx[name] = i
		}
	}

	return t
}

// Len returns the number of classes, which is also the number of score
// channels the model output must carry.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.classes)
}

// Class returns the OutputClass for an index.
//
// Arguments:
//   - idx: The class index emitted by the model.
//
// Returns:
//   - OutputClass: The class.
//   - error: ErrUnknownClass if idx is outside the table.
func (t *Table) Class(idx int) (OutputClass, error) {
	if idx < 0 || idx >= t.Len() {
		return OutputClass{}, errors.Wrapf(ErrUnknownClass, "index %d, table holds %d classes", idx, t.Len())
	}
	return t.classes[idx], nil
}

// Name returns the label for an index.
func (t *Table) Name(idx int) (string, error) {
	c, err := t.Class(idx)
	if err != nil {
		return "", err
	}
	return c.Name, nil
}

// Index returns the first class index carrying the given name.
func (t *Table) Index(name string) (int, error) {
	idx, ok := t.nameToIdx[name]
	if !ok {
		return -1, errors.Errorf("name %q not found in label table", name)
	}
	return idx, nil
}

// Names returns a copy of the labels ordered by index.
func (t *Table) Names() []string {
	names := make([]string, t.Len())
	for i, c := range t.classes {
		names[i] = c.Name
	}
	return names
}
