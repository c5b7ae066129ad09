package classes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTableLookup validates index and name lookups on a small table.
func TestTableLookup(t *testing.T) {
	table := NewTable("cat", "dog", "bird")

	require.Equal(t, 3, table.Len())

	name, err := table.Name(1)
	require.NoError(t, err)
	assert.Equal(t, "dog", name)

	class, err := table.Class(2)
	require.NoError(t, err)
	assert.Equal(t, OutputClass{Index: 2, Name: "bird"}, class)

	idx, err := table.Index("cat")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	_, err = table.Index("fish")
	assert.Error(t, err)

	for _, bad := range []int{-1, 3, 100} {
		_, err := table.Name(bad)
		assert.True(t, errors.Is(err, ErrUnknownClass), "index %d should be unknown", bad)
	}

	assert.Equal(t, []string{"cat", "dog", "bird"}, table.Names())
}

// TestCOCO validates the stock table matches the 80 YOLO classes.
func TestCOCO(t *testing.T) {
	table := COCO()
	require.Equal(t, 80, table.Len())

	first, _ := table.Name(0)
	last, _ := table.Name(79)
	assert.Equal(t, "person", first)
	assert.Equal(t, "toothbrush", last)
}

// TestParseNames covers the metadata formats found in exported models and
// dataset files.
func TestParseNames(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		expected []string
	}{
		{
			name:     "Ultralytics metadata dict",
			data:     "{0: 'person', 1: 'bicycle', 2: 'car'}",
			expected: []string{"person", "bicycle", "car"},
		},
		{
			name:     "Unordered dict keys",
			data:     "{2: 'car', 0: 'person', 1: 'bicycle'}",
			expected: []string{"person", "bicycle", "car"},
		},
		{
			name:     "Names with spaces",
			data:     "{0: 'traffic light', 1: 'fire hydrant'}",
			expected: []string{"traffic light", "fire hydrant"},
		},
		{
			name:     "Flow list",
			data:     "['a', 'b']",
			expected: []string{"a", "b"},
		},
		{
			name:     "Dataset file with names map",
			data:     "path: ../datasets/coco\nnames:\n  0: person\n  1: bicycle\n",
			expected: []string{"person", "bicycle"},
		},
		{
			name:     "Dataset file with names list",
			data:     "names:\n  - person\n  - bicycle\n",
			expected: []string{"person", "bicycle"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ParseNames(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, table.Names())
		})
	}
}

// TestParseNamesInvalid ensures gaps and garbage are rejected rather than
// producing a partial table.
func TestParseNamesInvalid(t *testing.T) {
	for _, data := range []string{
		"",
		"{}",
		"{0: 'person', 2: 'car'}",
		"{1: 'person'}",
		"just a string",
		"{0: [1, 2]}",
	} {
		t.Run(data, func(t *testing.T) {
			_, err := ParseNames(data)
			assert.True(t, errors.Is(err, ErrInvalidNames), "got %v", err)
		})
	}
}

// TestLoadFile validates both the plain text and the yaml label files.
func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "labels.txt")
	require.NoError(t, os.WriteFile(txt, []byte("person\n\n bicycle \ncar\n"), 0o600))

	table, err := LoadFile(txt)
	require.NoError(t, err)
	assert.Equal(t, []string{"person", "bicycle", "car"}, table.Names())

	yml := filepath.Join(dir, "data.yaml")
	require.NoError(t, os.WriteFile(yml, []byte("names: {0: person, 1: dog}\n"), 0o600))

	table, err = LoadFile(yml)
	require.NoError(t, err)
	assert.Equal(t, []string{"person", "dog"}, table.Names())

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n\n"), 0o600))
	_, err = LoadFile(empty)
	assert.True(t, errors.Is(err, ErrInvalidNames))

	_, err = LoadFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
