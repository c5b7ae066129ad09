package classes

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalidNames is returned when label metadata cannot be turned into a
// contiguous Table.
var ErrInvalidNames = errors.New("invalid class names")

// ParseNames builds a Table from the "names" metadata that Ultralytics writes
// into exported models, e.g.
//
//	{0: 'person', 1: 'bicycle', 2: 'car'}
//
// That python dict literal is valid YAML flow syntax, so the same parser also
// accepts a plain list (["person", "bicycle"]) and a dataset file carrying a
// top-level "names" key in either form.
//
// Arguments:
//   - data: The metadata string.
//
// Returns:
//   - *Table: The label table.
//   - error: ErrInvalidNames if the data is malformed or the indices are not
//     exactly 0..n-1.
func ParseNames(data string) (*Table, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(data), &root); err != nil {
		return nil, errors.Wrapf(ErrInvalidNames, "parse: %v", err)
	}
	if len(root.Content) == 0 {
		return nil, errors.Wrap(ErrInvalidNames, "empty document")
	}

	node := root.Content[0]
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == "names" {
				node = node.Content[i+1]
				break
			}
		}
	}

	switch node.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return nil, errors.Wrapf(ErrInvalidNames, "decode list: %v", err)
		}
		if len(names) == 0 {
			return nil, errors.Wrap(ErrInvalidNames, "no classes")
		}
		return NewTable(names...), nil

	case yaml.MappingNode:
		var byIndex map[int]string
		if err := node.Decode(&byIndex); err != nil {
			return nil, errors.Wrapf(ErrInvalidNames, "decode map: %v", err)
		}
		if len(byIndex) == 0 {
			return nil, errors.Wrap(ErrInvalidNames, "no classes")
		}
		names := make([]string, len(byIndex))
		for i := range names {
			name, ok := byIndex[i]
			if !ok {
				return nil, errors.Wrapf(ErrInvalidNames, "missing class index %d of %d", i, len(byIndex))
			}
			names[i] = name
		}
		return NewTable(names...), nil

	default:
		return nil, errors.Wrapf(ErrInvalidNames, "unexpected yaml node kind %d", node.Kind)
	}
}

// LoadFile reads a label table from disk.
//
// Files ending in .yaml or .yml go through ParseNames; anything else is read
// as plain text with one label per line, blank lines ignored.
//
// Arguments:
//   - path: The path of the labels file.
//
// Returns:
//   - *Table: The label table.
//   - error: An error if the file cannot be read or parsed.
func LoadFile(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read labels file")
		}
		return ParseNames(string(data))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open labels file")
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read labels file")
	}
	if len(names) == 0 {
		return nil, errors.Wrapf(ErrInvalidNames, "%s holds no labels", path)
	}

	return NewTable(names...), nil
}
