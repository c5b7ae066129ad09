package models

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-seg/models/classes"
	"github.com/nvr-ai/go-seg/models/model"
)

func TestNewModel(t *testing.T) {
	for _, name := range Names() {
		t.Run(string(name), func(t *testing.T) {
			m, err := NewModel(model.NewModelArgs{Name: name, Path: "model.onnx"}, nil)
			require.NoError(t, err)
			assert.Equal(t, name, m.Options().Name)
			assert.Equal(t, "model.onnx", m.Options().Path)
		})
	}
}

func TestNewModelCustomLabels(t *testing.T) {
	labels := classes.NewTable("cat", "dog")
	m, err := NewModel(model.NewModelArgs{Name: model.ModelNameYOLOv8}, labels)
	require.NoError(t, err)
	assert.Equal(t, model.ModelFamilyYOLO, m.Options().Family)
}

func TestNewModelUnsupported(t *testing.T) {
	_, err := NewModel(model.NewModelArgs{Name: "dfine"}, nil)
	assert.True(t, errors.Is(err, ErrUnsupportedModel))
}
