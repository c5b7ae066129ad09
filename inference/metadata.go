package inference

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-seg/models/classes"
)

// NamesMetadataKey is the custom metadata key Ultralytics exports store the
// class names under.
const NamesMetadataKey = "names"

// LoadLabels reads the label table embedded in an exported model. The
// onnxruntime environment must be initialized.
//
// Arguments:
//   - modelPath: The ONNX model file.
//
// Returns:
//   - *classes.Table: The labels.
//   - error: An error if the metadata is missing or malformed.
func LoadLabels(modelPath string) (*classes.Table, error) {
	md, err := ort.GetModelMetadata(modelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read metadata of %s", modelPath)
	}
	defer md.Destroy()

	names, ok, err := md.LookupCustomMetadataMap(NamesMetadataKey)
	if err != nil {
		return nil, errors.Wrap(err, "lookup names metadata")
	}
	if !ok {
		return nil, errors.Wrapf(classes.ErrInvalidNames, "%s has no %q metadata", modelPath, NamesMetadataKey)
	}

	return classes.ParseNames(names)
}
