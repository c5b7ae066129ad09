// Package config loads the segment configuration from YAML files and
// SEGMENT_ environment variables.
package config

import (
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/nvr-ai/go-seg/inference/providers"
	"github.com/nvr-ai/go-seg/models"
	"github.com/nvr-ai/go-seg/models/model"
	"github.com/nvr-ai/go-seg/models/postprocess"
)

// EnvPrefix prefixes environment overrides, e.g. SEGMENT_MODEL_PATH.
const EnvPrefix = "SEGMENT"

// Config is the complete segment configuration.
type Config struct {
	Model       ModelConfig        `json:"model" yaml:"model" mapstructure:"model"`
	Postprocess postprocess.Config `json:"postprocess" yaml:"postprocess" mapstructure:"postprocess"`
	Render      RenderConfig       `json:"render" yaml:"render" mapstructure:"render"`
	// LogLevel is a zerolog level name.
	LogLevel string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	// MetricsAddr serves /metrics when set, e.g. ":9090".
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr" mapstructure:"metrics_addr"`
}

// ModelConfig selects the model and how it is run.
type ModelConfig struct {
	Name        model.Name      `json:"name" yaml:"name" mapstructure:"name"`
	Path        string          `json:"path" yaml:"path" mapstructure:"path"`
	InputWidth  int             `json:"input_width" yaml:"input_width" mapstructure:"input_width"`
	InputHeight int             `json:"input_height" yaml:"input_height" mapstructure:"input_height"`
	Precision   model.Precision `json:"precision" yaml:"precision" mapstructure:"precision"`
	// LabelsFile is a names file; empty reads the labels from the model.
	LabelsFile string `json:"labels_file" yaml:"labels_file" mapstructure:"labels_file"`
	// SharedLibrary is the onnxruntime library path.
	SharedLibrary string           `json:"shared_library" yaml:"shared_library" mapstructure:"shared_library"`
	Provider      providers.Config `json:"provider" yaml:"provider" mapstructure:"provider"`
}

// RenderConfig controls the annotated output images.
type RenderConfig struct {
	// MaskThreshold is the mask logit cutoff.
	MaskThreshold float32 `json:"mask_threshold" yaml:"mask_threshold" mapstructure:"mask_threshold"`
	// CropMasks clears mask pixels outside their boxes.
	CropMasks bool `json:"crop_masks" yaml:"crop_masks" mapstructure:"crop_masks"`
	Thickness int  `json:"thickness" yaml:"thickness" mapstructure:"thickness"`
}

// ModelArgs returns the model arguments with the post-processing section
// applied.
func (c *Config) ModelArgs() model.NewModelArgs {
	pp := c.Postprocess
	return model.NewModelArgs{
		Name:        c.Model.Name,
		Path:        c.Model.Path,
		InputWidth:  c.Model.InputWidth,
		InputHeight: c.Model.InputHeight,
		Precision:   c.Model.Precision,
		Postprocess: &pp,
	}
}

// Load reads the configuration.
//
// Arguments:
//   - configPath: An explicit file. Empty searches for segment.yaml in the
//     working directory, /etc/go-seg and $HOME/.go-seg, and runs on
//     defaults when none is found.
//
// Returns:
//   - *Config: The validated configuration.
//   - error: An error reading, decoding or validating it.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	} else {
		v.SetConfigName("segment")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/go-seg")
		v.AddConfigPath("$HOME/.go-seg")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "failed to read config file")
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	pp := postprocess.DefaultConfig()
	prov := providers.DefaultConfig()

	v.SetDefault("model.name", string(model.ModelNameYOLOv8Seg))
	v.SetDefault("model.path", "")
	v.SetDefault("model.input_width", model.DefaultInputSize)
	v.SetDefault("model.input_height", model.DefaultInputSize)
	v.SetDefault("model.precision", string(model.PrecisionFP32))
	v.SetDefault("model.labels_file", "")
	v.SetDefault("model.shared_library", "")
	v.SetDefault("model.provider.backend", string(prov.Backend))
	v.SetDefault("model.provider.intra_op_threads", prov.IntraOpThreads)
	v.SetDefault("model.provider.inter_op_threads", prov.InterOpThreads)

	v.SetDefault("postprocess.score_threshold", pp.ScoreThreshold)
	v.SetDefault("postprocess.iou_threshold", pp.IoUThreshold)
	v.SetDefault("postprocess.mask_channels", pp.MaskChannels)
	v.SetDefault("postprocess.max_detections", pp.MaxDetections)

	v.SetDefault("render.mask_threshold", 0)
	v.SetDefault("render.crop_masks", true)
	v.SetDefault("render.thickness", 2)

	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", "")
}

// Validate checks the configuration and normalizes the backend and precision
// names.
func (c *Config) Validate() error {
	backend, err := providers.ParseBackend(string(c.Model.Provider.Backend))
	if err != nil {
		return err
	}
	c.Model.Provider.Backend = backend
	c.Model.Precision = model.ParsePrecision(string(c.Model.Precision))

	if !slices.Contains(models.Names(), c.Model.Name) {
		return errors.Wrapf(models.ErrUnsupportedModel, "model.name %q", c.Model.Name)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrapf(err, "log_level %q", c.LogLevel)
	}

	pp := c.Postprocess
	if pp.ScoreThreshold < 0 || pp.ScoreThreshold > 1 {
		return errors.Errorf("postprocess.score_threshold must be in [0, 1], got %v", pp.ScoreThreshold)
	}
	if pp.IoUThreshold < 0 || pp.IoUThreshold > 1 {
		return errors.Errorf("postprocess.iou_threshold must be in [0, 1], got %v", pp.IoUThreshold)
	}
	if pp.MaskChannels < 0 {
		return errors.Errorf("postprocess.mask_channels must not be negative, got %d", pp.MaskChannels)
	}
	if pp.MaxDetections < 0 {
		return errors.Errorf("postprocess.max_detections must not be negative, got %d", pp.MaxDetections)
	}
	if c.Model.InputWidth <= 0 || c.Model.InputHeight <= 0 {
		return errors.Errorf("model input size must be positive, got %dx%d", c.Model.InputWidth, c.Model.InputHeight)
	}
	if c.Render.Thickness <= 0 {
		return errors.Errorf("render.thickness must be positive, got %d", c.Render.Thickness)
	}

	return nil
}
