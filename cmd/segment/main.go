// Command segment runs a YOLOv8 detection or segmentation model over images
// and writes annotated copies.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-seg/config"
	"github.com/nvr-ai/go-seg/inference"
	"github.com/nvr-ai/go-seg/metrics"
	"github.com/nvr-ai/go-seg/models/classes"
	"github.com/nvr-ai/go-seg/models/postprocess"
	"github.com/nvr-ai/go-seg/render"
	"github.com/nvr-ai/go-seg/util"
)

var (
	// Version is set at build time
	Version = "dev"
)

type flags struct {
	config         string
	model          string
	labels         string
	image          string
	dir            string
	output         string
	scoreThreshold float32
	iouThreshold   float32
	debug          bool
	metricsAddr    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("segment failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "segment",
		Short: "Detect and segment objects in images with a YOLOv8 ONNX model",
		Long: `segment runs a YOLOv8 detection or segmentation model over one image or a
directory of images and writes copies annotated with boxes, labels and
instance masks.

Settings are read from segment.yaml (see --config) and SEGMENT_ environment
variables; flags override both.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.config, "config", "", "Path to configuration file")
	fs.StringVar(&f.model, "model", "", "Path to the ONNX model")
	fs.StringVar(&f.labels, "labels", "", "Path to a class names file")
	fs.StringVar(&f.image, "image", "", "Image to process")
	fs.StringVar(&f.dir, "dir", "", "Directory of images to process")
	fs.StringVarP(&f.output, "output", "o", "segment_output", "Output directory for annotated images")
	fs.Float32Var(&f.scoreThreshold, "score-threshold", postprocess.DefaultScoreThreshold, "Minimum class score")
	fs.Float32Var(&f.iouThreshold, "iou-threshold", postprocess.DefaultIoUThreshold, "NMS overlap threshold")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.MarkFlagsMutuallyExclusive("image", "dir")
	cmd.MarkFlagsOneRequired("image", "dir")

	return cmd
}

func run(cmd *cobra.Command, f flags) error {
	cfg, err := config.Load(f.config)
	if err != nil {
		return err
	}
	applyFlags(cmd, f, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	setupLogging(cfg.LogLevel, f.debug)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var labels *classes.Table
	if cfg.Model.LabelsFile != "" {
		if labels, err = classes.LoadFile(cfg.Model.LabelsFile); err != nil {
			return err
		}
	}

	collector := metrics.NewCollector()
	if cfg.MetricsAddr != "" {
		shutdown, err := serveMetrics(cfg.MetricsAddr, collector)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	engine, err := inference.NewEngineBuilder().
		WithProvider(cfg.Model.Provider).
		WithSharedLibrary(cfg.Model.SharedLibrary).
		WithPipelineOptions(
			postprocess.WithLogger(log.Logger),
			postprocess.WithObserver(collector),
		).
		WithModel(cfg.ModelArgs(), labels).
		Build()
	if err != nil {
		return errors.Wrap(err, "create engine")
	}
	defer engine.Close()

	files, err := inputFiles(f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.output, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := process(ctx, engine, cfg.Render, file, f.output); err != nil {
			return errors.Wrapf(err, "process %s", file.Path)
		}
	}

	log.Info().Int("images", len(files)).Str("output", f.output).Msg("done")

	return nil
}

// applyFlags overrides configuration values with the flags that were set.
func applyFlags(cmd *cobra.Command, f flags, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("model") {
		cfg.Model.Path = f.model
	}
	if fs.Changed("labels") {
		cfg.Model.LabelsFile = f.labels
	}
	if fs.Changed("score-threshold") {
		cfg.Postprocess.ScoreThreshold = f.scoreThreshold
	}
	if fs.Changed("iou-threshold") {
		cfg.Postprocess.IoUThreshold = f.iouThreshold
	}
	if fs.Changed("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}
}

func setupLogging(level string, debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		return
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func serveMetrics(addr string, collector *metrics.Collector) (func(), error) {
	reg := prometheus.NewRegistry()
	if err := collector.Register(reg); err != nil {
		return nil, errors.Wrap(err, "register metrics")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func inputFiles(f flags) ([]util.ImageFile, error) {
	if f.dir != "" {
		files, err := util.LoadDirectoryImageFiles(f.dir)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, errors.Errorf("no images in %s", f.dir)
		}
		return files, nil
	}

	data, err := os.ReadFile(f.image)
	if err != nil {
		return nil, errors.Wrap(err, "read image")
	}
	return []util.ImageFile{{Path: f.image, Data: data}}, nil
}

func process(ctx context.Context, engine inference.Engine, rc config.RenderConfig, file util.ImageFile, outDir string) error {
	mat, err := gocv.IMDecode(file.Data, gocv.IMReadColor)
	if err != nil {
		return errors.Wrap(err, "decode image")
	}
	defer mat.Close()
	if mat.Empty() {
		return errors.New("empty image")
	}

	img, err := mat.ToImage()
	if err != nil {
		return errors.Wrap(err, "convert image")
	}

	start := time.Now()
	out, err := engine.Predict(ctx, img)
	if err != nil {
		return err
	}

	w, h := engine.InputSize()
	sx, sy := inference.ScaleFactors(mat.Cols(), mat.Rows(), w, h)

	if out.HasMasks() {
		err := render.SegmentMasks(&mat, out, sx, sy, render.MaskOptions{
			Threshold: rc.MaskThreshold,
			CropToBox: rc.CropMasks,
		})
		if err != nil {
			return err
		}
	}
	render.DetectionBoxes(&mat, out.Detections, sx, sy, render.DefaultFont(), rc.Thickness)

	dst := filepath.Join(outDir, file.Name())
	if !gocv.IMWrite(dst, mat) {
		return errors.Errorf("write %s", dst)
	}

	for _, d := range out.Detections {
		log.Debug().Str("image", file.Path).Stringer("detection", d).Send()
	}
	log.Info().
		Str("image", file.Path).
		Int("detections", len(out.Detections)).
		Bool("masks", out.HasMasks()).
		Dur("elapsed", time.Since(start)).
		Msg("processed image")

	return nil
}
