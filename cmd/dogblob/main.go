package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/mdabdk/Image-Blob-Detection/internal/logger"
	"github.com/mdabdk/Image-Blob-Detection/pkg/config"
	"github.com/mdabdk/Image-Blob-Detection/pkg/detection"
	"github.com/mdabdk/Image-Blob-Detection/pkg/imageio"
	"github.com/mdabdk/Image-Blob-Detection/pkg/visualization"
)

// options holds the parsed command line.
type options struct {
	input       string
	configPath  string
	writeConfig string

	octaves   int
	dogLayers int
	sigma     float64
	k         float64
	threshold string
	workers   int
	annotate  string
	blobs     string
	verbose   bool

	// set records which flags were given explicitly
	set map[string]bool
}

func parseFlags(args []string) (*options, error) {
	defaults := config.DefaultConfig()
	opts := &options{set: make(map[string]bool)}

	fs := flag.NewFlagSet("dogblob", flag.ContinueOnError)
	fs.StringVar(&opts.input, "input", "", "Image to search for blobs (png, jpeg, gif, bmp, tiff, webp)")
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&opts.writeConfig, "write-config", "", "Write a default configuration file to this path and exit")
	fs.IntVar(&opts.octaves, "octaves", defaults.Detection.Octaves, "Number of octaves")
	fs.IntVar(&opts.dogLayers, "dog-layers", defaults.Detection.DoGLayers, "Number of DoG layers per octave")
	fs.Float64Var(&opts.sigma, "sigma", defaults.Detection.SigmaInit, "Standard deviation of the first layer of each octave")
	fs.Float64Var(&opts.k, "k", defaults.Detection.KScale, "Ratio between the sigmas of adjacent layers")
	fs.StringVar(&opts.threshold, "threshold", defaults.Detection.Threshold, "Threshold strategy: mean, otsu or yen")
	fs.IntVar(&opts.workers, "workers", defaults.Processing.NumWorkers, "Number of goroutines per stage (default: all available cores)")
	fs.StringVar(&opts.annotate, "annotate", "", "Write the image with blob circles to this path (.png or .jpg)")
	fs.StringVar(&opts.blobs, "blobs", "", "Write the blob records to this YAML file")
	fs.BoolVar(&opts.verbose, "v", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	if opts.input == "" && opts.writeConfig == "" {
		fs.Usage()
		return nil, fmt.Errorf("missing -input")
	}
	return opts, nil
}

// loadConfig reads the configuration file, if any, and applies the flags
// that were set explicitly on top of it.
func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(opts.configPath); err != nil {
			return nil, err
		}
	}

	if opts.set["octaves"] {
		cfg.Detection.Octaves = opts.octaves
	}
	if opts.set["dog-layers"] {
		cfg.Detection.DoGLayers = opts.dogLayers
	}
	if opts.set["sigma"] {
		cfg.Detection.SigmaInit = opts.sigma
	}
	if opts.set["k"] {
		cfg.Detection.KScale = opts.k
	}
	if opts.set["threshold"] {
		cfg.Detection.Threshold = opts.threshold
	}
	if opts.set["workers"] {
		cfg.Processing.NumWorkers = opts.workers
	}
	if opts.set["annotate"] {
		cfg.Output.AnnotatedImage = opts.annotate
	}
	if opts.set["blobs"] {
		cfg.Output.BlobsFile = opts.blobs
	}
	if opts.set["v"] {
		cfg.Output.Verbose = opts.verbose
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(opts *options, log zerolog.Logger) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Output.Verbose {
		log = log.Level(zerolog.DebugLevel)
	}

	params, err := cfg.DetectionParams()
	if err != nil {
		return err
	}
	params.Logger = &log

	detector, err := detection.NewDetector(params)
	if err != nil {
		return err
	}

	img, grid, err := imageio.LoadGrid(opts.input)
	if err != nil {
		return err
	}
	log.Info().
		Str("input", opts.input).
		Int("width", grid.Cols).
		Int("height", grid.Rows).
		Int("workers", params.Workers).
		Msg("image loaded")

	startTime := time.Now()
	blobs, err := detector.Detect(grid)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}
	processingTime := time.Since(startTime)

	fmt.Printf("Detected %d blobs in %.3f seconds\n", len(blobs), processingTime.Seconds())
	fmt.Printf("%6s %6s %6s %6s %6s %8s\n", "x", "y", "radius", "layer", "octave", "sigma")
	for _, b := range blobs {
		fmt.Printf("%6d %6d %6d %6d %6d %8.3f\n", b.X, b.Y, b.Radius, b.Layer, b.Octave, b.Sigma)
	}

	if cfg.Output.BlobsFile != "" {
		if err := visualization.WriteBlobs(blobs, cfg.Output.BlobsFile); err != nil {
			return fmt.Errorf("failed to write blobs: %w", err)
		}
		log.Info().Str("path", cfg.Output.BlobsFile).Msg("blob records saved")
	}

	if cfg.Output.AnnotatedImage != "" {
		viewer := visualization.NewViewer(img, blobs, cfg.Output.CircleThickness)
		if err := viewer.Save(cfg.Output.AnnotatedImage); err != nil {
			return fmt.Errorf("failed to save annotated image: %w", err)
		}
		log.Info().Str("path", cfg.Output.AnnotatedImage).Msg("annotated image saved")
	}

	return nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	log := logger.NewConsole(opts.verbose)

	if opts.writeConfig != "" {
		if err := config.CreateDefaultConfigFile(opts.writeConfig); err != nil {
			log.Fatal().Err(err).Msg("failed to write configuration")
		}
		log.Info().Str("path", opts.writeConfig).Msg("default configuration written")
		if opts.input == "" {
			return
		}
	}

	if err := run(opts, log); err != nil {
		log.Fatal().Err(err).Msg("blob detection failed")
	}
}
