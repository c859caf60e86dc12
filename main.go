package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/protomaps/go-tzraster/tzraster"
	"go.uber.org/zap"
	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type globals struct {
	ctx    context.Context
	logger *zap.Logger
}

type renderCmd struct {
	Input       string `arg:"" optional:"" help:"Timezone dataset (.shp, .zip, .geojson, .json or .gpkg)." default:"combined-shapefile-with-oceans.shp"`
	Shapefile   string `help:"Same as the input argument; takes precedence when set." env:"TZRASTER_SHAPEFILE"`
	Bucket      string `help:"Remote bucket holding the dataset." env:"TZRASTER_BUCKET"`
	Outdir      string `default:"." type:"path" help:"The folder to place the output data files in." env:"TZRASTER_OUTDIR"`
	Height      int    `default:"2000" help:"The height of the output image; the width is twice this. Should be an even number." env:"TZRASTER_HEIGHT"`
	Field       string `default:"tzid" help:"Attribute holding the timezone identifier." env:"TZRASTER_FIELD"`
	Colors      string `default:"hash" enum:"hash,stride,random" help:"Color strategy: hash (SHA-1 of the identifier), stride (fixed step over sorted identifiers) or random." env:"TZRASTER_COLORS"`
	Seed        int64  `default:"-1" help:"Seed for the random color strategy; negative draws a fresh seed." env:"TZRASTER_SEED"`
	Workers     int    `default:"0" help:"Render threads, 0 for one per CPU." env:"TZRASTER_WORKERS"`
	MetricsFile string `type:"path" help:"Write run metrics in Prometheus text format to this file." env:"TZRASTER_METRICS_FILE"`
}

func (c *renderCmd) Run(g *globals) error {
	strategy, err := tzraster.ParseColorStrategy(c.Colors)
	if err != nil {
		return err
	}
	input := c.Input
	if c.Shapefile != "" {
		input = c.Shapefile
	}
	_, err = tzraster.Compile(g.ctx, g.logger, tzraster.CompileOptions{
		Bucket:      c.Bucket,
		Input:       input,
		Field:       c.Field,
		Outdir:      c.Outdir,
		Height:      c.Height,
		Strategy:    strategy,
		Seed:        uint64(c.Seed),
		Seeded:      c.Seed >= 0,
		Workers:     c.Workers,
		MetricsFile: c.MetricsFile,
	})
	return err
}

type showCmd struct {
	Input     string `arg:"" help:"Timezone dataset."`
	Bucket    string `help:"Remote bucket holding the dataset." env:"TZRASTER_BUCKET"`
	Field     string `default:"tzid" help:"Attribute holding the timezone identifier." env:"TZRASTER_FIELD"`
	Timezones bool   `help:"List every identifier with its normalized form."`
}

func (c *showCmd) Run(g *globals) error {
	return tzraster.Show(g.ctx, g.logger, os.Stdout, c.Bucket, c.Input, c.Field, c.Timezones)
}

type verifyCmd struct {
	Outdir        string  `arg:"" optional:"" default:"." type:"existingdir" help:"Folder holding timezones.json and timezones.png."`
	Reference     bool    `help:"Also compare a sample of pixels with the timezone data bundled with tzf. Assumes a world extent." env:"TZRASTER_REFERENCE"`
	ReferenceStep int     `default:"4" help:"Sample every n-th pixel in both directions for the reference check." env:"TZRASTER_REFERENCE_STEP"`
	MinAgreement  float64 `default:"0.9" help:"Fail the reference check below this share of agreeing samples." env:"TZRASTER_MIN_AGREEMENT"`
}

func (c *verifyCmd) Run(g *globals) error {
	if _, err := tzraster.Verify(g.logger, os.Stdout, c.Outdir); err != nil {
		return err
	}
	if !c.Reference {
		return nil
	}
	_, err := tzraster.VerifyReference(g.logger, os.Stdout, c.Outdir, tzraster.WorldExtent, c.ReferenceStep, c.MinAgreement)
	return err
}

type uploadCmd struct {
	Outdir         string `arg:"" type:"existingdir" help:"Folder holding timezones.json and timezones.png."`
	Bucket         string `required:"" help:"Bucket to upload to." env:"TZRASTER_UPLOAD_BUCKET"`
	Prefix         string `help:"Key prefix inside the bucket." env:"TZRASTER_UPLOAD_PREFIX"`
	MaxConcurrency int    `default:"2" help:"# of upload threads" env:"TZRASTER_UPLOAD_CONCURRENCY"`
}

func (c *uploadCmd) Run(g *globals) error {
	return tzraster.Upload(g.ctx, g.logger, c.Outdir, c.Bucket, c.Prefix, c.MaxConcurrency)
}

type versionCmd struct{}

func (c *versionCmd) Run(g *globals) error {
	fmt.Printf("tzraster %s, commit %s, built at %s\n", version, commit, date)
	return nil
}

var cli struct {
	Config kong.ConfigFlag `help:"JSON file with flag defaults."`
	Quiet  bool            `help:"Only log warnings and errors, and hide progress bars." env:"TZRASTER_QUIET"`

	Render  renderCmd  `cmd:"" help:"Render a timezone dataset to timezones.png and timezones.json."`
	Show    showCmd    `cmd:"" help:"Inspect a timezone dataset."`
	Verify  verifyCmd  `cmd:"" help:"Check that a mapping file and image belong together."`
	Upload  uploadCmd  `cmd:"" help:"Upload the rendered artifacts to remote storage."`
	Version versionCmd `cmd:"" help:"Show the program version."`
}

func newLogger(quiet bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	if quiet {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

func main() {
	if len(os.Args) < 2 {
		os.Args = append(os.Args, "--help")
	}

	ctx := kong.Parse(&cli,
		kong.Name("tzraster"),
		kong.Description("Render timezone boundaries to a color-keyed PNG and its JSON lookup."),
		kong.Configuration(kong.JSON, "~/.config/tzraster.json"),
	)

	logger, err := newLogger(cli.Quiet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger, %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cli.Quiet {
		tzraster.SetProgressWriter(nil)
	}
	tzraster.SetBuildInfo(version, commit, date)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := ctx.Run(&globals{ctx: runCtx, logger: logger}); err != nil {
		logger.Fatal("Failed to "+ctx.Command(), zap.Error(err))
	}
}
