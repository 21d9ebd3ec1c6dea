package main

import (
	"os"

	"github.com/woozymasta/geoarea/internal/area"
	"github.com/woozymasta/geoarea/internal/config"
	"github.com/woozymasta/geoarea/internal/geo"
	"github.com/woozymasta/geoarea/internal/logger"
	"github.com/woozymasta/geoarea/internal/processor"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string   `short:"c" long:"config"      env:"CONFIG_FILE" description:"Configuration file with shapes to measure"`
	Name        string   `short:"n" long:"name"        description:"Name of the shape given with --point" default:"shape"`
	Unit        string   `short:"u" long:"unit"        env:"AREA_UNIT"   description:"Area unit (m2, ha, mu)"`
	Output      string   `short:"o" long:"out"         description:"Output file path. Writes to stdout if empty"`
	Format      string   `short:"f" long:"format"      description:"Output format" choice:"json" choice:"yaml" default:"json"`
	Points      []string `short:"P" long:"point"       description:"Coordinate as \"lng,lat\", repeat for every vertex"`
	Limit       []string `short:"l" long:"limit"       description:"Limit processing to specific shape names"`
	Concurrency int      `short:"p" long:"concurrency" env:"CONCURRENCY" description:"Concurrency" default:"4"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg := config.Default()
	if opts.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigFile); err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
	}

	unit := cfg.Unit
	if opts.Unit != "" {
		u, err := area.ParseUnit(opts.Unit)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid unit")
		}
		unit = u
	}

	shapes := cfg.Shapes
	if len(opts.Points) > 0 {
		shape, err := pointShape(opts.Name, opts.Points)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid --point")
		}
		shapes = append(shapes, shape)
	}
	shapes = filterShapes(shapes, opts.Limit)

	if len(shapes) == 0 {
		log.Fatal().Msg("Nothing to measure, pass --point or a configuration with shapes")
	}

	log.Info().
		Int("shapes_total", len(cfg.Shapes)).
		Int("shapes_queued", len(shapes)).
		Str("unit", unit.Label()).
		Msg("Starting calculation")

	fc := processor.ProcessShapes(shapes, opts.Concurrency, unit)

	var err error
	if opts.Output != "" {
		err = processor.Save(opts.Output, fc, opts.Format)
	} else {
		err = processor.Encode(os.Stdout, fc, opts.Format)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to write result")
	}

	log.Info().Str("out", opts.Output).Msg("Calculation finished")
}

// pointShape builds a shape from command line points, rejecting it whole
// when any point is invalid.
func pointShape(name string, points []string) (config.Shape, error) {
	list, err := geo.ParseList(points)
	if err != nil {
		return config.Shape{}, err
	}

	normalized := make([]string, len(list))
	for i, c := range list {
		normalized[i] = c.String()
	}
	return config.Shape{Name: name, Points: normalized}, nil
}

// filterShapes keeps shapes named in limit, in configuration order.
func filterShapes(shapes []config.Shape, limit []string) []config.Shape {
	if len(limit) == 0 {
		return shapes
	}

	wanted := make(map[string]bool, len(limit))
	for _, name := range limit {
		wanted[name] = true
	}

	seen := make(map[string]bool)
	out := make([]config.Shape, 0, len(limit))
	for _, s := range shapes {
		if wanted[s.Name] && !seen[s.Name] {
			seen[s.Name] = true
			out = append(out, s)
		}
	}

	for _, name := range limit {
		if !seen[name] {
			log.Error().Str("name", name).Msg("Shape specified in --limit not found")
		}
	}
	return out
}
