package main

import (
	"os"

	"github.com/woozymasta/geoarea/assets"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Output string `short:"o" long:"out"   description:"Output file path" default:"assets/index.html"`
	Title  string `short:"t" long:"title" description:"Page title" default:"Geographic polygon area"`
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

	page, err := assets.Render(opts.Title)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to render page")
	}

	if err := os.WriteFile(opts.Output, page, 0644); err != nil {
		log.Fatal().Err(err).Str("path", opts.Output).Msg("Failed to write page")
	}

	log.Info().Str("path", opts.Output).Int("bytes", len(page)).Msg("Minify done")
}
