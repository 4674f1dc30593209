package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/woozymasta/kmlview/internal/dataset"
	"github.com/woozymasta/kmlview/internal/geo"
	"github.com/woozymasta/kmlview/internal/logger"
	"github.com/woozymasta/kmlview/internal/render"
	"github.com/woozymasta/kmlview/internal/report"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Input       string `short:"i" long:"in"           description:"Input file path (.kml, .geojson). Reads from stdin if empty"`
	Name        string `short:"n" long:"name"         description:"File name used to detect the format of stdin input" default:"stdin.kml"`
	Output      string `short:"o" long:"out"          description:"Output file path. Writes to stdout if empty"`
	Format      string `short:"f" long:"format"       description:"Output format" choice:"table" choice:"json" choice:"yaml" default:"table"`
	GeoJSON     string `short:"g" long:"geojson"      description:"Write the converted GeoJSON to this path"`
	Preview     string `short:"P" long:"preview"      description:"Write a WebP preview image to this path"`
	Width       int    `long:"preview-width"          description:"Preview width in pixels" default:"1024"`
	Height      int    `long:"preview-height"         description:"Preview height in pixels" default:"768"`
	SummaryOnly bool   `short:"s" long:"summary-only" description:"Print only the per type counts"`
}

type document struct {
	File     string         `json:"file" yaml:"file"`
	Format   dataset.Format `json:"format" yaml:"format"`
	Features int            `json:"features" yaml:"features"`
	Summary  geo.Summary    `json:"summary" yaml:"summary"`
	Detailed geo.Stats      `json:"detailed,omitempty" yaml:"detailed,omitempty"`
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

	if err := run(opts); err != nil {
		log.Fatal().Err(err).Msg("Failed to analyze file")
	}
}

func run(opts Options) error {
	// Read Input
	var (
		inputData []byte
		err       error
	)
	name := opts.Name
	if opts.Input != "" {
		name = filepath.Base(opts.Input)
		inputData, err = os.ReadFile(opts.Input)
	} else {
		inputData, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	ds, err := dataset.Load(name, inputData)
	if err != nil {
		return fmt.Errorf("error parsing %s: %w", name, err)
	}

	if opts.GeoJSON != "" {
		data, err := json.MarshalIndent(ds.FeatureCollection(), "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.GeoJSON, data, 0o644); err != nil {
			return err
		}
		log.Info().Str("path", opts.GeoJSON).Msg("GeoJSON written")
	}

	if opts.Preview != "" {
		if err := writePreview(ds, opts); err != nil {
			return err
		}
		log.Info().Str("path", opts.Preview).Msg("Preview written")
	}

	out, err := format(ds, opts)
	if err != nil {
		return err
	}

	if opts.Output == "" {
		_, err = io.WriteString(os.Stdout, out)
		return err
	}
	if err := os.WriteFile(opts.Output, []byte(out), 0o644); err != nil {
		return err
	}

	log.Info().
		Str("path", opts.Output).
		Str("format", opts.Format).
		Int("types", len(ds.Summary)).
		Msg("Report written")

	return nil
}

func format(ds *dataset.Dataset, opts Options) (string, error) {
	if opts.Format == "table" {
		parts := []string{report.Summary(ds.Summary)}
		if !opts.SummaryOnly {
			parts = append(parts, report.Detail(ds.Stats))
		}
		return strings.Join(parts, "\n") + "\n", nil
	}

	doc := document{
		File:     ds.Name,
		Format:   ds.Format,
		Features: len(ds.Features),
		Summary:  ds.Summary,
	}
	if !opts.SummaryOnly {
		doc.Detailed = ds.Stats
	}

	var (
		data []byte
		err  error
	)
	if opts.Format == "yaml" {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(data), nil
}

func writePreview(ds *dataset.Dataset, opts Options) error {
	ro := render.DefaultOptions()
	if opts.Width > 0 {
		ro.Width = opts.Width
	}
	if opts.Height > 0 {
		ro.Height = opts.Height
	}

	f, err := os.Create(opts.Preview)
	if err != nil {
		return err
	}

	// We care about write errors on close
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("path", opts.Preview).Msg("Failed to close file")
		}
	}()

	return render.EncodeWebP(f, render.Render(ds, ro))
}
