package main

import (
	"bytes"
	"os"
	"path/filepath"
	"text/template"

	"github.com/woozymasta/kmlview/internal/logger"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Dir string `short:"d" long:"dir" env:"ASSETS_DIR" description:"Assets directory" default:"assets"`
}

type PageData struct {
	CSS string
	JS  string
	SVG string
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

	if err := build(opts.Dir); err != nil {
		log.Fatal().Err(err).Str("dir", opts.Dir).Msg("Failed to build assets")
	}

	log.Info().Str("dir", opts.Dir).Msg("Minify done")
}

func build(dir string) error {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/javascript", js.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)

	read := func(name, mediatype string) (string, error) {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return "", err
		}
		return m.String(mediatype, string(raw))
	}

	var (
		data PageData
		err  error
	)
	if data.CSS, err = read("style.css", "text/css"); err != nil {
		return err
	}
	if data.JS, err = read("script.js", "text/javascript"); err != nil {
		return err
	}
	if data.SVG, err = read("favicon.svg", "image/svg+xml"); err != nil {
		return err
	}

	htmlRaw, err := os.ReadFile(filepath.Join(dir, "index.html.tpl"))
	if err != nil {
		return err
	}

	tmpl, err := template.New("index").Parse(string(htmlRaw))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}

	finalHTML, err := m.String("text/html", buf.String())
	if err != nil {
		return err
	}

	log.Debug().Int("bytes_in", buf.Len()).Int("bytes_out", len(finalHTML)).Msg("Page minified")

	return os.WriteFile(filepath.Join(dir, "index.html"), []byte(finalHTML), 0o644)
}
