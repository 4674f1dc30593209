// Package config handles configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
type Config struct {
	Attribution string     `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	TileURL     string     `yaml:"tile_url" json:"tile_url" validate:"required,startswith=http,contains={z}"`
	Preview     Preview    `yaml:"preview" json:"-"`
	Center      [2]float64 `yaml:"center" json:"center"` // [Lat, Lon] as the map widget expects
	Zoom        int        `yaml:"zoom" json:"zoom" validate:"min=0,max=22"`
	MaxUploadMB int        `yaml:"max_upload_mb" json:"max_upload_mb" validate:"min=1,max=1024"`
}

// Preview configures the server side rendered image.
type Preview struct {
	Background string `yaml:"background" validate:"hexcolor,len=7"`
	Width      int    `yaml:"width" validate:"min=16,max=8192"`
	Height     int    `yaml:"height" validate:"min=16,max=8192"`
}

// Default returns the built-in configuration: OpenStreetMap tiles centered
// on [20, 0] at zoom 2.
func Default() *Config {
	return &Config{
		Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
		TileURL:     "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		Center:      [2]float64{20, 0},
		Zoom:        2,
		MaxUploadMB: 32,
		Preview: Preview{
			Width:      1024,
			Height:     768,
			Background: "#ffffff",
		},
	}
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Load reads the YAML configuration file from the specified path on top of
// the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("Configuration file not found, using defaults")
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
