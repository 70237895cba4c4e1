// Package config loads graphview settings from YAML and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-graphview/pkg/validation"
	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// ErrInvalid wraps every validation failure returned by Load and Validate
var ErrInvalid = errors.New("invalid configuration")

// Source kinds
const (
	SourceFile     = "file"
	SourceHTTP     = "http"
	SourcePostgres = "postgres"
	SourceS3       = "s3"
)

// Initial layouts
const (
	LayoutRandom       = "random"
	LayoutCircular     = "circular"
	LayoutHierarchical = "hierarchical"
)

// Config is the complete graphview configuration
type Config struct {
	Canvas    CanvasConfig                 `yaml:"canvas"`
	Forces    visualization.ForceConfig    `yaml:"forces"`
	Viewport  visualization.ViewportConfig `yaml:"viewport"`
	Scheduler SchedulerConfig              `yaml:"scheduler"`
	Layout    LayoutConfig                 `yaml:"layout"`
	Render    RenderConfig                 `yaml:"render"`
	Source    SourceConfig                 `yaml:"source"`
	Server    ServerConfig                 `yaml:"server"`
	Notify    NotifyConfig                 `yaml:"notify"`
	LogLevel  string                       `yaml:"log_level"`
	LogFile   string                       `yaml:"log_file"`
}

// CanvasConfig is the model-space drawing area
type CanvasConfig struct {
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	NodeRadius float64 `yaml:"node_radius"`
	Padding    float64 `yaml:"padding"`
}

// SchedulerConfig drives the frame loop
type SchedulerConfig struct {
	FPS       int  `yaml:"fps"`
	AutoStart bool `yaml:"auto_start"`
	// Settle is the number of ticks run before a headless render
	Settle int `yaml:"settle"`
}

// LayoutConfig picks the initial placement
type LayoutConfig struct {
	Initial string `yaml:"initial"`
	// Seed fixes the random placement; 0 means time-seeded
	Seed int64 `yaml:"seed"`
}

// RenderConfig holds drawing defaults
type RenderConfig struct {
	ShowLabels bool `yaml:"show_labels"`
}

// SourceConfig selects and parameterizes the relation source
type SourceConfig struct {
	Kind        string        `yaml:"kind"`
	Path        string        `yaml:"path"`
	URL         string        `yaml:"url"`
	DatabaseURL string        `yaml:"database_url"`
	Bucket      string        `yaml:"bucket"`
	Key         string        `yaml:"key"`
	Region      string        `yaml:"region"`
	Endpoint    string        `yaml:"endpoint"`
	AccessKeyID string        `yaml:"access_key_id"`
	SecretKey   string        `yaml:"secret_access_key"`
	Timeout     time.Duration `yaml:"timeout"`
	// Refresh reloads the source periodically when set
	Refresh time.Duration `yaml:"refresh"`
}

// ServerConfig configures the HTTP host
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxSessions    int      `yaml:"max_sessions"`
}

// NotifyConfig configures the NNG selection publisher
type NotifyConfig struct {
	// Address such as tcp://127.0.0.1:40899; empty disables publishing
	Address string `yaml:"address"`
}

// Default returns the built-in configuration
func Default() *Config {
	layout := visualization.DefaultLayoutConfig()
	return &Config{
		Canvas: CanvasConfig{
			Width:      layout.Width,
			Height:     layout.Height,
			NodeRadius: layout.NodeRadius,
			Padding:    layout.Padding,
		},
		Forces:   visualization.DefaultForceConfig(),
		Viewport: visualization.DefaultViewportConfig(),
		Scheduler: SchedulerConfig{
			FPS:       60,
			AutoStart: true,
			Settle:    300,
		},
		Layout: LayoutConfig{Initial: LayoutRandom},
		Render: RenderConfig{ShowLabels: true},
		Source: SourceConfig{
			Kind:    SourceFile,
			Path:    "relations.json",
			Timeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			MaxSessions: 64,
		},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path (optional) over the defaults, applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv is Load with an injectable environment lookup
func LoadWithEnv(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from GRAPHVIEW_* variables
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	str("GRAPHVIEW_ADDR", &c.Server.Addr)
	str("GRAPHVIEW_SOURCE", &c.Source.Kind)
	str("GRAPHVIEW_SOURCE_PATH", &c.Source.Path)
	str("GRAPHVIEW_SOURCE_URL", &c.Source.URL)
	str("GRAPHVIEW_DATABASE_URL", &c.Source.DatabaseURL)
	str("GRAPHVIEW_S3_BUCKET", &c.Source.Bucket)
	str("GRAPHVIEW_S3_KEY", &c.Source.Key)
	str("GRAPHVIEW_S3_REGION", &c.Source.Region)
	str("GRAPHVIEW_S3_ENDPOINT", &c.Source.Endpoint)
	str("GRAPHVIEW_S3_ACCESS_KEY_ID", &c.Source.AccessKeyID)
	str("GRAPHVIEW_S3_SECRET_ACCESS_KEY", &c.Source.SecretKey)
	str("GRAPHVIEW_NOTIFY_ADDR", &c.Notify.Address)
	str("GRAPHVIEW_LOG_LEVEL", &c.LogLevel)
	str("GRAPHVIEW_LOG_FILE", &c.LogFile)
	str("GRAPHVIEW_LAYOUT", &c.Layout.Initial)

	if v := getenv("GRAPHVIEW_CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		c.Server.AllowedOrigins = origins
	}

	if v := getenv("GRAPHVIEW_FPS"); v != "" {
		fps, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: GRAPHVIEW_FPS: %v", ErrInvalid, err)
		}
		c.Scheduler.FPS = fps
	}

	if v := getenv("GRAPHVIEW_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: GRAPHVIEW_SEED: %v", ErrInvalid, err)
		}
		c.Layout.Seed = seed
	}

	if v := getenv("GRAPHVIEW_SOURCE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: GRAPHVIEW_SOURCE_TIMEOUT: %v", ErrInvalid, err)
		}
		c.Source.Timeout = d
	}

	return nil
}

// Validate checks every section and joins all failures under ErrInvalid
func (c *Config) Validate() error {
	errs := []error{
		validation.NewConfigValidator("canvas").
			PositiveFloat("width", c.Canvas.Width).
			PositiveFloat("height", c.Canvas.Height).
			PositiveFloat("node_radius", c.Canvas.NodeRadius).
			NonNegativeFloat("padding", c.Canvas.Padding).
			Custom("node_radius", func() error {
				if 2*c.Canvas.NodeRadius > c.Canvas.Width || 2*c.Canvas.NodeRadius > c.Canvas.Height {
					return errors.New("node does not fit on the canvas")
				}
				return nil
			}).
			Validate(),

		validation.NewConfigValidator("forces").
			NonNegativeFloat("repulsion", c.Forces.Repulsion).
			NonNegativeFloat("spring_length", c.Forces.SpringLength).
			NonNegativeFloat("spring_strength", c.Forces.SpringStrength).
			NonNegativeFloat("center_strength", c.Forces.CenterStrength).
			RangeFloat("damping", c.Forces.Damping, 0, 0.999).
			Validate(),

		validation.NewConfigValidator("viewport").
			PositiveFloat("min_scale", c.Viewport.MinScale).
			PositiveFloat("max_scale", c.Viewport.MaxScale).
			RangeFloat("zoom_out", c.Viewport.ZoomOut, 0.01, 0.99).
			RangeFloat("zoom_in", c.Viewport.ZoomIn, 1.01, 10).
			Custom("max_scale", func() error {
				if c.Viewport.MaxScale < c.Viewport.MinScale {
					return fmt.Errorf("max_scale %g below min_scale %g", c.Viewport.MaxScale, c.Viewport.MinScale)
				}
				return nil
			}).
			Validate(),

		validation.NewConfigValidator("scheduler").
			RangeInt("fps", c.Scheduler.FPS, 1, 240).
			RangeInt("settle", c.Scheduler.Settle, 0, 100000).
			Validate(),

		validation.NewConfigValidator("layout").
			OneOf("initial", c.Layout.Initial, []string{LayoutRandom, LayoutCircular, LayoutHierarchical}).
			Validate(),

		validation.NewConfigValidator("source").
			OneOf("kind", c.Source.Kind, []string{SourceFile, SourceHTTP, SourcePostgres, SourceS3}).
			MinDuration("timeout", c.Source.Timeout, time.Millisecond).
			When(c.Source.Kind == SourceFile, func(cv *validation.ConfigValidator) {
				cv.Required("path", c.Source.Path)
			}).
			When(c.Source.Kind == SourceHTTP, func(cv *validation.ConfigValidator) {
				cv.URL("url", c.Source.URL)
			}).
			When(c.Source.Kind == SourcePostgres, func(cv *validation.ConfigValidator) {
				cv.Required("database_url", c.Source.DatabaseURL)
			}).
			When(c.Source.Kind == SourceS3, func(cv *validation.ConfigValidator) {
				cv.Required("bucket", c.Source.Bucket).Required("key", c.Source.Key)
			}).
			When(c.Source.AccessKeyID != "" || c.Source.SecretKey != "", func(cv *validation.ConfigValidator) {
				cv.Required("access_key_id", c.Source.AccessKeyID).Required("secret_access_key", c.Source.SecretKey)
			}).
			When(c.Source.Refresh != 0, func(cv *validation.ConfigValidator) {
				cv.MinDuration("refresh", c.Source.Refresh, time.Second)
			}).
			Validate(),

		validation.NewConfigValidator("server").
			Required("addr", c.Server.Addr).
			RangeInt("max_sessions", c.Server.MaxSessions, 1, 10000).
			Validate(),

		validation.NewConfigValidator("log").
			OneOf("log_level", strings.ToLower(c.LogLevel), []string{"debug", "info", "warn", "warning", "error"}).
			Validate(),
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// ModelLayout converts the canvas section for the model builder
func (c *Config) ModelLayout() visualization.LayoutConfig {
	return visualization.LayoutConfig{
		Width:      c.Canvas.Width,
		Height:     c.Canvas.Height,
		Padding:    c.Canvas.Padding,
		NodeRadius: c.Canvas.NodeRadius,
		Iterations: c.Scheduler.Settle,
	}
}

// ModelOptions builds the options for visualization.NewModel from the
// canvas and layout sections
func (c *Config) ModelOptions() visualization.ModelOptions {
	layout := c.ModelLayout()
	opts := visualization.ModelOptions{Layout: layout}

	switch c.Layout.Initial {
	case LayoutCircular:
		opts.Seed = visualization.NewCircularLayout(layout)
	case LayoutHierarchical:
		opts.Seed = visualization.NewHierarchicalLayout(layout)
	default:
		if c.Layout.Seed != 0 {
			opts.Rand = rand.New(rand.NewSource(c.Layout.Seed))
		}
	}
	return opts
}

// FrameInterval is the scheduler period derived from FPS
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.Scheduler.FPS)
}
