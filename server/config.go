package server

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cyclopcam/videolabel/pkg/annotate"
	"github.com/cyclopcam/videolabel/server/labeling"
)

type Config struct {
	Listen             string          `json:"listen"`     // eg ":8082"
	BackendURL         string          `json:"backendURL"` // Root of the dataset server, eg "http://localhost:5000"
	HistoryLimit       int             `json:"historyLimit"`
	MinZoom            float64         `json:"minZoom"`
	MaxZoom            float64         `json:"maxZoom"`
	HandleSizePx       float64         `json:"handleSizePx"`
	MinBoxSize         float64         `json:"minBoxSize"` // Normalized units
	MaxSuggestions     int             `json:"maxSuggestions"`
	ClassFile          string          `json:"classFile"` // One class per line. Used when the backend can't give us its classes.
	RateLimit          RateLimitConfig `json:"rateLimit"`
	SaveSuccessSeconds float64         `json:"saveSuccessSeconds"`
}

// Applies separately to the analyse and save routes, per client IP
type RateLimitConfig struct {
	Requests      int `json:"requests"`
	WindowSeconds int `json:"windowSeconds"`
}

func DefaultConfig() Config {
	c := Config{}
	c.applyDefaults()
	return c
}

// LoadConfig reads a JSON config file. An empty filename produces the default config.
func LoadConfig(configFile string) (Config, error) {
	cfg := Config{}
	if configFile != "" {
		if cfgB, err := os.ReadFile(configFile); err != nil {
			return Config{}, err
		} else {
			if err := json.Unmarshal(cfgB, &cfg); err != nil {
				return Config{}, fmt.Errorf("Error parsing config file %v: %w", configFile, err)
			}
		}
	}
	cfg.applyDefaults()
	if cfg.MinZoom > cfg.MaxZoom {
		return Config{}, fmt.Errorf("minZoom (%v) is greater than maxZoom (%v)", cfg.MinZoom, cfg.MaxZoom)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8082"
	}
	if c.BackendURL == "" {
		c.BackendURL = "http://localhost:5000"
	}
	def := annotate.DefaultOptions()
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = def.HistoryLimit
	}
	if c.MinZoom <= 0 {
		c.MinZoom = def.MinZoom
	}
	if c.MaxZoom <= 0 {
		c.MaxZoom = def.MaxZoom
	}
	if c.HandleSizePx <= 0 {
		c.HandleSizePx = def.HandleSizePx
	}
	if c.MinBoxSize <= 0 {
		c.MinBoxSize = def.MinBoxSize
	}
	if c.MaxSuggestions <= 0 {
		c.MaxSuggestions = def.MaxSuggestions
	}
	if c.RateLimit.Requests <= 0 {
		c.RateLimit.Requests = 10
	}
	if c.RateLimit.WindowSeconds <= 0 {
		c.RateLimit.WindowSeconds = 60
	}
	if c.SaveSuccessSeconds <= 0 {
		c.SaveSuccessSeconds = labeling.DefaultSaveSuccessDuration.Seconds()
	}
}

func (c *Config) EngineOptions() annotate.Options {
	return annotate.Options{
		HistoryLimit:   c.HistoryLimit,
		MinZoom:        c.MinZoom,
		MaxZoom:        c.MaxZoom,
		HandleSizePx:   c.HandleSizePx,
		MinBoxSize:     c.MinBoxSize,
		MaxSuggestions: c.MaxSuggestions,
	}
}

func (c *Config) SessionConfig(fallbackClasses []string) labeling.Config {
	return labeling.Config{
		Engine:              c.EngineOptions(),
		SaveSuccessDuration: time.Duration(c.SaveSuccessSeconds * float64(time.Second)),
		FallbackClasses:     fallbackClasses,
	}
}

func (c *Config) rateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}
