// Package config defines the configuration file of a kernel run: the octree domain and the
// constants of the Delaunay test engine.
package config

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/delink/delaunay"
	"go.viam.com/delink/logging"
	"go.viam.com/delink/octree"
)

// DefaultMaxDepth is used when the octree section leaves max_depth unset.
const DefaultMaxDepth = 16

// DefaultMargin pads a bounding box derived from the input points.
const DefaultMargin = 0.01

// Config is the whole configuration of a run.
type Config struct {
	ConfigFilePath string `json:"-"`

	Octree OctreeConfig `json:"octree"`
	// DelaunayAttributes holds the raw delaunay section. Keys left out keep their defaults.
	DelaunayAttributes map[string]interface{} `json:"delaunay,omitempty"`
	LogLevel           string                 `json:"log_level,omitempty"`

	Delaunay delaunay.Config `json:"-"`
}

// OctreeConfig describes the domain of the octree. Min and Max are optional as a pair; when
// both are missing the domain is derived from the input points, padded by Margin.
type OctreeConfig struct {
	Min      []float64 `json:"min,omitempty"`
	Max      []float64 `json:"max,omitempty"`
	MaxDepth int       `json:"max_depth,omitempty"`
	Margin   float64   `json:"margin,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *OctreeConfig) Validate(path string) error {
	if (cfg.Min == nil) != (cfg.Max == nil) {
		if cfg.Min == nil {
			return goutils.NewConfigValidationFieldRequiredError(path, "min")
		}
		return goutils.NewConfigValidationFieldRequiredError(path, "max")
	}
	if cfg.Min != nil {
		if len(cfg.Min) != 3 || len(cfg.Max) != 3 {
			return goutils.NewConfigValidationError(path, errors.New("min and max need exactly 3 coordinates"))
		}
		for i := range cfg.Min {
			if math.IsNaN(cfg.Min[i]) || math.IsNaN(cfg.Max[i]) || !(cfg.Min[i] < cfg.Max[i]) {
				return goutils.NewConfigValidationError(path,
					errors.Errorf("min %v must be below max %v on every axis", cfg.Min, cfg.Max))
			}
		}
	}
	if cfg.MaxDepth < 0 || cfg.MaxDepth > octree.MaxSupportedDepth {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("max_depth must be between 1 and %d, got %d", octree.MaxSupportedDepth, cfg.MaxDepth))
	}
	if math.IsNaN(cfg.Margin) || cfg.Margin < 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("margin cannot be negative, got %v", cfg.Margin))
	}
	return nil
}

// Bounds returns the configured box, and false when it should be derived from the points.
func (cfg *OctreeConfig) Bounds() (r3.Vector, r3.Vector, bool) {
	if cfg.Min == nil {
		return r3.Vector{}, r3.Vector{}, false
	}
	return r3.Vector{X: cfg.Min[0], Y: cfg.Min[1], Z: cfg.Min[2]},
		r3.Vector{X: cfg.Max[0], Y: cfg.Max[1], Z: cfg.Max[2]}, true
}

// Ensure fills defaults, decodes the delaunay attributes and validates the whole config.
func (cfg *Config) Ensure() error {
	if cfg.Octree.MaxDepth == 0 {
		cfg.Octree.MaxDepth = DefaultMaxDepth
	}
	if cfg.Octree.Margin == 0 {
		cfg.Octree.Margin = DefaultMargin
	}
	if err := cfg.Octree.Validate("octree"); err != nil {
		return err
	}

	conf, err := delaunay.ConfigFromAttributes(cfg.DelaunayAttributes)
	if err != nil {
		return goutils.NewConfigValidationError("delaunay", err)
	}
	if err := conf.Validate("delaunay"); err != nil {
		return err
	}
	cfg.Delaunay = *conf

	if cfg.LogLevel != "" {
		if _, err := logging.LevelFromString(cfg.LogLevel); err != nil {
			return goutils.NewConfigValidationError("log_level", err)
		}
	}
	return nil
}

// Level returns the configured log level, INFO when unset.
func (cfg *Config) Level() logging.Level {
	level, err := logging.LevelFromString(cfg.LogLevel)
	if err != nil {
		return logging.INFO
	}
	return level
}

func (cfg *Config) String() string {
	return fmt.Sprintf("config(%s octree{min=%v max=%v depth=%d margin=%g} %v)",
		cfg.ConfigFilePath, cfg.Octree.Min, cfg.Octree.Max, cfg.Octree.MaxDepth, cfg.Octree.Margin, cfg.Delaunay)
}
