package delaunay

import (
	"fmt"
	"math"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/delink/spatialmath"
)

// Config holds the constants injected into the test engine.
type Config struct {
	// EdgeOutsideEps snaps hits just outside an edge onto it.
	EdgeOutsideEps float64 `json:"edgo_eps"`
	// EdgeInsideEps snaps hits just inside an edge onto it.
	EdgeInsideEps   float64 `json:"edgi_eps"`
	IntersectionEps float64 `json:"itl_eps"`
	VolumeEps       float64 `json:"vol_eps"`
	SphereShrinkEps float64 `json:"wsbref_eps"`
	MaxArea2        float64 `json:"maxar2_par"`
	MaxCos          float64 `json:"maxcos_par"`
	PlaneNearEps    float64 `json:"pn_eps"`
	LambdaMax       float64 `json:"lambda_max"`
	EquatorSphere   bool    `json:"equator_sphere"`
	SliverEps       float64 `json:"sliver_eps"`
}

// DefaultConfig returns the constants the kernel runs with unless told otherwise. PlaneNearEps
// and LambdaMax are relative to the circumradius of the triangle under test. A zero MaxArea2
// disables the area limit.
func DefaultConfig() Config {
	tol := spatialmath.DefaultTolerances()
	return Config{
		EdgeOutsideEps:  tol.EdgeOutside,
		EdgeInsideEps:   tol.EdgeInside,
		IntersectionEps: tol.Intersection,
		VolumeEps:       tol.Volume,
		SphereShrinkEps: 1e-8,
		MaxArea2:        0,
		MaxCos:          0.99,
		PlaneNearEps:    0.02,
		LambdaMax:       100,
		SliverEps:       tol.Sliver,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	for _, field := range []struct {
		name  string
		value float64
	}{
		{"edgo_eps", cfg.EdgeOutsideEps},
		{"edgi_eps", cfg.EdgeInsideEps},
		{"itl_eps", cfg.IntersectionEps},
		{"vol_eps", cfg.VolumeEps},
		{"wsbref_eps", cfg.SphereShrinkEps},
		{"maxar2_par", cfg.MaxArea2},
		{"pn_eps", cfg.PlaneNearEps},
		{"sliver_eps", cfg.SliverEps},
	} {
		if math.IsNaN(field.value) || field.value < 0 {
			return goutils.NewConfigValidationError(path,
				errors.Errorf("%s must be a non-negative number, got %v", field.name, field.value))
		}
	}
	if cfg.EdgeOutsideEps > cfg.EdgeInsideEps {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("edgo_eps (%v) cannot be larger than edgi_eps (%v)", cfg.EdgeOutsideEps, cfg.EdgeInsideEps))
	}
	if cfg.MaxCos == 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "maxcos_par")
	}
	if math.IsNaN(cfg.MaxCos) || cfg.MaxCos <= -1 || cfg.MaxCos > 1 {
		return goutils.NewConfigValidationError(path, errors.Errorf("maxcos_par must be in (-1, 1], got %v", cfg.MaxCos))
	}
	if cfg.LambdaMax == 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "lambda_max")
	}
	if math.IsNaN(cfg.LambdaMax) || cfg.LambdaMax < 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("lambda_max must be positive, got %v", cfg.LambdaMax))
	}
	return nil
}

// Tolerances returns the predicate tolerances carried by the config.
func (cfg *Config) Tolerances() spatialmath.Tolerances {
	return spatialmath.Tolerances{
		EdgeInside:   cfg.EdgeInsideEps,
		EdgeOutside:  cfg.EdgeOutsideEps,
		Intersection: cfg.IntersectionEps,
		Volume:       cfg.VolumeEps,
		Sliver:       cfg.SliverEps,
	}
}

// ConfigFromAttributes decodes a loosely typed attribute map on top of DefaultConfig, so only
// the keys present are overridden.
func ConfigFromAttributes(attributes map[string]interface{}) (*Config, error) {
	conf := DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &conf,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "cannot decode delaunay attributes")
	}
	return &conf, nil
}

func (cfg Config) String() string {
	return fmt.Sprintf("delaunay(edgi=%g edgo=%g itl=%g vol=%g wsbref=%g pn=%g lmax=%g maxcos=%g maxar2=%g equator=%t)",
		cfg.EdgeInsideEps, cfg.EdgeOutsideEps, cfg.IntersectionEps, cfg.VolumeEps, cfg.SphereShrinkEps,
		cfg.PlaneNearEps, cfg.LambdaMax, cfg.MaxCos, cfg.MaxArea2, cfg.EquatorSphere)
}
