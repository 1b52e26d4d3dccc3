package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"go.viam.com/delink/logging"
)

// Read reads a config from the given file. Environment variables referenced as ${NAME} are
// substituted before decoding.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	cfg := Config{
		ConfigFilePath: originalPath,
	}
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	if err := cfg.Ensure(); err != nil {
		return nil, errors.Wrapf(err, "failed to process Config")
	}
	if logger != nil {
		logger.Debugw("config loaded", "path", originalPath, "max_depth", cfg.Octree.MaxDepth, "delaunay", cfg.Delaunay.String())
	}
	return &cfg, nil
}

// Default returns the config used when no file is given.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.Ensure(); err != nil {
		panic(err)
	}
	return cfg
}
