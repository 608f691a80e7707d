// Package logging builds the zap loggers used by the qcml tool. The
// logger doubles as the sink for document warnings.
package logging

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger modes
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
	ModeQuiet       = "quiet"
)

// ErrUnknownMode means a logger mode name is not recognized
var ErrUnknownMode = errors.New("logging: unknown mode")

// ParseMode normalizes a mode name. "dev" and "prod" are accepted as
// short forms, empty means development.
func ParseMode(mode string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "dev", ModeDevelopment:
		return ModeDevelopment, nil
	case "prod", ModeProduction:
		return ModeProduction, nil
	case ModeQuiet:
		return ModeQuiet, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

// New returns a logger for mode. Development logs human readable lines
// from debug level, production logs JSON from info level, quiet only
// logs errors. All modes write to stderr.
func New(mode string) (*zap.Logger, error) {
	m, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}
	var cfg zap.Config
	switch m {
	case ModeProduction:
		cfg = zap.NewProductionConfig()
	case ModeQuiet:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
