package artifact

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// SupportedMajorVersion is the single artifact major version this engine
// can evaluate.
const SupportedMajorVersion = 1

const (
	EnvironmentProduction  = "production"
	EnvironmentStaging     = "staging"
	EnvironmentDevelopment = "development"

	cdnBaseProduction = "https://assets.decisioning.io"
	cdnBaseStaging    = "https://assets.staging.decisioning.io"
)

// LocationConfig carries everything needed to derive the CDN URL of a
// client's rules artifact.
type LocationConfig struct {
	Client         string
	Environment    string
	CDNEnvironment string
	PropertyToken  string
}

// ValidEnvironment returns env when it names a known environment, otherwise
// the production default with a logged warning.
func ValidEnvironment(log zerolog.Logger, env string) string {
	switch env {
	case "", EnvironmentProduction:
		return EnvironmentProduction
	case EnvironmentStaging, EnvironmentDevelopment:
		return env
	}
	log.Debug().Str("environment", env).Str("default", EnvironmentProduction).
		Msg("invalid environment, using default")
	return EnvironmentProduction
}

// DetermineLocation derives the artifact URL:
// {cdnBase}/{client}/{environment}/v{major}/[{propertyToken}/]rules.json.
// The property token segment is included only when forced.
func DetermineLocation(log zerolog.Logger, cfg LocationConfig, includePropertyToken bool) string {
	base := cdnBaseProduction
	if cfg.CDNEnvironment == EnvironmentStaging {
		base = cdnBaseStaging
	}

	segments := []string{base, cfg.Client, ValidEnvironment(log, cfg.Environment),
		fmt.Sprintf("v%d", SupportedMajorVersion)}
	if includePropertyToken && cfg.PropertyToken != "" {
		segments = append(segments, cfg.PropertyToken)
	}
	segments = append(segments, "rules.json")

	return strings.Join(segments, "/")
}
