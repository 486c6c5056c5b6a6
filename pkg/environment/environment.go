package environment

import "strings"

// Environment represents application environment.
type Environment string

const (
	// Development for local runs and tests.
	Development Environment = "development"
	// Staging for pre-production deployments.
	Staging Environment = "staging"
	// Production for live deployments.
	Production Environment = "production"
)

// Parse maps a raw APP_ENV value to a known environment.
// Unknown and empty values fall back to Development.
func Parse(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	default:
		return Development
	}
}

// String returns the raw environment name.
func (e Environment) String() string { return string(e) }

// IsProduction reports whether e is the production environment.
func (e Environment) IsProduction() bool { return e == Production }
