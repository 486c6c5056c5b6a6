// Package environment names the deployment environments the service knows
// about and normalises the short aliases operators tend to type into APP_ENV.
package environment
