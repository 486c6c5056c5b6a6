// Package config loads typed configuration structs from environment
// variables using caarlos0/env struct tags. A .env file in the working
// directory is read once, before the first load.
//
// Load caches the parsed value per type, so repeated calls anywhere in the
// process return the same configuration. Types that implement Validator are
// validated after parsing.
package config
