// Package config provides layered configuration loading for the
// marketstreams service.
//
// Configuration is assembled from three sources, later sources winning:
//
//  1. Built-in defaults (Defaults)
//  2. JSON file layers, merged in the order they were added
//  3. MARKETSTREAMS_* environment variable overrides
//
// SafeConfig wraps a Config for concurrent readers with atomic,
// validated updates.
package config
