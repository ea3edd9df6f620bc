// Package config provides configuration structures and utilities for linkcrawl.
// It defines the options of a crawl run, loads the optional YAML
// configuration file and validates the merged result before any crawling
// starts.
package config
