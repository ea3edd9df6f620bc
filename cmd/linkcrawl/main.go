// Package main provides the entry point for the linkcrawl CLI.
//
// linkcrawl crawls a web site from a seed URL down to a maximum link depth
// and counts how often every URL is reached. The counts are written to a
// result file as "<count>\t<url>" lines.
//
// Usage:
//
//	linkcrawl crawl <url> [depth]
//	linkcrawl history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
