// Package main provides the command line interface for one-shot report
// generation.
//
// Usage:
//
//	docreporter report document.pdf -o report.md
//
// See --help for all available options.
package main

// main is the entry point for the docreporter CLI.
func main() {
	Execute()
}
