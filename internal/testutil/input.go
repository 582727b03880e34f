// Package testutil provides helpers shared by the package tests: golden
// input files, golden output comparison and seeded randomness.
package testutil

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/yetanotherchris/text-template/internal/datafile"
	"github.com/yetanotherchris/text-template/value"
)

// TestInput represents a parsed test input file.
type TestInput struct {
	Name     string
	Context  value.Value // YAML context
	Template string      // template source after ---
}

// ParseTestInputFile reads and parses a test input file.
func ParseTestInputFile(path string) (*TestInput, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	input, err := ParseTestInput(string(content))
	if err != nil {
		return nil, err
	}
	input.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return input, nil
}

// ParseTestInput parses test input content.
// Format: YAML context\n---\ntemplate
func ParseTestInput(content string) (*TestInput, error) {
	parts := strings.SplitN(content, "\n---\n", 2)
	if len(parts) == 1 {
		return &TestInput{Context: value.FromMap(nil), Template: content}, nil
	}

	ctx, err := datafile.DecodeYAML([]byte(parts[0]))
	if err != nil {
		return nil, err
	}
	return &TestInput{Context: ctx, Template: parts[1]}, nil
}

// GlobTestInputs finds all test input files matching a pattern.
func GlobTestInputs(pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}
