// Package mesh rewrites structured solver input files, remapping node
// Z-coordinates through a piecewise-linear transform driven by a small
// scalar-config file.
package mesh

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ScalarConfig drives one rescale: source and destination mesh paths plus
// the two breakpoint pairs of the Z transform.
type ScalarConfig struct {
	Source string
	Dest   string

	Z1, Z1New float64
	Z2, Z2New float64
}

// LoadScalarConfig reads a 4-line scalar-config file: source path,
// destination path, "z1 z1new", "z2 z2new". Relative mesh paths are
// resolved against the config file's directory.
func LoadScalarConfig(path string) (*ScalarConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("scalar config not found: %s", path)
		}
		return nil, fmt.Errorf("read scalar config %s: %w", path, err)
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) < 4 {
		return nil, fmt.Errorf("scalar config %s has %d lines, want at least 4", path, len(lines))
	}

	cfg := &ScalarConfig{
		Source: strings.TrimSpace(lines[0]),
		Dest:   strings.TrimSpace(lines[1]),
	}
	if cfg.Source == "" || cfg.Dest == "" {
		return nil, fmt.Errorf("scalar config %s: empty mesh path", path)
	}

	if cfg.Z1, cfg.Z1New, err = parsePair(lines[2]); err != nil {
		return nil, fmt.Errorf("scalar config %s line 3: %w", path, err)
	}
	if cfg.Z2, cfg.Z2New, err = parsePair(lines[3]); err != nil {
		return nil, fmt.Errorf("scalar config %s line 4: %w", path, err)
	}

	base := filepath.Dir(path)
	if !filepath.IsAbs(cfg.Source) {
		cfg.Source = filepath.Join(base, cfg.Source)
	}
	if !filepath.IsAbs(cfg.Dest) {
		cfg.Dest = filepath.Join(base, cfg.Dest)
	}
	return cfg, nil
}

// parsePair splits a "value newValue" breakpoint line.
func parsePair(line string) (float64, float64, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("want 2 fields, got %d", len(fields))
	}
	a, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse %q: %w", fields[0], err)
	}
	b, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse %q: %w", fields[1], err)
	}
	return a, b, nil
}
