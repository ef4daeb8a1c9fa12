// Package geometry extracts the named scalar parameters from a geometry
// description file and derives the per-variant scaled parameter set.
package geometry

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
)

// The four parameters every variant derivation needs, in millimeters.
const (
	ParamLK  = "lK"  // piston length
	ParamLZ0 = "lZ0" // displacement chamber reference length
	ParamLKG = "lKG" // piston guide length
	ParamLSK = "lSK" // piston center of mass offset
)

// RequiredParams lists the parameters that must resolve before any variant
// can be synthesized.
var RequiredParams = []string{ParamLK, ParamLZ0, ParamLKG, ParamLSK}

// ParameterSet maps parameter names to their values in millimeters.
type ParameterSet map[string]float64

// numberPattern matches a signed integer, decimal or exponential literal.
const numberPattern = `[-+]?\d*\.?\d+(?:[eE][-+]?\d+)?`

// paramPattern matches a line whose leading token is the parameter name
// followed by whitespace and a numeric literal. First match wins.
func paramPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^[ \t]*` + regexp.QuoteMeta(name) + `[ \t]+(` + numberPattern + `)`)
}

// substPattern matches the name token plus leading indent as a group, then
// the numeric literal to be replaced.
func substPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^([ \t]*` + regexp.QuoteMeta(name) + `[ \t]+)` + numberPattern)
}

// SubstituteValue replaces the numeric literal following the named parameter
// with the given value, preserving the name and its leading whitespace.
// Content without a matching line is returned unchanged.
func SubstituteValue(content []byte, name string, value float64) []byte {
	// FormatValue never emits '$', so the template expansion is safe.
	return substPattern(name).ReplaceAll(content, []byte("${1}"+FormatValue(value)))
}

// ExtractParameters reads the geometry file and resolves each named
// parameter. A missing file is an error; a missing parameter is not — it is
// returned in the missing list so callers can report partial results.
func ExtractParameters(path string, names []string) (ParameterSet, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("geometry file not found: %s", path)
		}
		return nil, nil, fmt.Errorf("read geometry file %s: %w", path, err)
	}
	return ParseParameters(data, names)
}

// ParseParameters resolves the named parameters from file content.
func ParseParameters(content []byte, names []string) (ParameterSet, []string, error) {
	params := make(ParameterSet, len(names))
	var missing []string

	for _, name := range names {
		m := paramPattern(name).FindSubmatch(content)
		if m == nil {
			missing = append(missing, name)
			continue
		}
		v, err := strconv.ParseFloat(string(m[1]), 64)
		if err != nil {
			// The pattern only admits valid literals; treat a parse
			// failure the same as not found.
			missing = append(missing, name)
			continue
		}
		params[name] = v
	}

	return params, missing, nil
}
