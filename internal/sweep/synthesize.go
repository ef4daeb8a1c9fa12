package sweep

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/fluidpower-lab/pistonsweep/internal/config"
	"github.com/fluidpower-lab/pistonsweep/internal/events"
	"github.com/fluidpower-lab/pistonsweep/internal/geometry"
)

// Synthesizer materializes one variant directory per scale factor under the
// simulation folder: a derived scalar-config file, a replica of every
// template sub-case, and rewritten geometry and solver-option files.
type Synthesizer struct {
	layout *Layout
	cfg    *config.Config
	sink   events.Sink
}

func NewSynthesizer(layout *Layout, cfg *config.Config, sink events.Sink) *Synthesizer {
	return &Synthesizer{layout: layout, cfg: cfg, sink: sink}
}

// VariantOutcome reports one variant's synthesis result.
type VariantOutcome struct {
	Name string
	Dir  string
	Err  error
}

// VariantName builds the deterministic directory name for a scale factor:
// the prefix plus the factor truncated to an integer. Re-running for the
// same factor overwrites the prior variant.
func (s *Synthesizer) VariantName(scale float64) string {
	return s.cfg.Layout.VariantPrefix + strconv.Itoa(int(scale))
}

// Synthesize creates one variant per scale factor. A variant's failure is
// recorded in its outcome and does not stop the remaining scale factors.
func (s *Synthesizer) Synthesize(scales []float64, base geometry.ParameterSet) []VariantOutcome {
	outcomes := make([]VariantOutcome, 0, len(scales))
	for _, scale := range scales {
		name := s.VariantName(scale)
		dir, err := s.synthesizeOne(scale, base)
		if err != nil {
			s.sink.Emit(events.Event{
				Stage:   events.StageSynthesis,
				Level:   events.LevelError,
				Item:    name,
				Message: "variant synthesis failed",
				Err:     err,
			})
		} else {
			s.sink.Emit(events.Event{
				Stage:   events.StageSynthesis,
				Level:   events.LevelInfo,
				Item:    name,
				Message: fmt.Sprintf("variant synthesized for scale %s", geometry.FormatValue(scale)),
			})
		}
		outcomes = append(outcomes, VariantOutcome{Name: name, Dir: dir, Err: err})
	}
	return outcomes
}

func (s *Synthesizer) synthesizeOne(scale float64, base geometry.ParameterSet) (string, error) {
	derived, err := geometry.Derive(base, scale, s.cfg.Derive.LZ0Sign)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.layout.SimulationDir(), s.VariantName(scale))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return dir, fmt.Errorf("create variant directory: %w", err)
	}

	working := filepath.Join(dir, s.cfg.Layout.WorkingSubdir)
	if err := os.MkdirAll(working, 0755); err != nil {
		return dir, fmt.Errorf("create working subfolder: %w", err)
	}
	workingAbs, err := filepath.Abs(working)
	if err != nil {
		return dir, fmt.Errorf("resolve working subfolder: %w", err)
	}

	if err := s.writeScalarConfig(dir, base[geometry.ParamLZ0], derived.LZ0); err != nil {
		return dir, err
	}

	subCases, err := s.templateSubCases()
	if err != nil {
		return dir, err
	}
	if len(subCases) == 0 {
		return dir, fmt.Errorf("no %s* sub-cases found in %s", s.cfg.Layout.SubCasePrefix, s.layout.SimulationDir())
	}

	for _, sc := range subCases {
		if err := s.replicateSubCase(dir, sc, derived, workingAbs); err != nil {
			return dir, fmt.Errorf("sub-case %s: %w", sc, err)
		}
	}
	return dir, nil
}

// writeScalarConfig copies the scalar-config template into the variant,
// overwriting line 4 with the tracked "base scaled" pair at full precision.
func (s *Synthesizer) writeScalarConfig(variantDir string, baseVal, scaledVal float64) error {
	data, err := os.ReadFile(s.layout.ScalarTemplate())
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("scalar template not found: %s", s.layout.ScalarTemplate())
		}
		return fmt.Errorf("read scalar template: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) < 4 {
		return fmt.Errorf("scalar template %s has %d lines, want at least 4", s.layout.ScalarTemplate(), len(lines))
	}
	lines[3] = geometry.FormatValue(baseVal) + " " + geometry.FormatValue(scaledVal)

	dst := filepath.Join(variantDir, s.cfg.Layout.ScalarFile)
	if err := os.WriteFile(dst, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return fmt.Errorf("write scalar config: %w", err)
	}
	return nil
}

// templateSubCases lists the sub-case directories of the template
// simulation folder, identified by the reserved name prefix.
func (s *Synthesizer) templateSubCases() ([]string, error) {
	entries, err := os.ReadDir(s.layout.SimulationDir())
	if err != nil {
		return nil, fmt.Errorf("read simulation folder: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), s.cfg.Layout.SubCasePrefix) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// replicateSubCase destroys any stale replica, deep-copies the template
// sub-case into the variant and rewrites its geometry and solver-option
// files.
func (s *Synthesizer) replicateSubCase(variantDir, subCase string, derived geometry.DerivedSet, workingAbs string) error {
	src := filepath.Join(s.layout.SimulationDir(), subCase)
	dst := filepath.Join(variantDir, subCase)

	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("remove stale replica: %w", err)
	}
	if err := copyTree(src, dst); err != nil {
		return fmt.Errorf("copy sub-case tree: %w", err)
	}

	inputDir := filepath.Join(dst, s.cfg.Layout.InputSubdir)
	if err := os.MkdirAll(inputDir, 0755); err != nil {
		return fmt.Errorf("create input subfolder: %w", err)
	}

	if err := s.writeScaledGeometry(inputDir, derived); err != nil {
		return err
	}
	return s.rewriteOptionFile(dst, workingAbs)
}

// writeScaledGeometry substitutes the four derived values into the base
// geometry file and writes the result into the replica's input subfolder.
func (s *Synthesizer) writeScaledGeometry(inputDir string, derived geometry.DerivedSet) error {
	content, err := os.ReadFile(s.layout.GeometryFile())
	if err != nil {
		return fmt.Errorf("read base geometry file: %w", err)
	}

	for name, value := range derived.Values() {
		content = geometry.SubstituteValue(content, name, value)
	}

	dst := filepath.Join(inputDir, s.cfg.Layout.GeometryFile)
	if err := os.WriteFile(dst, content, 0644); err != nil {
		return fmt.Errorf("write scaled geometry file: %w", err)
	}
	return nil
}

// rewriteOptionFile points the tracked path field of the solver-option file
// at the variant's working subfolder. The file location drifted across
// pipeline revisions, so both the input subfolder and the sub-case root are
// checked. The file may contain non-text bytes; everything outside the
// matched field is passed through untouched.
func (s *Synthesizer) rewriteOptionFile(replicaDir, workingAbs string) error {
	candidates := []string{
		filepath.Join(replicaDir, s.cfg.Layout.InputSubdir, s.cfg.Layout.OptionFile),
		filepath.Join(replicaDir, s.cfg.Layout.OptionFile),
	}

	var path string
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			path = c
			break
		}
	}
	if path == "" {
		s.sink.Emit(events.Event{
			Stage:   events.StageSynthesis,
			Level:   events.LevelWarn,
			Item:    replicaDir,
			Message: "solver-option file not found, skipping path rewrite",
		})
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read solver-option file: %w", err)
	}

	re := optionFieldPattern(s.cfg.Layout.OptionPathField)
	rewritten := re.ReplaceAllFunc(data, func(m []byte) []byte {
		idx := re.FindSubmatchIndex(m)
		out := make([]byte, 0, len(m)+len(workingAbs))
		out = append(out, m[idx[2]:idx[3]]...)
		out = append(out, workingAbs...)
		return out
	})

	if err := os.WriteFile(path, rewritten, 0644); err != nil {
		return fmt.Errorf("write solver-option file: %w", err)
	}
	return nil
}

// optionFieldPattern matches the path field line: indent and field name as a
// group, then the old value up to end of line.
func optionFieldPattern(field string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^([ \t]*` + regexp.QuoteMeta(field) + `[ \t]+)[^\r\n]+`)
}
