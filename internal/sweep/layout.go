package sweep

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fluidpower-lab/pistonsweep/internal/config"
	"github.com/fluidpower-lab/pistonsweep/internal/events"
)

// Layout binds a base folder to the fixed file tree the pipeline expects.
type Layout struct {
	Base string
	cfg  *config.Config
}

func NewLayout(base string, cfg *config.Config) *Layout {
	return &Layout{Base: base, cfg: cfg}
}

func (l *Layout) INPDir() string        { return filepath.Join(l.Base, l.cfg.Layout.INPDir) }
func (l *Layout) SimulationDir() string { return filepath.Join(l.Base, l.cfg.Layout.SimulationDir) }
func (l *Layout) InflugenDir() string   { return filepath.Join(l.Base, l.cfg.Layout.InflugenDir) }
func (l *Layout) ZscalarDir() string    { return filepath.Join(l.Base, l.cfg.Layout.ZscalarDir) }
func (l *Layout) GeometryFile() string  { return filepath.Join(l.Base, l.cfg.Layout.GeometryFile) }

// PistonPrSource is the auxiliary input file replicated into each variant's
// working subfolder.
func (l *Layout) PistonPrSource() string {
	return filepath.Join(l.INPDir(), l.cfg.Layout.PistonPrFile)
}

// ScalarTemplate is the scalar-config template consumed by the synthesizer.
func (l *Layout) ScalarTemplate() string {
	return filepath.Join(l.ZscalarDir(), l.cfg.Layout.ScalarFile)
}

// Check is one verification outcome. Critical checks gate synthesis and
// batch execution; the rest are advisory.
type Check struct {
	Name     string
	Path     string
	OK       bool
	Critical bool
}

// Verify walks the expected tree and reports one Check per item. The
// returned bool is true when every critical check passed.
func (l *Layout) Verify(sink events.Sink) ([]Check, bool) {
	checks := []Check{
		{Name: "base folder", Path: l.Base, Critical: true},
		{Name: "INP folder", Path: l.INPDir(), Critical: true},
		{Name: "simulation folder", Path: l.SimulationDir(), Critical: true},
		{Name: "influgen folder", Path: l.InflugenDir()},
		{Name: "Zscalar folder", Path: l.ZscalarDir(), Critical: true},
		{Name: "geometry file", Path: l.GeometryFile(), Critical: true},
		{Name: "piston_pr source", Path: l.PistonPrSource(), Critical: true},
		{Name: "scalar template", Path: l.ScalarTemplate()},
	}

	allCritical := true
	for i := range checks {
		_, err := os.Stat(checks[i].Path)
		checks[i].OK = err == nil
		level := events.LevelInfo
		msg := checks[i].Name + " found"
		if !checks[i].OK {
			msg = checks[i].Name + " NOT found"
			level = events.LevelWarn
			if checks[i].Critical {
				level = events.LevelError
				allCritical = false
			}
		}
		sink.Emit(events.Event{
			Stage:   events.StageVerify,
			Level:   level,
			Item:    checks[i].Path,
			Message: msg,
		})
	}
	return checks, allCritical
}

// SeedZscalar copies the piston_pr source into the Zscalar folder. Run once
// before the first synthesis; overwrites any stale copy.
func (l *Layout) SeedZscalar(sink events.Sink) error {
	src := l.PistonPrSource()
	dst := filepath.Join(l.ZscalarDir(), l.cfg.Layout.PistonPrFile)
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("seed %s: %w", l.ZscalarDir(), err)
	}
	sink.Emit(events.Event{
		Stage:   events.StageCopy,
		Level:   events.LevelInfo,
		Item:    dst,
		Message: "copied " + l.cfg.Layout.PistonPrFile + " into Zscalar folder",
	})
	return nil
}
