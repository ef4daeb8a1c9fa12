package batch

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fluidpower-lab/pistonsweep/internal/config"
	"github.com/fluidpower-lab/pistonsweep/internal/events"
	"github.com/fluidpower-lab/pistonsweep/internal/sweep"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newTestRoot builds a base folder with an empty simulation directory.
func newTestRoot(t *testing.T) (*sweep.Layout, *config.Config) {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "simulation"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "INP"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "INP", "piston_pr.inp"), []byte("1, 0.0\n"), 0644))
	return sweep.NewLayout(base, cfg), cfg
}

// addVariant creates one variant directory. With a mesh, a working scalar
// config is written; withScalar=false leaves the variant bare and
// brokenSource points the config at a missing mesh.
func addVariant(t *testing.T, layout *sweep.Layout, name string, withScalar, brokenSource bool) string {
	t.Helper()
	dir := filepath.Join(layout.SimulationDir(), name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	if !withScalar {
		return dir
	}

	src := "piston.inp"
	if !brokenSource {
		require.NoError(t, os.WriteFile(filepath.Join(dir, src),
			[]byte("*NODE\n1, 0.0, 0.0, 5.0\n*END\n"), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scalar.txt"),
		[]byte(src+"\npiston_scaled.inp\n0 0\n10 20\n"), 0644))
	return dir
}

func TestRunBatch(t *testing.T) {
	t.Run("statuses are independent per variant", func(t *testing.T) {
		layout, cfg := newTestRoot(t)
		addVariant(t, layout, "IM_scaled_piston_1", true, false)
		addVariant(t, layout, "IM_scaled_piston_2", false, false)
		addVariant(t, layout, "IM_scaled_piston_3", true, true)

		coord := NewCoordinator(layout, cfg, &DirectRunner{Sink: events.NopSink{}}, events.NopSink{})
		summary, err := coord.RunBatch(context.Background())
		require.NoError(t, err)

		require.Len(t, summary, 3)
		assert.Equal(t, StatusSuccess, summary["IM_scaled_piston_1"].Status)
		assert.Equal(t, StatusSkipped, summary["IM_scaled_piston_2"].Status)
		assert.Equal(t, StatusFailed, summary["IM_scaled_piston_3"].Status)
		assert.Contains(t, summary["IM_scaled_piston_3"].Detail, "source mesh not found")

		// The successful variant actually produced its mesh.
		assert.FileExists(t, filepath.Join(layout.SimulationDir(), "IM_scaled_piston_1", "piston_scaled.inp"))
	})

	t.Run("no variants is a global precondition failure", func(t *testing.T) {
		layout, cfg := newTestRoot(t)
		coord := NewCoordinator(layout, cfg, &DirectRunner{Sink: events.NopSink{}}, events.NopSink{})
		_, err := coord.RunBatch(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no IM_scaled_piston_* variant directories")
	})

	t.Run("missing simulation root is a global failure", func(t *testing.T) {
		layout, cfg := newTestRoot(t)
		require.NoError(t, os.RemoveAll(layout.SimulationDir()))
		coord := NewCoordinator(layout, cfg, &DirectRunner{Sink: events.NopSink{}}, events.NopSink{})
		_, err := coord.RunBatch(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "simulation folder not found")
	})

	t.Run("summary counts land in the batch event", func(t *testing.T) {
		layout, cfg := newTestRoot(t)
		addVariant(t, layout, "IM_scaled_piston_1", true, false)
		addVariant(t, layout, "IM_scaled_piston_2", false, false)

		sink := events.NewCaptureSink()
		coord := NewCoordinator(layout, cfg, &DirectRunner{Sink: events.NopSink{}}, sink)
		_, err := coord.RunBatch(context.Background())
		require.NoError(t, err)

		batchEvents := sink.ByStage(events.StageBatch)
		require.NotEmpty(t, batchEvents)
		last := batchEvents[len(batchEvents)-1]
		assert.Contains(t, last.Message, "2 total")
		assert.Contains(t, last.Message, "1 success")
		assert.Contains(t, last.Message, "1 skipped")
	})
}

func TestRunBatchRelativeBase(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on test(1)")
	}

	// Both execution modes must behave identically when the base folder is
	// a relative path: the subprocess child runs inside the variant
	// directory and must still see the scalar config.
	origWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	cfg := config.Default()
	require.NoError(t, os.MkdirAll(filepath.Join("base", "simulation"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join("base", "INP"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join("base", "INP", "piston_pr.inp"), []byte("1, 0.0\n"), 0644))
	layout := sweep.NewLayout("base", cfg)
	addVariant(t, layout, "IM_scaled_piston_1", true, false)

	t.Run("direct", func(t *testing.T) {
		coord := NewCoordinator(layout, cfg, &DirectRunner{Sink: events.NopSink{}}, events.NopSink{})
		summary, err := coord.RunBatch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, summary["IM_scaled_piston_1"].Status)
	})

	t.Run("subprocess child resolves the scalar config", func(t *testing.T) {
		runner := &SubprocessRunner{Binary: "test", Args: []string{"-f"}, Timeout: time.Minute}
		coord := NewCoordinator(layout, cfg, runner, events.NopSink{})
		summary, err := coord.RunBatch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, summary["IM_scaled_piston_1"].Status, summary["IM_scaled_piston_1"].Detail)
	})
}

func TestDiscoverVariants(t *testing.T) {
	layout, cfg := newTestRoot(t)
	addVariant(t, layout, "IM_scaled_piston_9", false, false)
	addVariant(t, layout, "IM_scaled_piston_10", false, false)
	require.NoError(t, os.MkdirAll(filepath.Join(layout.SimulationDir(), "T1"), 0755))

	coord := NewCoordinator(layout, cfg, &DirectRunner{Sink: events.NopSink{}}, events.NopSink{})
	names, err := coord.DiscoverVariants()
	require.NoError(t, err)
	// Lexicographic, and template sub-cases are not variants.
	assert.Equal(t, []string{"IM_scaled_piston_10", "IM_scaled_piston_9"}, names)
}

func TestCopyPistonPrFiles(t *testing.T) {
	t.Run("creates missing working subfolders and copies", func(t *testing.T) {
		layout, cfg := newTestRoot(t)
		addVariant(t, layout, "IM_scaled_piston_1", false, false)
		addVariant(t, layout, "IM_scaled_piston_2", false, false)

		coord := NewCoordinator(layout, cfg, &DirectRunner{Sink: events.NopSink{}}, events.NopSink{})
		copied, failed, err := coord.CopyPistonPrFiles()
		require.NoError(t, err)
		assert.Equal(t, 2, copied)
		assert.Zero(t, failed)

		for _, name := range []string{"IM_scaled_piston_1", "IM_scaled_piston_2"} {
			assert.FileExists(t, filepath.Join(layout.SimulationDir(), name, "IM_piston", "piston_pr.inp"))
		}
	})

	t.Run("source missing counts every variant as failed", func(t *testing.T) {
		layout, cfg := newTestRoot(t)
		addVariant(t, layout, "IM_scaled_piston_1", false, false)
		require.NoError(t, os.Remove(layout.PistonPrSource()))

		coord := NewCoordinator(layout, cfg, &DirectRunner{Sink: events.NopSink{}}, events.NopSink{})
		copied, failed, err := coord.CopyPistonPrFiles()
		require.NoError(t, err)
		assert.Zero(t, copied)
		assert.Equal(t, 1, failed)
	})
}
