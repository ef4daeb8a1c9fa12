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

	"github.com/fluidpower-lab/pistonsweep/internal/events"
)

func TestDirectRunner(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "piston.inp"),
			[]byte("*NODE\n1, 0.0, 0.0, 5.0\n*END\n"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "scalar.txt"),
			[]byte("piston.inp\npiston_scaled.inp\n0 0\n10 20\n"), 0644))

		r := &DirectRunner{Sink: events.NopSink{}}
		res := r.Run(context.Background(), filepath.Join(dir, "scalar.txt"), dir)
		assert.Equal(t, StatusSuccess, res.Status)
		assert.FileExists(t, filepath.Join(dir, "piston_scaled.inp"))
	})

	t.Run("rescale error becomes a failed status, not a panic", func(t *testing.T) {
		r := &DirectRunner{Sink: events.NopSink{}}
		res := r.Run(context.Background(), filepath.Join(t.TempDir(), "scalar.txt"), "")
		assert.Equal(t, StatusFailed, res.Status)
		assert.Contains(t, res.Detail, "scalar config not found")
	})
}

func TestSubprocessRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on sh")
	}

	t.Run("non-zero exit is a failed status", func(t *testing.T) {
		r := &SubprocessRunner{Binary: "sh", Args: []string{"-c", "exit 3"}, Timeout: time.Minute}
		res := r.Run(context.Background(), "unused", t.TempDir())
		assert.Equal(t, StatusFailed, res.Status)
		assert.Contains(t, res.Detail, "exit code 3")
	})

	t.Run("runaway task times out", func(t *testing.T) {
		r := &SubprocessRunner{Binary: "sh", Args: []string{"-c", "sleep 10"}, Timeout: 100 * time.Millisecond}
		res := r.Run(context.Background(), "unused", t.TempDir())
		assert.Equal(t, StatusTimeout, res.Status)
	})

	t.Run("unlaunchable binary is an error status", func(t *testing.T) {
		r := &SubprocessRunner{Binary: filepath.Join(t.TempDir(), "missing-binary"), Timeout: time.Minute}
		res := r.Run(context.Background(), "unused", t.TempDir())
		assert.Equal(t, StatusError, res.Status)
	})

	t.Run("success", func(t *testing.T) {
		r := &SubprocessRunner{Binary: "true", Timeout: time.Minute}
		res := r.Run(context.Background(), "unused", t.TempDir())
		assert.Equal(t, StatusSuccess, res.Status)
	})
}

func TestFindScalerScript(t *testing.T) {
	t.Run("explicit override must exist", func(t *testing.T) {
		dir := t.TempDir()
		script := filepath.Join(dir, "zscaler")
		require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"), 0755))

		got, err := FindScalerScript(script, dir, "zscaler")
		require.NoError(t, err)
		assert.Equal(t, script, got)

		_, err = FindScalerScript(filepath.Join(dir, "absent"), dir, "zscaler")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "explicit path")
	})

	t.Run("falls back to the base folder", func(t *testing.T) {
		base := t.TempDir()
		script := filepath.Join(base, "zscaler")
		require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"), 0755))

		got, err := FindScalerScript("", base, "zscaler")
		require.NoError(t, err)
		assert.Equal(t, script, got)
	})

	t.Run("not found reports the searched locations", func(t *testing.T) {
		base := t.TempDir()
		_, err := FindScalerScript("", base, "zscaler-nowhere")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "searched:")
		assert.Contains(t, err.Error(), base)
	})
}

func TestSummary(t *testing.T) {
	s := Summary{
		"IM_scaled_piston_1": {Status: StatusSuccess},
		"IM_scaled_piston_2": {Status: StatusSkipped},
		"IM_scaled_piston_3": {Status: StatusFailed, Detail: "exit code 1"},
	}

	assert.Equal(t, 1, s.Count(StatusSuccess))
	assert.Equal(t, 1, s.Count(StatusSkipped))
	assert.Equal(t, 1, s.Count(StatusFailed))
	assert.False(t, s.AllSucceeded())
	assert.Equal(t, []string{"IM_scaled_piston_1", "IM_scaled_piston_2", "IM_scaled_piston_3"}, s.Names())
	assert.Contains(t, s.String(), "IM_scaled_piston_3: failed - exit code 1")

	ok := Summary{
		"IM_scaled_piston_1": {Status: StatusSuccess},
		"IM_scaled_piston_2": {Status: StatusSkipped},
	}
	assert.True(t, ok.AllSucceeded())
	assert.False(t, Summary{"IM_scaled_piston_1": {Status: StatusSkipped}}.AllSucceeded())
}
