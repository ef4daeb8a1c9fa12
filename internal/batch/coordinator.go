package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fluidpower-lab/pistonsweep/internal/config"
	"github.com/fluidpower-lab/pistonsweep/internal/events"
	"github.com/fluidpower-lab/pistonsweep/internal/sweep"
)

// Coordinator fans the rescale out over the discovered variants. Each task
// reads and writes only files inside its own variant directory, so the pool
// needs no locking beyond the result map.
type Coordinator struct {
	layout  *sweep.Layout
	cfg     *config.Config
	runner  Runner
	sink    events.Sink
	workers int
}

func NewCoordinator(layout *sweep.Layout, cfg *config.Config, runner Runner, sink events.Sink) *Coordinator {
	workers := cfg.Batch.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Coordinator{
		layout:  layout,
		cfg:     cfg,
		runner:  runner,
		sink:    sink,
		workers: workers,
	}
}

// DiscoverVariants lists the variant directories under the simulation root
// in lexicographic order.
func (c *Coordinator) DiscoverVariants() ([]string, error) {
	root := c.layout.SimulationDir()
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("simulation folder not found: %s", root)
		}
		return nil, fmt.Errorf("read simulation folder %s: %w", root, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), c.cfg.Layout.VariantPrefix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// RunBatch executes the rescale for every discovered variant. Global
// precondition failures (no simulation root, no variants) return an error
// with nothing executed; per-variant outcomes land in the Summary and never
// abort the loop.
func (c *Coordinator) RunBatch(ctx context.Context) (Summary, error) {
	variants, err := c.DiscoverVariants()
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("no %s* variant directories found in %s",
			c.cfg.Layout.VariantPrefix, c.layout.SimulationDir())
	}

	summary := make(Summary, len(variants))
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.workers)

	for _, name := range variants {
		name := name
		eg.Go(func() error {
			res := c.runVariant(egCtx, name)
			mu.Lock()
			summary[name] = res
			mu.Unlock()
			// Isolation rule: task outcomes are data, not errors.
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return summary, err
	}

	c.sink.Emit(events.Event{
		Stage: events.StageBatch,
		Level: events.LevelInfo,
		Message: fmt.Sprintf("batch finished: %d total, %d success, %d failed, %d skipped, %d timeout, %d error",
			len(summary), summary.Count(StatusSuccess), summary.Count(StatusFailed),
			summary.Count(StatusSkipped), summary.Count(StatusTimeout), summary.Count(StatusError)),
	})
	return summary, nil
}

func (c *Coordinator) runVariant(ctx context.Context, name string) Result {
	// The subprocess child runs with the variant directory as its working
	// directory, so a base-relative path would resolve differently per
	// mode; absolute paths keep the two modes identical.
	variantDir, err := filepath.Abs(filepath.Join(c.layout.SimulationDir(), name))
	if err != nil {
		return Result{Status: StatusError, Detail: "resolve variant directory: " + err.Error()}
	}
	scalarPath := filepath.Join(variantDir, c.cfg.Layout.ScalarFile)

	if _, err := os.Stat(scalarPath); err != nil {
		c.sink.Emit(events.Event{
			Stage:   events.StageBatch,
			Level:   events.LevelWarn,
			Item:    name,
			Message: c.cfg.Layout.ScalarFile + " not found, skipping",
		})
		return Result{Status: StatusSkipped, Detail: "no " + c.cfg.Layout.ScalarFile}
	}

	res := c.runner.Run(ctx, scalarPath, variantDir)

	level := events.LevelInfo
	msg := "rescale " + string(res.Status)
	if res.Status != StatusSuccess {
		level = events.LevelError
		if res.Detail != "" {
			msg += ": " + res.Detail
		}
	}
	c.sink.Emit(events.Event{Stage: events.StageBatch, Level: level, Item: name, Message: msg})
	return res
}

// CopyPistonPrFiles replicates the auxiliary piston_pr input into each
// variant's working subfolder, creating the subfolder when missing. Each
// variant is independent; failures are counted, not propagated.
func (c *Coordinator) CopyPistonPrFiles() (copied int, failed int, err error) {
	variants, err := c.DiscoverVariants()
	if err != nil {
		return 0, 0, err
	}
	if len(variants) == 0 {
		return 0, 0, fmt.Errorf("no %s* variant directories found in %s",
			c.cfg.Layout.VariantPrefix, c.layout.SimulationDir())
	}

	src := c.layout.PistonPrSource()
	for _, name := range variants {
		working := filepath.Join(c.layout.SimulationDir(), name, c.cfg.Layout.WorkingSubdir)
		if mkErr := os.MkdirAll(working, 0755); mkErr != nil {
			failed++
			c.sink.Emit(events.Event{
				Stage: events.StageCopy, Level: events.LevelError, Item: name,
				Message: "create working subfolder failed", Err: mkErr,
			})
			continue
		}
		dst := filepath.Join(working, c.cfg.Layout.PistonPrFile)
		if cpErr := copyFile(src, dst); cpErr != nil {
			failed++
			c.sink.Emit(events.Event{
				Stage: events.StageCopy, Level: events.LevelError, Item: name,
				Message: "copy " + c.cfg.Layout.PistonPrFile + " failed", Err: cpErr,
			})
			continue
		}
		copied++
		c.sink.Emit(events.Event{
			Stage: events.StageCopy, Level: events.LevelInfo, Item: name,
			Message: "copied " + c.cfg.Layout.PistonPrFile,
		})
	}
	return copied, failed, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
