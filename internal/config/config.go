// Package config holds the sweep configuration. Everything has a working
// default matching the reference base-folder layout, so a config file is
// optional; sweep.yaml in the base folder overrides defaults, and a handful
// of environment variables override the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// SignConvention selects the direction the lZ0 formula moves with the scale
// factor. Both conventions exist in historical revisions of this pipeline
// and they are not equivalent; the choice is explicit, never inferred.
type SignConvention string

const (
	SignMinus SignConvention = "minus"
	SignPlus  SignConvention = "plus"
)

// BatchMode selects how the batch coordinator runs each rescale task.
type BatchMode string

const (
	// ModeDirect runs the rescale in-process.
	ModeDirect BatchMode = "direct"
	// ModeSubprocess runs each rescale as an isolated child process
	// bounded by TaskTimeout.
	ModeSubprocess BatchMode = "subprocess"
)

// Config is the full sweep configuration.
type Config struct {
	Layout LayoutConfig `yaml:"layout"`
	Derive DeriveConfig `yaml:"derive"`
	Batch  BatchConfig  `yaml:"batch"`
}

// LayoutConfig names the fixed files and folders of a base case.
type LayoutConfig struct {
	INPDir        string `yaml:"inp_dir"`
	SimulationDir string `yaml:"simulation_dir"`
	InflugenDir   string `yaml:"influgen_dir"`
	ZscalarDir    string `yaml:"zscalar_dir"`
	GeometryFile  string `yaml:"geometry_file"`
	PistonPrFile  string `yaml:"piston_pr_file"`
	ScalarFile    string `yaml:"scalar_file"`
	OptionFile    string `yaml:"option_file"`
	// OptionPathField is the tracked field inside the solver-option file
	// whose value is pointed at the variant's working subfolder.
	OptionPathField string `yaml:"option_path_field"`
	InputSubdir     string `yaml:"input_subdir"`
	WorkingSubdir   string `yaml:"working_subdir"`
	VariantPrefix   string `yaml:"variant_prefix"`
	SubCasePrefix   string `yaml:"subcase_prefix"`
}

// DeriveConfig controls the parameter derivation.
type DeriveConfig struct {
	LZ0Sign SignConvention `yaml:"l_z0_sign"`
}

// BatchConfig controls the batch execution phase.
type BatchConfig struct {
	Mode BatchMode `yaml:"mode"`
	// Workers sizes the pool; 0 means available parallelism.
	Workers int `yaml:"workers"`
	// TaskTimeout is a Go duration string ("5m"). Applies to subprocess
	// mode only.
	TaskTimeout string `yaml:"task_timeout"`
	// ScalerScript optionally points at an external rescale helper used in
	// subprocess mode instead of re-invoking this binary.
	ScalerScript string `yaml:"scaler_script"`
}

// TaskTimeoutDuration parses TaskTimeout, falling back to 5 minutes.
func (b BatchConfig) TaskTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(b.TaskTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// Default returns the configuration matching the reference layout.
func Default() *Config {
	return &Config{
		Layout: LayoutConfig{
			INPDir:          "INP",
			SimulationDir:   "simulation",
			InflugenDir:     "influgen",
			ZscalarDir:      "Zscalar",
			GeometryFile:    "geometry.txt",
			PistonPrFile:    "piston_pr.inp",
			ScalarFile:      "scalar.txt",
			OptionFile:      "options_piston.txt",
			OptionPathField: "IM_piston",
			InputSubdir:     "input",
			WorkingSubdir:   "IM_piston",
			VariantPrefix:   "IM_scaled_piston_",
			SubCasePrefix:   "T",
		},
		Derive: DeriveConfig{
			LZ0Sign: SignMinus,
		},
		Batch: BatchConfig{
			Mode:        ModeDirect,
			Workers:     0,
			TaskTimeout: "5m",
		},
	}
}

// Load reads a config file over the defaults. A missing file is not an
// error: defaults plus env overrides apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PISTONSWEEP_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Batch.Workers = n
		}
	}
	if v := os.Getenv("PISTONSWEEP_BATCH_MODE"); v != "" {
		c.Batch.Mode = BatchMode(v)
	}
	if v := os.Getenv("PISTONSWEEP_LZ0_SIGN"); v != "" {
		c.Derive.LZ0Sign = SignConvention(v)
	}
}

func (c *Config) validate() error {
	switch c.Derive.LZ0Sign {
	case SignMinus, SignPlus:
	default:
		return fmt.Errorf("invalid l_z0_sign %q (want minus or plus)", c.Derive.LZ0Sign)
	}
	switch c.Batch.Mode {
	case ModeDirect, ModeSubprocess:
	default:
		return fmt.Errorf("invalid batch mode %q (want direct or subprocess)", c.Batch.Mode)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Batch.Workers)
	}
	return nil
}
