package cli

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/voxelab/skelstitch/pkg/errors"
	"github.com/voxelab/skelstitch/pkg/task"
	"github.com/voxelab/skelstitch/pkg/voxel"
)

// Store backend names accepted in configuration.
const (
	StoreFile  = "file"
	StoreRedis = "redis"
)

// Config is the TOML pipeline configuration shared by the chunk and merge
// commands. Every worker operating on the same volume must run with the same
// file, since the extraction constants determine where skeleton nodes land
// and therefore whether fragments stitch.
//
// Example:
//
//	masks_dir = "/data/masks"
//	store = "redis"
//	redis_addr = "localhost:6379"
//
//	[volume]
//	min = [0.0, 0.0, 0.0]
//	max = [49152.0, 49152.0, 12000.0]
//
//	[skeletonize]
//	min_path_length = 50.0
//	downsample = true
//
//	[merge]
//	min_branch_length = 100.0
type Config struct {
	MasksDir  string `toml:"masks_dir"`
	Store     string `toml:"store"`
	StoreDir  string `toml:"store_dir"`
	RedisAddr string `toml:"redis_addr"`
	Workers   int    `toml:"workers"`

	Volume struct {
		Min [3]float64 `toml:"min"`
		Max [3]float64 `toml:"max"`
	} `toml:"volume"`

	Skeletonize struct {
		Scale               float64 `toml:"scale"`
		Const               float64 `toml:"const"`
		PDRFScale           float64 `toml:"pdrf_scale"`
		PDRFExponent        float64 `toml:"pdrf_exponent"`
		MinPathLength       float64 `toml:"min_path_length"`
		Downsample          bool    `toml:"downsample"`
		DownsampleTolerance float64 `toml:"downsample_tolerance"`
		CropMarginVoxels    int     `toml:"crop_margin_voxels"`
	} `toml:"skeletonize"`

	Merge struct {
		Epsilon         float64 `toml:"epsilon"`
		CycleHops       int     `toml:"cycle_hops"`
		CycleLength     float64 `toml:"cycle_length"`
		MinBranchLength float64 `toml:"min_branch_length"`
	} `toml:"merge"`
}

// LoadConfig reads and parses a TOML configuration file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeNotFound, "config file %s does not exist", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	return &cfg, nil
}

// TaskOptions converts the configuration into task options. Zero fields fall
// through to the task defaults.
func (c *Config) TaskOptions() task.Options {
	return task.Options{
		Scale:               c.Skeletonize.Scale,
		Const:               c.Skeletonize.Const,
		PDRFScale:           c.Skeletonize.PDRFScale,
		PDRFExponent:        c.Skeletonize.PDRFExponent,
		MinPathLength:       c.Skeletonize.MinPathLength,
		Downsample:          c.Skeletonize.Downsample,
		DownsampleTolerance: c.Skeletonize.DownsampleTolerance,
		CropMarginVoxels:    c.Skeletonize.CropMarginVoxels,
		VolumeBounds:        voxel.Bounds{Min: c.Volume.Min, Max: c.Volume.Max},
		MergeEpsilon:        c.Merge.Epsilon,
		CycleHops:           c.Merge.CycleHops,
		CycleLength:         c.Merge.CycleLength,
		MinBranchLength:     c.Merge.MinBranchLength,
		Workers:             c.Workers,
	}
}
