package task

import (
	"runtime"

	"github.com/voxelab/skelstitch/pkg/errors"
	"github.com/voxelab/skelstitch/pkg/postprocess"
	"github.com/voxelab/skelstitch/pkg/skeletonize"
	"github.com/voxelab/skelstitch/pkg/voxel"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Workers
// =============================================================================

const (
	// DefaultCropMarginVoxels is the seam margin discarded from each chunk
	// fragment, in voxels per axis. It must stay below half the chunk
	// overlap or neighboring fragments lose their shared nodes.
	DefaultCropMarginVoxels = 2

	// DefaultMinBranchLength is the terminal-branch trim threshold in
	// physical units, applied to the merged skeleton.
	DefaultMinBranchLength = 20.0
)

// Options contains all configuration for chunk and merge tasks. The
// skeletonization constants are load-bearing for cross-run reproducibility:
// every worker processing chunks of the same volume must run with identical
// Options. The struct serializes to JSON so it can ride along in queued jobs.
type Options struct {
	// Skeletonization options
	Scale               float64 `json:"scale,omitempty"`
	Const               float64 `json:"const,omitempty"`
	PDRFScale           float64 `json:"pdrf_scale,omitempty"`
	PDRFExponent        float64 `json:"pdrf_exponent,omitempty"`
	MinPathLength       float64 `json:"min_path_length,omitempty"`
	Downsample          bool    `json:"downsample,omitempty"`
	DownsampleTolerance float64 `json:"downsample_tolerance,omitempty"`

	// Crop options
	CropMarginVoxels int `json:"crop_margin_voxels,omitempty"`

	// VolumeBounds is the global volume extent in physical coordinates,
	// used to tell seam faces from real volume boundaries. Required for
	// chunk tasks.
	VolumeBounds voxel.Bounds `json:"volume_bounds"`

	// Merge options
	MergeEpsilon float64 `json:"merge_epsilon,omitempty"`
	CycleHops    int     `json:"cycle_hops,omitempty"`
	CycleLength  float64 `json:"cycle_length,omitempty"`

	// Trim options
	MinBranchLength float64 `json:"min_branch_length,omitempty"`

	// Workers bounds parallel chunk processing. Zero means NumCPU.
	Workers int `json:"workers,omitempty"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// ValidateAndSetDefaults checks option sanity and applies defaults. This
// method is idempotent - calling it multiple times has the same effect as
// calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	if o.Scale < 0 || o.Const < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "scale and const must be non-negative")
	}
	if o.MinPathLength < 0 || o.MinBranchLength < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "length thresholds must be non-negative")
	}
	if o.CropMarginVoxels < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "crop margin must be non-negative")
	}
	for axis := 0; axis < 3; axis++ {
		if o.VolumeBounds.Max[axis] < o.VolumeBounds.Min[axis] {
			return errors.New(errors.ErrCodeInvalidConfig, "volume bounds inverted on axis %d", axis)
		}
	}

	if o.Scale == 0 {
		o.Scale = skeletonize.DefaultScale
	}
	if o.Const == 0 {
		o.Const = skeletonize.DefaultConst
	}
	if o.PDRFScale == 0 {
		o.PDRFScale = skeletonize.DefaultPDRFScale
	}
	if o.PDRFExponent == 0 {
		o.PDRFExponent = skeletonize.DefaultPDRFExponent
	}
	if o.CropMarginVoxels == 0 {
		o.CropMarginVoxels = DefaultCropMarginVoxels
	}
	if o.MergeEpsilon == 0 {
		o.MergeEpsilon = postprocess.DefaultMergeEpsilon
	}
	if o.CycleHops == 0 {
		o.CycleHops = postprocess.DefaultCycleHops
	}
	if o.MinBranchLength == 0 {
		o.MinBranchLength = DefaultMinBranchLength
	}
	if o.Workers == 0 {
		o.Workers = runtime.NumCPU()
	}

	o.validated = true
	return nil
}

// SkeletonizeConfig converts the options into extraction parameters.
func (o *Options) SkeletonizeConfig() skeletonize.Config {
	return skeletonize.Config{
		Scale:               o.Scale,
		Const:               o.Const,
		PDRFScale:           o.PDRFScale,
		PDRFExponent:        o.PDRFExponent,
		MinPathLength:       o.MinPathLength,
		Downsample:          o.Downsample,
		DownsampleTolerance: o.DownsampleTolerance,
	}
}

// MergeConfig converts the options into fragment stitching parameters.
func (o *Options) MergeConfig() postprocess.MergeConfig {
	return postprocess.MergeConfig{
		Epsilon:     o.MergeEpsilon,
		CycleHops:   o.CycleHops,
		CycleLength: o.CycleLength,
	}
}

// CropMargin converts the voxel margin into per-axis physical units.
func (o *Options) CropMargin(spacing [3]float64) [3]float64 {
	return [3]float64{
		float64(o.CropMarginVoxels) * spacing[0],
		float64(o.CropMarginVoxels) * spacing[1],
		float64(o.CropMarginVoxels) * spacing[2],
	}
}
