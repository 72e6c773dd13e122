// Package task is the pipeline façade: it turns the extraction and
// stitching primitives into the two retryable units of work a scheduler
// deals in.
//
// # Architecture
//
// A volume is processed in two phases:
//
//  1. Chunk tasks: one per (object, chunk). Load the chunk's mask,
//     skeletonize it, crop the seam margins, and persist the fragment.
//     Chunk tasks are independent and run in any order, in parallel,
//     on any number of workers.
//  2. Merge tasks: one per object, after every covering chunk task is
//     done. Load all fragments, stitch them into one skeleton, trim
//     terminal noise, and persist the versioned result document.
//
// Both task kinds are idempotent: reprocessing a chunk overwrites its
// fragment with identical bytes, and every merge run writes under a fresh
// version so repeated merges never clobber each other.
//
// # Usage
//
//	runner := task.NewRunner(masks, st, logger)
//	opts := task.Options{VolumeBounds: bounds}
//	for _, chunk := range chunks {
//	    if _, err := runner.ProcessChunk(ctx, objectID, chunk, opts); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//	result, err := runner.MergeObject(ctx, objectID, opts)
package task

import (
	"context"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/voxelab/skelstitch/pkg/errors"
	"github.com/voxelab/skelstitch/pkg/observability"
	"github.com/voxelab/skelstitch/pkg/postprocess"
	"github.com/voxelab/skelstitch/pkg/skeleton"
	"github.com/voxelab/skelstitch/pkg/skeletonize"
	"github.com/voxelab/skelstitch/pkg/store"
	"github.com/voxelab/skelstitch/pkg/voxel"
)

// MaskSource provides the voxel mask for one (object, chunk) pair. Chunk
// masks must overlap their neighbors and agree on the global voxel grid, or
// fragments will not stitch.
type MaskSource interface {
	Mask(ctx context.Context, objectID uint64, chunk [3]int) (*voxel.Mask, error)
}

// Runner executes chunk and merge tasks against a store.
type Runner struct {
	masks  MaskSource
	store  store.Store
	logger *log.Logger
}

// NewRunner creates a task runner. logger may be nil for silent operation.
func NewRunner(masks MaskSource, st store.Store, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{masks: masks, store: st, logger: logger}
}

// ChunkResult summarizes one completed chunk task.
type ChunkResult struct {
	ObjectID  uint64
	Chunk     [3]int
	Key       string // store key of the persisted fragment
	Extracted int    // nodes before seam cropping
	Kept      int    // nodes in the persisted fragment
	Duration  time.Duration
}

// MergeResult summarizes one completed merge task.
type MergeResult struct {
	ObjectID   uint64
	Version    string // merge run id, part of the result's store key
	Key        string // store key of the persisted document
	Skeleton   *skeleton.Skeleton
	Merge      *postprocess.Report
	Trimmed    int // nodes removed as terminal noise
	Components int
	Duration   time.Duration
}

// ProcessChunk runs one chunk task: load the mask, extract the centerline,
// crop the seam margins, and persist the fragment.
func (r *Runner) ProcessChunk(ctx context.Context, objectID uint64, chunk [3]int, opts Options) (*ChunkResult, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	start := time.Now()
	observability.Tasks().OnChunkStart(ctx, objectID, chunk)
	res, err := r.processChunk(ctx, objectID, chunk, opts, start)
	nodes := 0
	if res != nil {
		nodes = res.Kept
	}
	observability.Tasks().OnChunkComplete(ctx, objectID, chunk, nodes, time.Since(start), err)
	return res, err
}

func (r *Runner) processChunk(ctx context.Context, objectID uint64, chunk [3]int, opts Options, start time.Time) (*ChunkResult, error) {
	logger := r.logger.With("object", objectID, "chunk", chunk)

	mask, err := r.masks.Mask(ctx, objectID, chunk)
	if err != nil {
		return nil, err
	}

	skel, err := skeletonize.Skeletonize(ctx, mask, opts.SkeletonizeConfig())
	if err != nil {
		return nil, err
	}
	skel.ObjectID = objectID

	cropped := postprocess.Crop(skel, mask.Bounds(), opts.VolumeBounds, opts.CropMargin(mask.Spacing))

	frag := skeleton.NewFragment(cropped, chunk, opts.CropMarginVoxels)
	data, err := skeleton.EncodeFragment(frag)
	if err != nil {
		return nil, err
	}
	key := store.FragmentKey(objectID, chunk)
	if err := r.store.Set(ctx, key, data); err != nil {
		return nil, err
	}

	result := &ChunkResult{
		ObjectID:  objectID,
		Chunk:     chunk,
		Key:       key,
		Extracted: skel.NodeCount(),
		Kept:      cropped.NodeCount(),
		Duration:  time.Since(start),
	}
	logger.Info("chunk skeletonized",
		"extracted", result.Extracted,
		"kept", result.Kept,
		"duration", result.Duration)
	return result, nil
}

// ProcessChunks runs chunk tasks for all listed chunks with bounded
// parallelism (opts.Workers). The first failure cancels the rest; results
// are returned in chunk order.
func (r *Runner) ProcessChunks(ctx context.Context, objectID uint64, chunks [][3]int, opts Options) ([]*ChunkResult, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	results := make([]*ChunkResult, len(chunks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			res, err := r.ProcessChunk(ctx, objectID, chunk, opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MergeObject runs the merge task for one object: load every persisted
// fragment, stitch, trim, and persist a fresh version of the skeleton
// document. At least one fragment must exist.
func (r *Runner) MergeObject(ctx context.Context, objectID uint64, opts Options) (*MergeResult, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := r.mergeObject(ctx, objectID, opts, start)
	nodes, components := 0, 0
	if res != nil {
		nodes = res.Skeleton.NodeCount()
		components = res.Components
	}
	observability.Tasks().OnMergeComplete(ctx, objectID, nodes, components, time.Since(start), err)
	return res, err
}

func (r *Runner) mergeObject(ctx context.Context, objectID uint64, opts Options, start time.Time) (*MergeResult, error) {
	logger := r.logger.With("object", objectID)

	keys, err := r.store.List(ctx, store.FragmentPrefix(objectID))
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, errors.New(errors.ErrCodeFragmentNotFound, "no fragments stored for object %d", objectID)
	}
	// Listing order is backend-dependent; sort so the merge is reproducible.
	slices.Sort(keys)
	observability.Tasks().OnMergeStart(ctx, objectID, len(keys))

	frags := make([]*skeleton.Fragment, 0, len(keys))
	for _, key := range keys {
		data, found, err := r.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errors.New(errors.ErrCodeFragmentNotFound, "fragment %q vanished during merge", key)
		}
		frag, err := skeleton.DecodeFragment(data)
		if err != nil {
			return nil, err
		}
		if frag.ObjectID != objectID {
			return nil, errors.New(errors.ErrCodeObjectMismatch,
				"fragment %q carries object %d", key, frag.ObjectID)
		}
		frags = append(frags, frag)
	}

	merged, report, err := postprocess.Merge(frags, opts.MergeConfig())
	if err != nil {
		return nil, err
	}
	if report.Components > 1 {
		// Usually means the chunk overlap was smaller than twice the crop
		// margin. The result is still persisted; the caller decides.
		logger.Warn("merged skeleton is disconnected",
			"components", report.Components,
			"fragments", report.Fragments)
	}

	trimmed := postprocess.Trim(merged, opts.MinBranchLength)

	version := uuid.NewString()
	doc := skeleton.NewDocument(trimmed, version)
	data, err := skeleton.MarshalDocument(doc)
	if err != nil {
		return nil, err
	}
	key := store.SkeletonKey(objectID, version)
	if err := r.store.Set(ctx, key, data); err != nil {
		return nil, err
	}

	result := &MergeResult{
		ObjectID:   objectID,
		Version:    version,
		Key:        key,
		Skeleton:   trimmed,
		Merge:      report,
		Trimmed:    merged.NodeCount() - trimmed.NodeCount(),
		Components: trimmed.ComponentCount(),
		Duration:   time.Since(start),
	}
	logger.Info("object merged",
		"version", version,
		"fragments", report.Fragments,
		"nodes", trimmed.NodeCount(),
		"trimmed", result.Trimmed,
		"components", result.Components,
		"duration", result.Duration)
	return result, nil
}
