// Package pkg provides the core libraries for skelstitch skeleton extraction.
//
// # Overview
//
// Skelstitch turns segmented voxel volumes into centerline skeletons. Volumes
// too large for one machine are processed in overlapping chunks, and the
// per-chunk results are stitched back into one skeleton per object. The pkg
// directory is organized into these areas:
//
//  1. [voxel] - Mask grids, physical coordinates, mask file format
//  2. [skeleton] - Skeleton graph model, fragments, document serialization
//  3. [skeletonize] - Centerline extraction from one mask
//  4. [postprocess] - Seam cropping, fragment merging, branch trimming
//  5. [task] - Chunk/merge task façade for schedulers and the CLI
//  6. [store] - Fragment and document persistence (file, redis, memory)
//
// # Architecture
//
// The typical data flow through skelstitch:
//
//	Chunk masks (overlapping)
//	         ↓
//	    [skeletonize] package (per-chunk centerline extraction)
//	         ↓
//	    [postprocess] Crop (discard unreliable seam nodes)
//	         ↓
//	    [store] fragments
//	         ↓
//	    [postprocess] Merge + Trim (one skeleton per object)
//	         ↓
//	    versioned skeleton document (JSON)
//
// # Quick Start
//
// Skeletonize a single in-memory mask:
//
//	s, err := skeletonize.Skeletonize(ctx, mask, skeletonize.DefaultConfig())
//
// Run the chunked pipeline:
//
//	runner := task.NewRunner(masks, st, logger)
//	results, err := runner.ProcessChunks(ctx, objectID, chunks, opts)
//	merged, err := runner.MergeObject(ctx, objectID, opts)
package pkg
