package task

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelab/skelstitch/pkg/errors"
	"github.com/voxelab/skelstitch/pkg/skeleton"
	"github.com/voxelab/skelstitch/pkg/store"
	"github.com/voxelab/skelstitch/pkg/voxel"
)

// barSource serves overlapping chunk masks of one solid 40x3x3 bar at unit
// spacing: chunk 0 covers x 0-23, chunk 1 covers x 16-39.
func barSource(t *testing.T) MaskSource {
	t.Helper()
	return MaskFunc(func(ctx context.Context, objectID uint64, chunk [3]int) (*voxel.Mask, error) {
		offsets := map[[3]int]int{{0, 0, 0}: 0, {1, 0, 0}: 16}
		off, ok := offsets[chunk]
		if !ok {
			return nil, errors.New(errors.ErrCodeNotFound, "no chunk %v", chunk)
		}
		m, err := voxel.NewMask([3]int{24, 3, 3}, [3]int{off, 0, 0}, [3]float64{1, 1, 1})
		if err != nil {
			return nil, err
		}
		for i := range m.Data {
			m.Data[i] = true
		}
		return m, nil
	})
}

func barOptions() Options {
	return Options{
		// Margin 4 leaves exactly one overlap column shared by both
		// cropped fragments, which is what stitches them.
		CropMarginVoxels: 4,
		VolumeBounds: voxel.Bounds{
			Min: [3]float64{0, 0, 0},
			Max: [3]float64{40, 3, 3},
		},
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	runner := NewRunner(barSource(t), st, nil)
	opts := barOptions()

	chunks := [][3]int{{0, 0, 0}, {1, 0, 0}}
	results, err := runner.ProcessChunks(ctx, 42, chunks, opts)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for i, res := range results {
		assert.Equal(t, chunks[i], res.Chunk)
		assert.Greater(t, res.Kept, 0)
		assert.LessOrEqual(t, res.Kept, res.Extracted)
	}

	merged, err := runner.MergeObject(ctx, 42, opts)
	require.NoError(t, err)
	s := merged.Skeleton
	require.NoError(t, s.Validate())

	// The two cropped fragments share a seam node, so the merged skeleton
	// is one connected centerline spanning the whole bar.
	assert.Equal(t, 1, merged.Components)
	assert.Equal(t, 2, merged.Merge.Fragments)
	assert.Greater(t, merged.Merge.Coalesced, 0)

	leaves := 0
	for _, d := range s.Degrees() {
		if d == 1 {
			leaves++
		}
	}
	assert.Equal(t, 2, leaves)
	assert.InDelta(t, 40, s.TotalLength(), 8)

	// The versioned document is persisted and decodes back to the result.
	data, found, err := st.Get(ctx, merged.Key)
	require.NoError(t, err)
	require.True(t, found)
	doc, err := skeleton.ReadDocument(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, merged.Version, doc.Version)
	assert.Equal(t, uint64(42), doc.ObjectID)
	assert.Equal(t, s.NodeCount(), len(doc.Nodes))
}

func TestMergeVersionsDoNotClobber(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	runner := NewRunner(barSource(t), st, nil)
	opts := barOptions()

	_, err := runner.ProcessChunk(ctx, 42, [3]int{0, 0, 0}, opts)
	require.NoError(t, err)
	_, err = runner.ProcessChunk(ctx, 42, [3]int{1, 0, 0}, opts)
	require.NoError(t, err)

	first, err := runner.MergeObject(ctx, 42, opts)
	require.NoError(t, err)
	second, err := runner.MergeObject(ctx, 42, opts)
	require.NoError(t, err)

	assert.NotEqual(t, first.Version, second.Version)
	keys, err := st.List(ctx, "skeletons/42/")
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	// Same fragments, same options: the merged graphs are identical even
	// though the versions differ.
	assert.Equal(t, first.Skeleton.Nodes, second.Skeleton.Nodes)
	assert.Equal(t, first.Skeleton.Edges, second.Skeleton.Edges)
}

func TestProcessChunkIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	runner := NewRunner(barSource(t), st, nil)
	opts := barOptions()

	res, err := runner.ProcessChunk(ctx, 42, [3]int{0, 0, 0}, opts)
	require.NoError(t, err)
	firstData, _, err := st.Get(ctx, res.Key)
	require.NoError(t, err)

	res2, err := runner.ProcessChunk(ctx, 42, [3]int{0, 0, 0}, opts)
	require.NoError(t, err)
	secondData, _, err := st.Get(ctx, res2.Key)
	require.NoError(t, err)

	assert.Equal(t, res.Key, res2.Key)
	assert.Equal(t, firstData, secondData)
}

func TestMergeObjectNoFragments(t *testing.T) {
	runner := NewRunner(barSource(t), store.NewMemStore(), nil)
	_, err := runner.MergeObject(context.Background(), 99, barOptions())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFragmentNotFound, errors.GetCode(err))
}

func TestMergeObjectSurfacesCorruptFragment(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	require.NoError(t, st.Set(ctx, store.FragmentKey(42, [3]int{0, 0, 0}), []byte("not cbor")))

	runner := NewRunner(barSource(t), st, nil)
	_, err := runner.MergeObject(ctx, 42, barOptions())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFragmentCorrupt, errors.GetCode(err))
}

func TestOptionsValidation(t *testing.T) {
	bad := []Options{
		{Scale: -1},
		{MinPathLength: -1},
		{CropMarginVoxels: -1},
		{VolumeBounds: voxel.Bounds{Min: [3]float64{1, 0, 0}}},
	}
	for _, o := range bad {
		if err := o.ValidateAndSetDefaults(); err == nil {
			t.Errorf("options %+v should fail validation", o)
		} else if errors.GetCode(err) != errors.ErrCodeInvalidConfig {
			t.Errorf("options %+v: code = %s, want INVALID_CONFIG", o, errors.GetCode(err))
		}
	}

	var o Options
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Equal(t, 4.0, o.Scale)
	assert.Equal(t, 10.0, o.Const)
	assert.Equal(t, DefaultCropMarginVoxels, o.CropMarginVoxels)
	assert.Equal(t, DefaultMinBranchLength, o.MinBranchLength)
	assert.Greater(t, o.Workers, 0)
}

func TestJobRoundTrip(t *testing.T) {
	j := Job{Kind: JobChunk, ObjectID: 7, Chunk: [3]int{1, 2, 3}, Options: barOptions()}
	data, err := EncodeJob(j)
	require.NoError(t, err)

	got, err := DecodeJob(data)
	require.NoError(t, err)
	assert.Equal(t, j.Kind, got.Kind)
	assert.Equal(t, j.ObjectID, got.ObjectID)
	assert.Equal(t, j.Chunk, got.Chunk)
	assert.Equal(t, j.Options.CropMarginVoxels, got.Options.CropMarginVoxels)

	_, err = DecodeJob([]byte(`{"kind":"resample"}`))
	require.Error(t, err)

	_, err = DecodeJob([]byte("garbage"))
	require.Error(t, err)
}

func TestRunDispatch(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	runner := NewRunner(barSource(t), st, nil)
	opts := barOptions()

	for _, chunk := range [][3]int{{0, 0, 0}, {1, 0, 0}} {
		err := runner.Run(ctx, Job{Kind: JobChunk, ObjectID: 42, Chunk: chunk, Options: opts})
		require.NoError(t, err)
	}
	require.NoError(t, runner.Run(ctx, Job{Kind: JobMerge, ObjectID: 42, Options: opts}))

	keys, err := st.List(ctx, "skeletons/42/")
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	err = runner.Run(ctx, Job{Kind: "bogus"})
	require.Error(t, err)
}
