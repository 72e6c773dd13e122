package task

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/voxelab/skelstitch/pkg/errors"
	"github.com/voxelab/skelstitch/pkg/voxel"
)

// DirMaskSource reads chunk masks from a directory tree laid out as
//
//	<dir>/<object>/<cx>_<cy>_<cz>.mask
//
// which is the layout the CLI's mask export produces.
type DirMaskSource struct {
	Dir string
}

// Mask loads one chunk mask file.
func (s DirMaskSource) Mask(ctx context.Context, objectID uint64, chunk [3]int) (*voxel.Mask, error) {
	path := filepath.Join(s.Dir,
		fmt.Sprintf("%d", objectID),
		fmt.Sprintf("%d_%d_%d.mask", chunk[0], chunk[1], chunk[2]))
	m, err := voxel.ReadMaskFile(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, errors.New(errors.ErrCodeNotFound, "no mask for object %d chunk %v under %s", objectID, chunk, s.Dir)
	}
	return m, err
}

// MaskFunc adapts a function to the MaskSource interface, mainly for tests
// and embedders that generate masks on the fly.
type MaskFunc func(ctx context.Context, objectID uint64, chunk [3]int) (*voxel.Mask, error)

// Mask calls the function.
func (f MaskFunc) Mask(ctx context.Context, objectID uint64, chunk [3]int) (*voxel.Mask, error) {
	return f(ctx, objectID, chunk)
}

// Ensure both implement MaskSource.
var (
	_ MaskSource = DirMaskSource{}
	_ MaskSource = MaskFunc(nil)
)
