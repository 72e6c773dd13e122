package task

import (
	"context"
	"encoding/json"

	"github.com/voxelab/skelstitch/pkg/errors"
)

// JobKind discriminates queued job payloads.
type JobKind string

// Job kinds.
const (
	JobChunk JobKind = "chunk"
	JobMerge JobKind = "merge"
)

// Job is the wire form of one unit of work, as placed on a queue by the
// scheduler and consumed by workers. Chunk jobs carry the chunk coordinate;
// merge jobs leave it zero.
type Job struct {
	Kind     JobKind `json:"kind"`
	ObjectID uint64  `json:"object_id"`
	Chunk    [3]int  `json:"chunk,omitempty"`
	Options  Options `json:"options"`
}

// EncodeJob serializes a job for queueing.
func EncodeJob(j Job) ([]byte, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode %s job for object %d", j.Kind, j.ObjectID)
	}
	return data, nil
}

// DecodeJob deserializes a queued job.
func DecodeJob(data []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return Job{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode job")
	}
	switch j.Kind {
	case JobChunk, JobMerge:
		return j, nil
	default:
		return Job{}, errors.New(errors.ErrCodeInvalidInput, "unknown job kind %q", j.Kind)
	}
}

// Run dispatches a job to the matching runner method.
func (r *Runner) Run(ctx context.Context, j Job) error {
	switch j.Kind {
	case JobChunk:
		_, err := r.ProcessChunk(ctx, j.ObjectID, j.Chunk, j.Options)
		return err
	case JobMerge:
		_, err := r.MergeObject(ctx, j.ObjectID, j.Options)
		return err
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown job kind %q", j.Kind)
	}
}
