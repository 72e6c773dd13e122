package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/voxelab/skelstitch/pkg/skeleton"
	"github.com/voxelab/skelstitch/pkg/skeletonize"
	"github.com/voxelab/skelstitch/pkg/voxel"
)

// skeletonizeCommand creates the skeletonize command for single-mask usage.
func (c *CLI) skeletonizeCommand() *cobra.Command {
	var (
		output   string
		objectID uint64
	)
	cfg := skeletonize.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "skeletonize [mask file]",
		Short: "Extract a centerline skeleton from a voxel mask",
		Long: `Extract a centerline skeleton from a voxel mask.

The skeletonize command reads one mask file, extracts the centerline of its
foreground, and writes the skeleton as a JSON document to stdout or --output.
This is the single-volume path; for chunked volumes use 'chunk' and 'merge'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mask, err := voxel.ReadMaskFile(args[0])
			if err != nil {
				return err
			}
			c.Logger.Debug("mask loaded", "shape", mask.Shape, "foreground", mask.Count())

			p := newProgress(c.Logger)
			s, err := skeletonize.Skeletonize(cmd.Context(), mask, cfg)
			if err != nil {
				return fmt.Errorf("skeletonize %s: %w", args[0], err)
			}
			s.ObjectID = objectID
			p.done(fmt.Sprintf("Extracted %d nodes, %d edges", s.NodeCount(), s.EdgeCount()))

			doc := skeleton.NewDocument(s, uuid.NewString())
			if output == "" {
				return skeleton.WriteDocument(doc, os.Stdout)
			}
			if err := skeleton.WriteDocumentFile(doc, output); err != nil {
				return err
			}
			c.Logger.Info("skeleton written", "path", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().Uint64Var(&objectID, "object", 0, "object id recorded in the document")
	cmd.Flags().Float64Var(&cfg.Scale, "scale", cfg.Scale, "invalidation radius scale factor")
	cmd.Flags().Float64Var(&cfg.Const, "const", cfg.Const, "invalidation radius constant (physical units)")
	cmd.Flags().Float64Var(&cfg.MinPathLength, "min-path-length", cfg.MinPathLength, "discard traced branches shorter than this (physical units)")
	cmd.Flags().BoolVar(&cfg.Downsample, "downsample", cfg.Downsample, "collapse nearly-colinear node chains")
	cmd.Flags().Float64Var(&cfg.DownsampleTolerance, "downsample-tolerance", cfg.DownsampleTolerance, "max deviation when downsampling (0 = half min spacing)")

	return cmd
}
