package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxelab/skelstitch/pkg/skeleton"
)

// mergeCommand creates the merge command for stitching an object's fragments.
func (c *CLI) mergeCommand() *cobra.Command {
	var (
		configPath string
		objectID   uint64
		output     string
	)

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge an object's fragments into one skeleton",
		Long: `Merge an object's fragments into one skeleton.

All stored fragments of the object are stitched into a single skeleton,
short terminal branches are trimmed, and the result is persisted as a fresh
document version. Use --output to additionally write the document to a file.`,
		Example: `  skelstitch merge --config pipeline.toml --object 42 -o 42.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			runner, st, err := c.newRunner(cmd, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			opts := cfg.TaskOptions()

			p := newProgress(c.Logger)
			result, err := runner.MergeObject(cmd.Context(), objectID, opts)
			if err != nil {
				return fmt.Errorf("merge object %d: %w", objectID, err)
			}
			p.done(fmt.Sprintf("Merged %d fragments into %d nodes (version %s)",
				result.Merge.Fragments, result.Skeleton.NodeCount(), result.Version))

			if output != "" {
				doc := skeleton.NewDocument(result.Skeleton, result.Version)
				if err := skeleton.WriteDocumentFile(doc, output); err != nil {
					return err
				}
				c.Logger.Info("document written", "path", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "pipeline configuration file (TOML)")
	cmd.Flags().Uint64Var(&objectID, "object", 0, "object id to merge")
	cmd.Flags().StringVarP(&output, "output", "o", "", "also write the document to this file")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("object")

	return cmd
}
