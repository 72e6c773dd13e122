package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// chunkCommand creates the chunk command for running chunk tasks.
func (c *CLI) chunkCommand() *cobra.Command {
	var (
		configPath string
		objectID   uint64
		chunkStrs  []string
	)

	cmd := &cobra.Command{
		Use:   "chunk",
		Short: "Skeletonize chunks of an object and persist the fragments",
		Long: `Skeletonize chunks of an object and persist the fragments.

Each chunk's mask is loaded from the configured mask directory, skeletonized,
cropped at seam faces, and stored as a fragment. Chunks are processed in
parallel up to the configured worker count. Rerunning a chunk overwrites its
fragment, so retries are safe.

Once every chunk covering the object has been processed, run 'merge'.`,
		Example: `  skelstitch chunk --config pipeline.toml --object 42 --chunk 0,0,0 --chunk 1,0,0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			chunks := make([][3]int, len(chunkStrs))
			for i, s := range chunkStrs {
				if chunks[i], err = parseChunkCoord(s); err != nil {
					return err
				}
			}

			runner, st, err := c.newRunner(cmd, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			opts := cfg.TaskOptions()

			p := newProgress(c.Logger)
			results, err := runner.ProcessChunks(cmd.Context(), objectID, chunks, opts)
			if err != nil {
				return fmt.Errorf("process chunks for object %d: %w", objectID, err)
			}
			kept := 0
			for _, res := range results {
				kept += res.Kept
			}
			p.done(fmt.Sprintf("Processed %d chunks, %d fragment nodes", len(results), kept))
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "pipeline configuration file (TOML)")
	cmd.Flags().Uint64Var(&objectID, "object", 0, "object id to skeletonize")
	cmd.Flags().StringArrayVar(&chunkStrs, "chunk", nil, "chunk coordinate x,y,z (repeatable)")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("object")
	_ = cmd.MarkFlagRequired("chunk")

	return cmd
}
