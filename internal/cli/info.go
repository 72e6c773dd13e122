package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxelab/skelstitch/pkg/skeleton"
)

// infoCommand creates the info command for inspecting skeleton documents.
func (c *CLI) infoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info [document.json]",
		Short: "Print statistics for a skeleton document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := skeleton.ReadDocumentFile(args[0])
			if err != nil {
				return err
			}
			s := doc.Skeleton()

			leaves, branches := 0, 0
			for _, d := range s.Degrees() {
				switch {
				case d == 1:
					leaves++
				case d >= 3:
					branches++
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "object:      %d\n", doc.ObjectID)
			fmt.Fprintf(out, "version:     %s\n", doc.Version)
			fmt.Fprintf(out, "nodes:       %d\n", s.NodeCount())
			fmt.Fprintf(out, "edges:       %d\n", s.EdgeCount())
			fmt.Fprintf(out, "components:  %d\n", s.ComponentCount())
			fmt.Fprintf(out, "endpoints:   %d\n", leaves)
			fmt.Fprintf(out, "branchings:  %d\n", branches)
			fmt.Fprintf(out, "length:      %.2f\n", s.TotalLength())
			return nil
		},
	}
	return cmd
}
