package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyjia/stocktake/internal/application/service"
)

func exportCmd(a *app) *cobra.Command {
	var output, area string

	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write an item list back out as a stocktake CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := a.importRun(cmd, args[0])
			if err != nil {
				return err
			}

			var file *service.ExportFile
			if area != "" {
				file, err = a.stocktake.ExportArea(cmd.Context(), run.ID, area)
			} else {
				file, err = a.stocktake.ExportAll(cmd.Context(), run.ID)
			}
			if err != nil {
				return err
			}

			path, err := a.writeOutput(output, file.FileName, file.Data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: export dir and a generated name)")
	cmd.Flags().StringVar(&area, "area", "", "export a single area")
	return cmd
}
