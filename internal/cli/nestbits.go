package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ploxora/internal/nestbits"
)

var importURL string

var nestbitsCmd = &cobra.Command{
	Use:   "nestbits",
	Short: "Manage the image catalogue",
}

var nestbitsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import nestbits from a JSON catalogue",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		added, err := a.NestBits.Import(context.Background(), importURL)
		for _, nb := range added {
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s (%s)\n", nb.Name, nb.Version, nb.DockerImage)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d nestbits imported\n", len(added))
		return nil
	},
}

func init() {
	nestbitsImportCmd.Flags().StringVar(&importURL, "url", nestbits.DefaultRepoURL, "Catalogue URL")
	nestbitsCmd.AddCommand(nestbitsImportCmd)
	RootCmd.AddCommand(nestbitsCmd)
}
