package cli

import (
	"os"

	"github.com/shayne-snap/traindash/internal/display"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List trainable models from the config",
	RunE: func(cmd *cobra.Command, args []string) error {
		display.Models(os.Stdout, cfg.Models, globalJSON)
		return nil
	},
}
