package cli

import (
	"os"

	"github.com/shayne-snap/traindash/internal/display"
	"github.com/shayne-snap/traindash/internal/host"

	"github.com/spf13/cobra"
)

var systemCmd = &cobra.Command{
	Use:   "system",
	Short: "Show local system specifications",
	RunE:  runSystem,
}

func runSystem(cmd *cobra.Command, args []string) error {
	specs, err := host.Detect()
	if err != nil {
		return err
	}
	display.System(os.Stdout, specs, globalJSON)
	return nil
}
