package cli

import (
	"context"
	"os"

	"github.com/shayne-snap/traindash/internal/display"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [model_id]",
	Short: "Show download status reported by the server",
	Long:  "Fetches the server's download status once. With a model id, prints only that entry (\"unknown\" when the server has none); otherwise prints every entry in the report.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	var id string
	if len(args) == 1 {
		id = args[0]
	}
	report, err := newClient().DownloadStatus(context.Background(), id)
	if err != nil {
		return err
	}
	display.Status(os.Stdout, id, report, globalJSON)
	return nil
}
