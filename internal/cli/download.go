package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/shayne-snap/traindash/internal/display"
	"github.com/shayne-snap/traindash/internal/download"

	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download <hf_model_id> <display_name>",
	Short: "Download a HuggingFace model through the dashboard server",
	Long:  "Asks the server to download hf_model_id under display_name, then polls the download status until it completes, fails, or the poll budget runs out. Ctrl+C stops polling; the server-side download keeps going.",
	Args:  cobra.ExactArgs(2),
	RunE:  runDownload,
}

func runDownload(cmd *cobra.Command, args []string) error {
	req, err := download.Request{ModelID: args[0], DisplayName: args[1]}.Normalize()
	if err != nil {
		return fmt.Errorf("hf_model_id and display_name must not be empty")
	}
	if !looksLikeRepoID(req.ModelID) {
		fmt.Fprintf(os.Stderr, "Note: %q is not in org/name form; sending it as-is.\n", req.ModelID)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	policy := policyFromConfig(cfg.Download)
	policy.HideAfter = 0
	sink := display.NewLineSink(cmd.OutOrStdout(), "["+req.ModelID+"] ")
	flow, err := download.NewFlow(req, newClient(), policy, sink, logger)
	if err != nil {
		return err
	}
	res := flow.Run(ctx)
	switch res.State {
	case download.StateComplete:
		return nil
	case download.StateCancelled:
		fmt.Fprintln(os.Stderr, "Stopped polling; the server may still be downloading.")
		return nil
	}
	if res.Err == nil {
		res.Err = errors.New("download failed")
	}
	return fmt.Errorf("download %s: %w", req.ModelID, res.Err)
}
