package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/shayne-snap/traindash/internal/stream"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Stream training logs from the dashboard server",
	Long:  "Subscribes to the server's training log stream and prints each log line as it arrives. Reconnects after network errors; stops on Ctrl+C or when the server answers with something other than an event stream.",
	Args:  cobra.NoArgs,
	RunE:  runLogs,
}

func runLogs(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sub := &stream.Subscriber{
		URL:    newClient().StreamURL(),
		Retry:  cfg.LogStream.Retry(),
		Logger: logger,
	}
	out := cmd.OutOrStdout()
	err := sub.Run(ctx, func(ev stream.Event) {
		fmt.Fprintln(out, ev.Data)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
