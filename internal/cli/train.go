package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/shayne-snap/traindash/internal/api"

	"github.com/spf13/cobra"
)

var (
	trainLR        float64
	trainSteps     int
	trainBatchSize int
)

var trainCmd = &cobra.Command{
	Use:   "train <model_path|model_name>",
	Short: "Start a training run on the dashboard server",
	Long:  "Submits the training form for a model. The argument may be a configured model name (see `traindash models`) or a path on the server. The server trains synchronously, so this waits until the run ends.",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrain,
}

func init() {
	trainCmd.Flags().Float64Var(&trainLR, "lr", 0, "Learning rate (default from config)")
	trainCmd.Flags().IntVar(&trainSteps, "steps", 0, "Training steps (default from config)")
	trainCmd.Flags().IntVar(&trainBatchSize, "batch-size", 0, "Batch size (default from config)")
}

// resolveModelPath maps a configured model name to its path; anything else is used as a path.
func resolveModelPath(arg string) string {
	for _, m := range cfg.Models {
		if m.Name == arg {
			return m.Path
		}
	}
	return arg
}

func trainRequest(cmd *cobra.Command, arg string) api.TrainRequest {
	tr := api.TrainRequest{
		ModelPath: resolveModelPath(arg),
		LR:        cfg.Training.LR,
		Steps:     cfg.Training.Steps,
		BatchSize: cfg.Training.BatchSize,
	}
	if cmd.Flags().Changed("lr") {
		tr.LR = trainLR
	}
	if cmd.Flags().Changed("steps") {
		tr.Steps = trainSteps
	}
	if cmd.Flags().Changed("batch-size") {
		tr.BatchSize = trainBatchSize
	}
	return tr
}

func runTrain(cmd *cobra.Command, args []string) error {
	tr := trainRequest(cmd, args[0])
	if tr.ModelPath == "" {
		return fmt.Errorf("model path must not be empty")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Training %s (lr=%g steps=%d batch_size=%d)...\n", tr.ModelPath, tr.LR, tr.Steps, tr.BatchSize)
	if err := newClient().StartTraining(ctx, tr); err != nil {
		return fmt.Errorf("training: %w", err)
	}
	fmt.Println("✅ Training finished")
	return nil
}
