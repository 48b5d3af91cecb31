package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"clarion/internal/core"
	"clarion/internal/pipeline"

	"github.com/spf13/cobra"
)

// newAskCmd creates the ask command for one-shot answers from the terminal.
func newAskCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question and print it with its sources",
		Long: `Run the full answer pipeline once and stream the result to stdout.

With --user, the answer is personalized from that user's accumulated click
history and the shown sources are recorded as impressions.

Examples:
  clarion ask "what is raft consensus"
  clarion ask --user alice "how do solid state batteries work"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), strings.Join(args, " "), userID)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID for personalized ranking")

	return cmd
}

func runAsk(parent context.Context, query, userID string) error {
	a, err := buildApp(cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var failure error
	a.pipeline.Answer(ctx, pipeline.Request{Query: query, UserID: userID}, func(event pipeline.Event) {
		switch event.Type {
		case pipeline.TypeProgress:
			if progress, ok := event.Data.(pipeline.ProgressData); ok {
				fmt.Fprintf(os.Stderr, "… %s\n", progress.Stage)
			}
		case pipeline.TypeChunk:
			if chunk, ok := event.Data.(string); ok {
				fmt.Print(chunk)
			}
		case pipeline.TypeComplete:
			printSources(event)
		case pipeline.TypeError:
			if errData, ok := event.Data.(pipeline.ErrorData); ok {
				failure = fmt.Errorf("%s: %s", errData.Error, errData.Message)
			}
		}
	})

	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "\ninterrupted")
		return nil
	}
	return failure
}

func printSources(event pipeline.Event) {
	packet, ok := event.Data.(*core.AnswerPacket)
	if !ok {
		return
	}
	fmt.Print("\n\nSources:\n")
	for i, source := range packet.Sources {
		fmt.Printf("  [%d] %s (%s)\n      %s\n", i+1, source.Title, source.Domain, source.URL)
	}
}
