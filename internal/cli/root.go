// Package cli provides the yieldctl command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashureev/yieldchat/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// env is the state shared by the subcommands of one invocation.
type env struct {
	in         io.Reader
	out        io.Writer
	errOut     io.Writer
	cfg        *config.Config
	logger     *slog.Logger
	outputText bool
	verbose    bool
}

// NewRootCommand builds the yieldctl command tree reading from in and
// writing to out.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	e := &env{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "yieldctl",
		Short: "Crop yield assistant tools",
		Long: `yieldctl - crop yield assistant tools

  yieldctl chat                          # answer the questions in the terminal
  yieldctl predict --crop Wheat ...      # one-shot prediction
  yieldctl history --user anon_...       # stored predictions of a user
  yieldctl serve-model --addr :50051     # serve the model over gRPC`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			_ = godotenv.Load()

			level := slog.LevelWarn
			if e.verbose {
				level = slog.LevelDebug
			}
			e.logger = slog.New(slog.NewTextHandler(e.errOut, &slog.HandlerOptions{Level: level}))

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			e.cfg = cfg
			return nil
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().BoolVar(&e.outputText, "text", false, "Human-readable text output (default is JSON)")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "Verbose logging")

	root.AddCommand(
		newChatCommand(e),
		newPredictCommand(e),
		newHistoryCommand(e),
		newServeModelCommand(e),
	)
	return root
}

// Execute runs yieldctl on the process streams until interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCommand(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// outputResult prints result as indented JSON, or with %+v under --text.
func (e *env) outputResult(result any) error {
	if e.outputText {
		_, err := fmt.Fprintf(e.out, "%+v\n", result)
		return err
	}
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// readInputJSON reads JSON from a file, or from stdin when input is "-".
func (e *env) readInputJSON(input string, v any) error {
	var (
		data []byte
		err  error
	)
	if input == "-" {
		data, err = io.ReadAll(e.in)
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("no input provided")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}
