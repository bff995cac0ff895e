package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/batonworks/baton/internal/daemon"
	"github.com/batonworks/baton/internal/errors"
)

var nextCmd = &cobra.Command{
	Use:   "next <session-id>",
	Short: "Show the step a session should execute now",
	Long: `Resolve the session's current step and print it with its rendered
prompt. Next never advances the session; call "baton complete" once the
step has actually run.`,
	Args: cobra.ExactArgs(1),
	RunE: runNext,
}

var (
	completeResult string
	completeFile   string
)

var completeCmd = &cobra.Command{
	Use:   "complete <session-id> <agent-key>",
	Short: "Record a finished step and advance the session",
	Long: `Record that the session's current step finished, store its output, and
advance the cursor. The agent key must match the step the session is
actually on; a stale key is rejected without modifying the session.

Output is taken from --result, from --file (use "-" for stdin), or left
empty.`,
	Args: cobra.ExactArgs(2),
	RunE: runComplete,
}

var failMessage string

var failCmd = &cobra.Command{
	Use:   "fail <session-id> <agent-key>",
	Short: "Record a failed step",
	Long: `Record a failure of the session's current step. The cursor does not
move: a failed non-critical step can be retried with the same agent
key, while a failed critical step terminates the session.`,
	Args: cobra.ExactArgs(2),
	RunE: runFail,
}

func init() {
	completeCmd.Flags().StringVar(&completeResult, "result", "", "step output as an inline string")
	completeCmd.Flags().StringVar(&completeFile, "file", "", `read step output from a file ("-" for stdin)`)
	failCmd.Flags().StringVar(&failMessage, "message", "", "what went wrong")
	rootCmd.AddCommand(nextCmd, completeCmd, failCmd)
}

func runNext(cmd *cobra.Command, args []string) error {
	return callDaemon("next", daemon.SessionParams{SessionID: args[0]})
}

func runComplete(cmd *cobra.Command, args []string) error {
	output, err := readStepOutput()
	if err != nil {
		return err
	}
	return callDaemon("complete", daemon.CompleteParams{
		SessionID: args[0],
		AgentKey:  args[1],
		Output:    output,
	})
}

func runFail(cmd *cobra.Command, args []string) error {
	if failMessage == "" {
		return errors.NewValidationError("--message is required").WithField("message")
	}
	return callDaemon("fail", daemon.FailParams{
		SessionID: args[0],
		AgentKey:  args[1],
		Message:   failMessage,
	})
}

// readStepOutput resolves the completed step's output from the
// --result/--file flags. Content that parses as JSON is stored as-is;
// anything else is stored as a JSON string.
func readStepOutput() (json.RawMessage, error) {
	if completeResult != "" && completeFile != "" {
		return nil, errors.NewValidationError("--result and --file are mutually exclusive")
	}

	var text string
	switch {
	case completeResult != "":
		text = completeResult
	case completeFile == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read output from stdin: %w", err)
		}
		text = string(data)
	case completeFile != "":
		data, err := os.ReadFile(completeFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read output file: %w", err)
		}
		text = string(data)
	default:
		return nil, nil
	}

	return encodeStepOutput(text), nil
}

func encodeStepOutput(text string) json.RawMessage {
	if json.Valid([]byte(text)) {
		return json.RawMessage(text)
	}
	quoted, _ := json.Marshal(text)
	return quoted
}
