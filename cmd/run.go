package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/adalundhe/museswarm/core/engine"
	"github.com/adalundhe/museswarm/core/swarm"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	runJSON     bool
	runRoundCap int
)

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run one negotiation and print the transcript",
	Long: `Run a single Muse and Critic negotiation over the prompt. The prompt is
read from the arguments, or from stdin when none are given.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the result as JSON")
	runCmd.Flags().IntVar(&runRoundCap, "round-cap", 0, "override swarm.round_cap for this run")
}

type runOutput struct {
	swarm.Result
	SessionID string `json:"session_id"`
	Error     string `json:"error,omitempty"`
}

func runRun(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(args, cmd.InOrStdin(), term.IsTerminal(int(os.Stdin.Fd())))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	eng := newEngine()
	defer eng.Close()

	id := uuid.NewString()
	res, runErr := eng.Run(ctx, prompt, engine.RunOptions{SessionID: id, RoundCap: runRoundCap})
	if res == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	if runJSON {
		if err := writeJSON(out, id, res, runErr); err != nil {
			return err
		}
	} else {
		printTranscript(out, newTheme(), res, runErr)
	}
	return runErr
}

func readPrompt(args []string, in io.Reader, interactive bool) (string, error) {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" && !interactive {
		data, err := io.ReadAll(bufio.NewReader(in))
		if err != nil {
			return "", fmt.Errorf("reading prompt: %w", err)
		}
		prompt = strings.TrimSpace(string(data))
	}
	if prompt == "" {
		return "", swarm.ErrEmptyPrompt
	}
	return prompt, nil
}

func writeJSON(w io.Writer, sessionID string, res *swarm.Result, runErr error) error {
	out := runOutput{Result: *res, SessionID: sessionID}
	if runErr != nil {
		out.Error = runErr.Error()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printTranscript(w io.Writer, t theme, res *swarm.Result, runErr error) {
	fmt.Fprintln(w, t.title.Render("🎨 Creative Muse Swarm"))
	fmt.Fprintln(w)
	for _, m := range res.Transcript {
		if block := t.renderMessage(m, 0); block != "" {
			fmt.Fprintln(w, block)
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w, t.renderOutcome(res, runErr))
}
