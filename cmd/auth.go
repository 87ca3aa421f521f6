package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/adalundhe/museswarm/core/llm"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var apiKey string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage provider credentials",
	Long:  `Configure the API keys used by the swarm's model bindings.`,
}

var authSetCmd = &cobra.Command{
	Use:   "set <credential>",
	Short: "Set the API key for a credential",
	Long: `Store the API key for a credential name (groq, groq_specialist, openai,
anthropic, google). Environment variables still take precedence.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthSet,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which credentials are configured",
	RunE:  runAuthStatus,
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove <credential>",
	Short: "Remove a stored API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthRemove,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authRemoveCmd)

	authSetCmd.Flags().StringVar(&apiKey, "api-key", "", "API key (prompted for if not provided)")
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	name := strings.ToLower(args[0])
	if !isValidCredential(name) {
		return invalidCredential(name)
	}

	key := apiKey
	if key == "" {
		var err error
		key, err = readKeyInteractive(cmd, name)
		if err != nil {
			return err
		}
	}

	return saveCredential(app.creds, cmd.OutOrStdout(), name, key)
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	printStatus(app.creds, cmd.OutOrStdout())
	return nil
}

func runAuthRemove(cmd *cobra.Command, args []string) error {
	name := strings.ToLower(args[0])
	if !isValidCredential(name) {
		return invalidCredential(name)
	}
	return removeCredential(app.creds, cmd.OutOrStdout(), name)
}

func isValidCredential(name string) bool {
	return llm.IsKnownCredential(name)
}

func invalidCredential(name string) error {
	return fmt.Errorf("invalid credential: %s (valid: %s)", name, strings.Join(llm.KnownCredentials(), ", "))
}

func readKeyInteractive(cmd *cobra.Command, name string) (string, error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Enter API key for %s: ", name)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return readKeyLine(cmd.InOrStdin())
}

func readKeyLine(r io.Reader) (string, error) {
	key, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(key), nil
}

func saveCredential(store *llm.CredentialStore, w io.Writer, name, key string) error {
	if err := store.Set(name, key); err != nil {
		return err
	}
	fmt.Fprintf(w, "Credentials saved for %s\n", name)
	return nil
}

func removeCredential(store *llm.CredentialStore, w io.Writer, name string) error {
	removed, err := store.Remove(name)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Fprintf(w, "No credentials found for %s\n", name)
		return nil
	}
	fmt.Fprintf(w, "Credentials removed for %s\n", name)
	return nil
}

func printStatus(store *llm.CredentialStore, w io.Writer) {
	fmt.Fprintln(w, "Credential Status:")
	fmt.Fprintln(w, "------------------")

	for _, name := range llm.KnownCredentials() {
		status := "not configured"
		switch store.Source(name) {
		case "env":
			status = "configured (" + llm.GetEnvKeyName(name) + ")"
		case "file":
			status = "configured (credentials file)"
		}
		fmt.Fprintf(w, "  %-17s %s\n", name+":", status)
	}
}
