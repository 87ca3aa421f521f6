package cmd

import (
	"fmt"
	"log/slog"

	"github.com/adalundhe/museswarm/core/config"
	"github.com/adalundhe/museswarm/core/engine"
	"github.com/adalundhe/museswarm/core/llm"
	"github.com/adalundhe/museswarm/core/logging"
	"github.com/adalundhe/museswarm/core/storage"
	"github.com/spf13/cobra"
)

var (
	logLevel    string
	logFormat   string
	projectRoot string
	envFiles    []string
)

// app holds what PersistentPreRunE prepares for every subcommand.
var app struct {
	dirs     *storage.Dirs
	manager  *config.Manager
	creds    *llm.CredentialStore
	logger   *slog.Logger
	closeLog func() error
}

var rootCmd = &cobra.Command{
	Use:   "museswarm",
	Short: "Creative Muse Swarm - a bounded Muse and Critic negotiation",
	Long: `museswarm runs a creative negotiation between a Creative_Muse and a Critic,
moderated by a Project_Manager that seeds the prompt and executes the
character profile tool. Runs stop at a round cap or when the Muse says
the termination token.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&projectRoot, "project", ".", "directory holding .museswarm project config")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")
}

func Execute() error {
	return execute(rootCmd)
}

// execute runs cmd and then releases what setup acquired. Cobra skips
// post-run hooks when a command fails, so cleanup happens here instead.
func execute(cmd *cobra.Command) error {
	err := cmd.Execute()
	if terr := teardown(); err == nil {
		err = terr
	}
	return err
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}

	dirs, err := storage.ResolveDirs()
	if err != nil {
		return fmt.Errorf("resolving directories: %w", err)
	}

	manager := config.NewManager(dirs)
	manager.SetProjectRoot(projectRoot)
	if err := manager.Load(); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logCfg := manager.Get().Log
	if logLevel != "" {
		logCfg.Level = logLevel
	}
	if logFormat != "" {
		logCfg.Format = logFormat
	}
	logger, closeLog, err := logging.Setup(logCfg, dirs, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	app.dirs = dirs
	app.manager = manager
	app.creds = &llm.CredentialStore{Path: dirs.CredentialsFile()}
	app.logger = logger
	app.closeLog = closeLog
	return nil
}

// teardown is safe to call more than once.
func teardown() error {
	if app.manager != nil {
		app.manager.Close()
		app.manager = nil
	}
	if app.closeLog != nil {
		closeLog := app.closeLog
		app.closeLog = nil
		return closeLog()
	}
	return nil
}

func newEngine() *engine.Engine {
	return engine.New(app.manager.Get, app.creds, engine.WithLogger(app.logger))
}
