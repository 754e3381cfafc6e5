package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/billlzzz10/unicornxos/internal/agent"
	"github.com/billlzzz10/unicornxos/internal/api"
	"github.com/billlzzz10/unicornxos/internal/autosave"
	"github.com/billlzzz10/unicornxos/internal/board"
	"github.com/billlzzz10/unicornxos/internal/config"
	"github.com/billlzzz10/unicornxos/internal/logging"
	"github.com/billlzzz10/unicornxos/internal/pomodoro"
	"github.com/billlzzz10/unicornxos/internal/prefs"
	"github.com/billlzzz10/unicornxos/internal/store"
)

var (
	dbPath     string
	configPath string

	cfg    config.Config
	logger *slog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "suite",
		Short:         "Writer's suite: notes, tasks, cards and writing agents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(configPath); err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			logger, err = logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default ~/.suite/suite.db)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.suite/config.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(noteCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(dictCmd())
	rootCmd.AddCommand(plotCmd())
	rootCmd.AddCommand(worldCmd())
	rootCmd.AddCommand(themeCmd())
	rootCmd.AddCommand(pomodoroCmd())
	rootCmd.AddCommand(promptCmd())
	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(feedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func getStore() (*store.Store, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	return store.New(cfg.DBPath)
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// signalContext is cancelled on interrupt or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// agents builds the optional AI collaborators. Missing credentials leave
// the corresponding field nil.
func agents() (api.Writer, api.Prompter, api.Forecaster) {
	var (
		w  api.Writer
		p  api.Prompter
		fc api.Forecaster
	)
	if writer, err := agent.NewWriter(agent.WriterConfig{
		APIKey: cfg.Agents.AnthropicAPIKey,
		Model:  cfg.Agents.AnthropicModel,
	}); err == nil {
		w = writer
	} else {
		logger.Info("writer agent disabled", "reason", err)
	}
	if gen, err := agent.NewPromptGenerator(agent.PromptConfig{
		Token:   cfg.Agents.HFToken,
		BaseURL: cfg.Agents.PromptBaseURL,
		Model:   cfg.Agents.PromptModel,
	}); err == nil {
		p = gen
	} else {
		logger.Info("prompt agent disabled", "reason", err)
	}
	if client, err := agent.NewForecastClient(cfg.Agents.ForecastURL, nil, logger); err == nil {
		fc = client
	} else {
		logger.Info("forecast agent disabled", "reason", err)
	}
	return w, p, fc
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			p := prefs.New(s, logger)
			saver := autosave.New(p, cfg.AutosaveDelay, logger)
			defer saver.Close()

			b := board.New(board.Config{
				Outcome: board.RandomOutcome(cfg.CLISuccessRate),
				UserID:  cfg.UserID,
				Logger:  logger,
			})
			stop := b.Start()
			defer stop()

			ctx, cancel := signalContext()
			defer cancel()
			if err := b.Seed(ctx); err != nil {
				return err
			}
			if _, err := s.EnsureProject(ctx); err != nil {
				return err
			}

			w, pr, fc := agents()
			server := api.New(api.Deps{
				Store:      s,
				Board:      b,
				Prefs:      p,
				Autosave:   saver,
				Pomodoro:   pomodoro.NewTracker(p),
				Writer:     w,
				Prompter:   pr,
				Forecaster: fc,
				AuthToken:  cfg.AuthToken,
				UserID:     cfg.UserID,
				Logger:     logger,
			}, cfg.Addr)
			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "server address")
	return cmd
}
