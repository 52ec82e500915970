package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"contactdesk/internal/util"
	"contactdesk/pkg/queue"
	"contactdesk/services/contact/internal/app"
	"contactdesk/services/contact/internal/config"
	"contactdesk/services/contact/internal/tui"
)

var (
	configPath string
	logsDir    string
)

var rootCmd = &cobra.Command{
	Use:   "contactform",
	Short: "Terminal contact form",
	Long: `contactform collects a name, email and message, writes an auto-reply
with the configured text generator and reports the outcome. Submissions are
dispatched the same way the contact service dispatches them.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default: $CONTACT_CONFIG or config.yaml)")
	rootCmd.Flags().StringVar(&logsDir, "logs-dir", "", "directory for contactform.log (overrides logsDir, default logs)")
}

func run(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	dir := cfg.LogsDir
	if logsDir != "" {
		dir = logsDir
	}
	// The terminal owns stdout; logs go to <dir>/contactform.log, ./logs when unset.
	_, cleanup := util.InitLogger(util.LogConfig{Level: cfg.LogLevel, Service: "contactform", Dir: dir, Quiet: true})
	defer cleanup()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var dispatcher app.Dispatcher = app.LogDispatcher{}
	if cfg.DispatchMode == config.DispatchQueue {
		outbox, err := queue.NewRedisOutbox(queue.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Stream:   cfg.QueueName,
		})
		if err != nil {
			return fmt.Errorf("init dispatch outbox: %w", err)
		}
		defer outbox.Close()
		dispatcher = app.QueueDispatcher{Queue: outbox}
	}

	appCore, err := app.New(ctx, app.Config{
		GenerationProvider: cfg.GenerationProvider,
		GenerationAPIKey:   cfg.GeminiAPIKey,
		GenerationBaseURL:  cfg.GenerationBaseURL,
		GenerationModel:    cfg.GenerationModel,
		Dispatcher:         dispatcher,
		AdminEmail:         cfg.AdminEmail,
	})
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	program := tea.NewProgram(tui.New(ctx, appCore.NewController()), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run form: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
