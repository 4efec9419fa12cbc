package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tejasmk/doorbell/internal/chat"
	"github.com/tejasmk/doorbell/internal/config"
	"github.com/tejasmk/doorbell/internal/conversation"
	"github.com/tejasmk/doorbell/internal/directory"
	"github.com/tejasmk/doorbell/internal/models"
)

var rootCmd = &cobra.Command{
	Use:   "doorbell-admin",
	Short: "Doorbell operator console (reply to visitors)",
	RunE:  runAdmin,
}

var (
	flagRelayURL     string
	flagDirectoryURL string
	flagOperator     string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagRelayURL, "relay-url", "", "relay websocket endpoint (overrides RELAY_URL)")
	flags.StringVar(&flagDirectoryURL, "directory-url", "", "visitor directory base URL (overrides DIRECTORY_URL)")
	flags.StringVar(&flagOperator, "as", "operator@doorbell.local", "identity stamped on operator replies")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute admin command")
	}
}

func runAdmin(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if flagRelayURL != "" {
		cfg.RelayURL = flagRelayURL
	}
	if flagDirectoryURL != "" {
		cfg.DirectoryURL = flagDirectoryURL
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	client := chat.New()
	client.SetSender(flagOperator)
	if err := client.Connect(ctx, cfg.RelayURL); err != nil {
		return fmt.Errorf("connect to relay: %w", err)
	}
	defer client.Close()

	conv := conversation.New(client)
	conv.SetIdentity(flagOperator)

	// Fetch the directory and join every room before the TUI starts.
	// On failure the roster stays empty in the failed state; history
	// still accumulates for any room joined later.
	roster := directory.NewRoster()
	_, _ = roster.Load(ctx, directory.NewClient(cfg.DirectoryURL), client)

	model := newAdminModel(roster, conv)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := client.Subscribe(func(msg models.Message) {
		program.Send(inboundMsg{msg: msg})
	})
	defer unsubscribe()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run admin console: %w", err)
	}
	return nil
}
