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
	"github.com/tejasmk/doorbell/internal/identity"
	"github.com/tejasmk/doorbell/internal/models"
)

const welcomeText = "Welcome! Leave a message and I'll get back to you."

var rootCmd = &cobra.Command{
	Use:   "doorbell-visitor",
	Short: "Doorbell visitor chat console",
	RunE:  runVisitor,
}

var (
	flagRelayURL string
	flagEmail    string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagRelayURL, "relay-url", "", "relay websocket endpoint (overrides RELAY_URL)")
	flags.StringVar(&flagEmail, "email", "", "sign in non-interactively as this email")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute visitor command")
	}
}

func runVisitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if flagRelayURL != "" {
		cfg.RelayURL = flagRelayURL
	}
	setupLogger(cfg.LogLevel)

	client := chat.New()
	if err := client.Connect(ctx, cfg.RelayURL); err != nil {
		return fmt.Errorf("connect to relay: %w", err)
	}
	defer client.Close()

	conv := conversation.New(client)
	conv.SeedWelcome(welcomeText)

	var provider identity.Provider
	if flagEmail != "" {
		provider = identity.StaticProvider{Email: flagEmail}
	} else {
		provider = identity.PromptProvider{In: os.Stdin, Out: os.Stderr}
	}
	resolver := identity.NewResolver(provider, identity.NewFileStore(cfg.IdentityFile))

	// Joining the visitor's own room is a direct effect of the
	// identity transition, whether restored or freshly signed in.
	resolver.Bind(func(email string) {
		client.SetSender(email)
		client.Join(email)
		conv.SetIdentity(email)
		conv.Open(email)
	})

	if _, ok := resolver.Current(); !ok {
		// Interactive sign-in must finish before the TUI owns the
		// terminal. Failure is not fatal: the chat opens read-only.
		if _, err := resolver.SignIn(ctx); err != nil {
			log.Warn().Err(err).Msg("[visitor] continuing anonymous, sending disabled")
		}
	}

	model := newVisitorModel(conv, resolver)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := client.Subscribe(func(msg models.Message) {
		program.Send(inboundMsg{msg: msg})
	})
	defer unsubscribe()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run visitor console: %w", err)
	}
	return nil
}

func setupLogger(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if parsed, err := zerolog.ParseLevel(level); err == nil {
		zerolog.SetGlobalLevel(parsed)
	}
}
