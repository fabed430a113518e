package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikhailPrudnikov/Max-efficiency/internal/adapters/maxbot"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/bot"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/config"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/focus"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/gigachat"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/logging"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/reminder"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/salutespeech"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/sberauth"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/session"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/store"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/voice"
)

var version = "0.1.0"

const focusDoneText = "⏰ Время вышло! Фокус-сессия завершена. Отличная работа! 🎉"

func main() {
	rootCmd := &cobra.Command{
		Use:   "maxbot",
		Short: "Task manager bot for MAX messenger",
		Long:  `A personal task manager living in MAX: dialogue-based task creation, GigaChat free-text understanding, voice messages via SaluteSpeech, focus timers and overdue reminders.`,
	}

	rootCmd.AddCommand(
		newStartCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newStartCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath(), "path to config file")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("maxbot v%s\n", version)
		},
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logging.Init(cfg.Logging); err != nil {
		return err
	}
	log := logging.WithComponent("main")

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	client := maxbot.NewClient(cfg.Max.APIURL, cfg.Max.Token)

	var ai bot.AI
	var voicePipe bot.VoiceProcessor

	if cfg.AIEnabled() {
		chatTokens := sberauth.NewTokenSource(cfg.Sber.TokenURL,
			cfg.Sber.GigaChatAuthKey, sberauth.ScopeGigaChat, cfg.Sber.InsecureSkipVerify)
		chat := gigachat.NewClient(cfg.Sber.ChatURL, chatTokens, cfg.Sber.InsecureSkipVerify)
		ai = chat

		if cfg.VoiceEnabled() {
			speechTokens := sberauth.NewTokenSource(cfg.Sber.TokenURL,
				cfg.Sber.SaluteSpeechAuthKey, sberauth.ScopeSaluteSpeech, cfg.Sber.InsecureSkipVerify)
			speech := salutespeech.NewClient(cfg.Sber.RecognizeURL, speechTokens, cfg.Sber.InsecureSkipVerify)
			voicePipe = voice.NewPipeline(speech, chat, chat, db, cfg.Voice.TempDir)
		} else {
			log.Info("voice recognition disabled, SALUTE_SPEECH_AUTH_KEY not set")
		}
	} else {
		log.Info("AI features disabled, GIGACHAT_AUTH_KEY not set")
	}

	// In-memory dialogue state does not survive restarts; start clean so
	// stale sessions never swallow the first message after a deploy.
	sessions := session.NewStore()
	sessions.Clear()

	focusTimer := focus.NewService(client, time.Duration(cfg.Focus.DurationMinutes)*time.Minute, focusDoneText)
	defer focusTimer.Stop()

	router := bot.NewRouter(client, sessions, db, ai, voicePipe, focusTimer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := reminder.NewScheduler(db, client, *cfg.Reminder)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start reminder scheduler: %w", err)
	}
	defer scheduler.Stop()

	poller := maxbot.NewPoller(client, router, time.Now())

	log.Info("bot started",
		slog.Bool("ai", ai != nil),
		slog.Bool("voice", voicePipe != nil),
		slog.String("database", cfg.Database.Path))

	err = poller.Run(ctx)
	if err != nil && ctx.Err() == nil {
		return err
	}

	log.Info("bot stopped")
	return nil
}
