package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catchpost/internal/config"
	"catchpost/internal/format"
	"catchpost/internal/forward"
	"catchpost/internal/notify"
	"catchpost/internal/relay"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "catchpost",
		Short: "Catchpost: catch-all HTTP endpoint that forwards requests to Slack",
		Long:  "Catchpost accepts any inbound HTTP request, forwards a summary of it to Slack, and always answers the original caller with a JSON status.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ~/.catchpost/config.yaml)")

	root.AddCommand(serveCmd())
	root.AddCommand(sendCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(configCmd())
	root.AddCommand(daemonCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the config file when one exists, else falls back to the
// environment alone. An explicitly flagged path that is missing is an
// error; a missing default path is not.
func loadConfig() (*config.Config, error) {
	path := resolveConfigPath()
	if _, err := os.Stat(path); err == nil {
		return config.Load(path)
	}
	if configPath != "" {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}
	logger.Info("no config file, reading environment", "path", path)
	return config.FromEnv()
}

// newLogger builds the process logger. Development runs at debug level.
func newLogger(environment string) *slog.Logger {
	level := slog.LevelInfo
	if environment == "development" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the relay server",
		Long:  "Starts the catch-all HTTP server. Every inbound request is forwarded to Slack and answered with a JSON status. Press Ctrl+C to stop.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger = newLogger(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	forwarder := forward.NewSlack(forward.SlackConfig{
		BotToken:       cfg.Slack.BotToken,
		DefaultChannel: cfg.Slack.ChannelID,
		APIURL:         cfg.Slack.APIURL,
		Logger:         logger,
	})

	var mirror relay.Mirror
	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			Token:     cfg.Telegram.Token,
			ChatID:    cfg.Telegram.ChatID,
			ParseMode: cfg.Telegram.ParseMode,
			Logger:    logger,
		})
		if err != nil {
			logger.Warn("telegram mirror disabled", "err", err)
		} else {
			mirror = tg
		}
	}

	rl := relay.New(relay.Config{
		Forwarder: forwarder,
		Mirror:    mirror,
		Logger:    logger,
	})

	srv := relay.NewServer(relay.ServerConfig{
		Config: cfg,
		Relay:  rl,
		Logger: logger,
	})
	return srv.Start(ctx)
}

func sendCmd() *cobra.Command {
	var text, channel string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a one-off message through the forwarding client",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger = newLogger(cfg.Environment)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			forwarder := forward.NewSlack(forward.SlackConfig{
				BotToken:       cfg.Slack.BotToken,
				DefaultChannel: cfg.Slack.ChannelID,
				APIURL:         cfg.Slack.APIURL,
				Logger:         logger,
			})

			notification := format.Notification(text, "CLI", "catchpost send", map[string]string{"test": "manual message"})
			res := forwarder.Forward(ctx, notification, channel)
			if !res.Delivered {
				return fmt.Errorf("forward to %s failed: %s", res.Channel, res.Err)
			}
			logger.Info("message sent", "channel", res.Channel)
			return nil
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "message text (required)")
	cmd.Flags().StringVar(&channel, "channel", "", "destination channel (default: configured channel)")
	cmd.MarkFlagRequired("text")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the effective configuration (credentials masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(config.Sanitize(cfg), "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
