package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/cubechat/internal/channel"
	"github.com/zhouzirui/cubechat/internal/config"
	"github.com/zhouzirui/cubechat/internal/pkg/logger"
	chatservice "github.com/zhouzirui/cubechat/internal/service/chat"
	"github.com/zhouzirui/cubechat/internal/tui"
	"github.com/zhouzirui/cubechat/internal/upload"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		serverURL string
		uploadURL string
		logFile   string
		announce  bool
	)

	cmd := &cobra.Command{
		Use:           "cubechat",
		Short:         "Chat with your PDFs from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("server") {
				cfg.Client.ChannelURL = serverURL
			}
			if cmd.Flags().Changed("upload-url") {
				cfg.Client.UploadURL = uploadURL
			}
			if cmd.Flags().Changed("log-file") {
				cfg.Client.LogFile = logFile
			}
			if cmd.Flags().Changed("announce-uploads") {
				cfg.Client.AnnounceUploads = announce
			}

			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "websocket URL of the chat backend (env CHAT_SERVER_URL)")
	cmd.Flags().StringVar(&uploadURL, "upload-url", "", "document upload endpoint (env CHAT_UPLOAD_URL)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "file receiving client logs (env CHAT_LOG_FILE)")
	cmd.Flags().BoolVar(&announce, "announce-uploads", false, "also record upload results in the chat (env CHAT_ANNOUNCE_UPLOADS)")
	return cmd
}

func run(parent context.Context, cfg *config.Config) error {
	// The screen belongs to the UI; logs only go to the file.
	zl, err := logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Client.LogFile})
	if err != nil {
		return err
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws := channel.NewWebSocket(cfg.Client.ChannelURL, channel.WithLogger(zl))
	runDone := make(chan error, 1)
	go func() { runDone <- ws.Run(ctx) }()

	feed := tui.NewFeed(zl)
	opts := []chatservice.Option{
		chatservice.WithLogger(zl),
		chatservice.WithUploader(upload.NewGateway(cfg.Client.UploadURL, nil, zl)),
		chatservice.WithObserver(feed.Observe),
		chatservice.WithNotifier(feed.Notify),
	}
	if cfg.Client.AnnounceUploads {
		opts = append(opts, chatservice.WithUploadAnnouncements())
	}

	session := chatservice.NewSession(ws, opts...)
	session.Attach()
	defer session.Detach()

	zl.Info("chat client started", zap.String("server", cfg.Client.ChannelURL), zap.String("session", session.ID()))

	program := tea.NewProgram(tui.New(session, feed), tea.WithAltScreen(), tea.WithContext(ctx))
	_, uiErr := program.Run()

	stop()
	if err := <-runDone; err != nil {
		zl.Warn("channel stopped with error", zap.Error(err))
	}
	if uiErr != nil && ctx.Err() == nil {
		return fmt.Errorf("run ui: %w", uiErr)
	}
	return nil
}
