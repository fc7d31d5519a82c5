package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ChatBooks/internal/config"
	"ChatBooks/pkg/zlog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	_ = zlog.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "ChatBooks",
		Short:        "Chat with your PDF / EPUB / MOBI books",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(configPath)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default "+config.DefaultConfigPath+", env CHATBOOKS_CONFIG)")

	root.AddCommand(
		newServeCmd(),
		newIngestCmd(),
		newAskCmd(),
		newQACmd(),
		newWorkerCmd(),
	)
	return root
}

// setup 加载 .env 和配置，初始化日志
func setup(configPath string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}
	config.SetConfig(conf)
	return zlog.Init(zlog.Options{
		LogPath: conf.LogConfig.LogPath,
		Level:   conf.LogConfig.Level,
		Console: conf.LogConfig.Console,
	})
}
