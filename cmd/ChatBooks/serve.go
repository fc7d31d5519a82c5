package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	https_server "ChatBooks/api/http"
	"ChatBooks/internal/config"
	"ChatBooks/internal/initial"
	"ChatBooks/pkg/zlog"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI and HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	conf := config.GetConfig()
	c, err := initial.NewContainer(ctx, conf)
	if err != nil {
		return err
	}

	bgCtx, stopBg := context.WithCancel(ctx)
	defer func() {
		stopBg()
		if err := c.Close(); err != nil {
			zlog.Warn("close resources failed", zap.Error(err))
		}
	}()
	c.Start(bgCtx)

	addr := fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           https_server.NewEngine(c),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("服务器正在启动", zap.String("addr", addr))
		var err error
		cert, key := strings.TrimSpace(conf.MainConfig.CertFile), strings.TrimSpace(conf.MainConfig.KeyFile)
		if cert != "" && key != "" {
			err = srv.ListenAndServeTLS(cert, key)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("服务器启动失败: %w", err)
		}
	}

	zlog.Info("正在关闭服务器...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("http shutdown failed", zap.Error(err))
	}
	zlog.Info("服务器已关闭")
	return nil
}
