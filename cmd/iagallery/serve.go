package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/iagallery/internal/normalize"
	"github.com/John-Robertt/iagallery/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var avOnly bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 resolver HTTP 服务（/resolve、/healthz、/metrics）",
		Long: `启动 resolver 服务：GET /resolve?identifier=<id>[&type=<hint>]。

服务端总是在本地解析（metadata 经进程内缓存），并对任意来源开放 CORS。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := a.loadConfig(cmd.Flags())
			if err != nil {
				return fail(err)
			}
			d, err := newDeps(eff)
			if err != nil {
				return fail(err)
			}

			// 服务端日志至少 info 级别（每个请求一行）。
			if !a.verbose {
				a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
				slog.SetDefault(a.logger)
			}

			r := &normalize.LocalResolver{Fetcher: d.archive, Cache: d.cache, AVOnly: avOnly, Logger: a.logger}
			e := server.New(r, a.logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("starting resolver server", "address", eff.Listen)
				if err := e.Start(eff.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fail(fmt.Errorf("启动服务失败：%w", err))
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info("shutting down resolver server")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := e.Shutdown(sctx); err != nil {
				return fail(fmt.Errorf("关闭服务失败：%w", err))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.String("listen", "", "监听地址（默认 :8787）")
	f.String("proxy", "", "HTTP 代理 URL")
	f.BoolVar(&avOnly, "av-only", false, "只接受音视频文件")
	return cmd
}
