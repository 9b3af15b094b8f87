package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dispatch-core/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Config struct {
	HttpPort string
	// ShutdownTimeout 等待进行中的派发结束, 需大于一次完整轮询的时间
	ShutdownTimeout time.Duration
}

type App struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	// background 随服务一起停止的后台任务, 例如 outbox 中继
	background []func(ctx context.Context)
}

func New(cfg Config, httpHandler *gin.Engine) *App {
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &App{
		httpServer: &http.Server{
			Addr:              ":" + cfg.HttpPort,
			Handler:           httpHandler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: timeout,
	}
}

// Go 注册后台任务, Run 时启动
func (a *App) Go(task func(ctx context.Context)) {
	a.background = append(a.background, task)
}

// Run 启动服务并阻塞, 直到收到 SIGINT / SIGTERM
func (a *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bgCtx, cancelBg := context.WithCancel(context.Background())
	done := make(chan struct{}, len(a.background))
	for _, task := range a.background {
		go func(task func(ctx context.Context)) {
			defer func() { done <- struct{}{} }()
			task(bgCtx)
		}(task)
	}

	go func() {
		logger.Info("Starting HTTP Server", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP Server failure", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	// HTTP 停止后再停后台任务, 让最后一批 outbox 消息有机会投递
	cancelBg()
	for range a.background {
		select {
		case <-done:
		case <-shutdownCtx.Done():
			logger.Warn("后台任务未在超时前退出")
			return
		}
	}
	logger.Info("Server exited properly")
}
