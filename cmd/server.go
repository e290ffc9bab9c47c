/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/review-gin/internal/api"
	"github.com/mautops/review-gin/internal/config"
	"github.com/mautops/review-gin/internal/container"
	"github.com/mautops/review-gin/internal/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// replayLimit 启动时重新投递的待处理事件上限
const replayLimit = 500

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the Review Gin API server.
The server will listen on the configured host and port,
and provide REST API interfaces for the submission review workflow.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if host, _ := cmd.Flags().GetString("host"); cmd.Flags().Changed("host") {
			cfg.Server.Host = host
		}
		if port, _ := cmd.Flags().GetInt("port"); cmd.Flags().Changed("port") {
			cfg.Server.Port = port
		}

		log, err := logger.NewLoggerFromConfig(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.SetLogger(log)

		if config.IsProduction(cfg) {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Tracing.Enabled {
			tp, err := api.InitTracing(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
			if err != nil {
				return fmt.Errorf("failed to initialize tracing: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					log.WithError(err).Warn("failed to shutdown tracing")
				}
			}()
		}

		ctr, err := container.NewContainer(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		if n, err := ctr.EventHandler().Replay(ctx, replayLimit); err != nil {
			log.WithError(err).Warn("failed to replay pending events")
		} else if n > 0 {
			log.WithField("count", n).Info("replayed pending events")
		}

		watcher := startConfigWatcher(cfg, configPath, log)
		if watcher != nil {
			defer watcher.Stop()
		}

		router := ctr.Router()
		router.NoRoute(func(c *gin.Context) {
			api.Error(c, http.StatusNotFound, "route not found", "the requested route does not exist")
		})

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.WithField("addr", addr).Info("server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}
		case <-ctx.Done():
		}

		log.Info("shutting down server")

		// 优雅关闭
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info("server exited")
		return nil
	},
}

// startConfigWatcher 配置文件变化时重新应用日志级别,未使用配置文件时返回 nil
func startConfigWatcher(cfg *config.Config, configPath string, log *logrus.Logger) *config.ConfigWatcher {
	if configPath == "" {
		if _, err := os.Stat("config.yaml"); err != nil {
			return nil
		}
		configPath = "config.yaml"
	}

	watcher := config.NewConfigWatcher(cfg, configPath)
	watcher.OnConfigChange(func(next *config.Config) {
		level := logger.ParseLevel(next.Log.Level)
		logger.SetLoggerLevel(level)
		log.WithField("level", level.String()).Info("log level reloaded")
	})
	if err := watcher.Start(); err != nil {
		log.WithError(err).Warn("failed to watch config file")
		return nil
	}
	return watcher
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().String("host", "0.0.0.0", "Server host")
	serverCmd.Flags().Int("port", 8080, "Server port")
}
