package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"rtblob/pkg/app"
	"rtblob/pkg/config"
	"rtblob/pkg/metrics"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile     string
	metricsAddr string
	// 全局应用实例，供子命令使用
	RT *app.App

	metricsSrv *http.Server
)

// 这些命令不需要数据库和外部存储
var standalone = map[string]bool{
	"init":       true,
	"eligible":   true,
	"help":       true,
	"completion": true,
}

var rootCmd = &cobra.Command{
	Use:           "rtblob",
	Short:         "External blob storage for ticket attachments",
	SilenceUsage:  true,
	SilenceErrors: true,
	// PersistentPreRunE 会在所有子命令执行前运行
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if standalone[cmd.Name()] {
			return nil
		}

		var err error
		RT, err = app.NewApp(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to initialize rtblob: %w\n(Did you run 'rtblob init'?)", err)
		}
		if metricsAddr != "" {
			startMetrics(metricsAddr)
		}
		return nil
	},
}

// Execute 是入口
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext 执行命令，结束后 (无论成功与否) 释放 App 持有的连接
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = metricsSrv.Shutdown(shutdownCtx)
		cancel()
		metricsSrv = nil
	}
	if RT != nil {
		if cerr := RT.Close(); cerr != nil && err == nil {
			err = cerr
		}
		RT = nil
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	// 1. 全局参数 --config
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.rtblob/config.yaml or $HOME/.rtblob/config.yaml)")

	// 2. 常用配置项可以用参数覆盖
	bind := func(flag, key, usage string) {
		rootCmd.PersistentFlags().String(flag, "", usage)
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to bind flag:", err)
			os.Exit(1)
		}
	}
	bind("storage-type", "external_storage.type", "external storage backend (Disk, AmazonS3, Dropbox, Badger)")
	bind("storage-path", "external_storage.path", "Path option for Disk, Dropbox and Badger backends")
	bind("log-level", "log.level", "log level (debug, info, warn, error)")

	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs (e.g. :9090)")
}

// startMetrics 在命令执行期间暴露 /metrics (长时间的批量 store 可以被抓取)
func startMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	metricsSrv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	srv, logger := metricsSrv, RT.Logger
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics listener stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
}

// initConfig 读取配置文件和环境变量
func initConfig() {
	if err := config.Load(cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, "Config error:", err)
		os.Exit(1)
	}
}
