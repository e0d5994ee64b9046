package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/guided-traffic/request-body-parser/internal/config"
	"github.com/guided-traffic/request-body-parser/internal/monitoring"
	"github.com/guided-traffic/request-body-parser/internal/proxy"
	"github.com/guided-traffic/request-body-parser/internal/proxy/handlers/health"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	// Build information injected at build time
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"

	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "body-parser-proxy",
		Short: "Body Parser Proxy decodes HTTP request bodies by content type",
		Long: `Body Parser Proxy runs an HTTP server whose middleware chain decodes request
bodies according to their Content-Type before handing them on.

Built-in decoders:
- application/json (key order of objects is preserved)
- application/xml and text/xml (external entities are never loaded)
- application/x-www-form-urlencoded

Further content types can be routed to a built-in decoder with parser.aliases.
The /parse endpoint echoes the decoded body. When upstream.target_endpoint is set,
every other request is forwarded upstream with its original body.

All configuration is done through YAML configuration files. Use --config to specify
a configuration file, or the proxy will look for configuration in standard locations.`,
		Run: runProxy,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to configuration file (YAML format)")
}

func initConfig() {
	config.InitConfig(cfgFile)
}

func runProxy(cmd *cobra.Command, args []string) {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	// Set log level and format
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid log level")
	}
	logrus.SetLevel(level)
	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	// Display build information at startup
	logrus.WithFields(logrus.Fields{
		"version":   version,
		"commit":    commit,
		"buildTime": buildTime,
	}).Info("Body Parser Proxy build information")

	if cfg.Monitoring.Enabled {
		monitoring.SetServerInfo(version, commit, buildTime)
	}

	proxyServer, err := proxy.NewServer(cfg, health.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create proxy server")
	}

	// Cancelled on SIGINT/SIGTERM or when either server fails
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return proxyServer.Start(groupCtx)
	})

	if cfg.Monitoring.Enabled {
		monitoringServer := monitoring.NewServer(&monitoring.Config{
			BindAddress: cfg.Monitoring.BindAddress,
			MetricsPath: cfg.Monitoring.MetricsPath,
		})
		group.Go(func() error {
			return monitoringServer.Start(groupCtx)
		})
	}

	if err := group.Wait(); err != nil {
		logrus.WithError(err).Fatal("Server failed")
	}

	logrus.Info("Server stopped")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
