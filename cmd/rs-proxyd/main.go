// Package main implements rs-proxyd, the depth-camera topology proxy
// daemon. It adopts remote camera descriptors into local topology models,
// feeds their metadata from NATS, and serves the result over HTTP,
// WebSocket and Prometheus endpoints.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/timor11/librealsense/config"
	"github.com/timor11/librealsense/environment"
	"github.com/timor11/librealsense/gateway"
	"github.com/timor11/librealsense/metric"
	"github.com/timor11/librealsense/natsclient"
	"github.com/timor11/librealsense/proxy"
	"github.com/timor11/librealsense/remote"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "rs-proxyd"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("daemon failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg, cliCfg)

	logger := setupLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if cliCfg.Validate {
		slog.Info("configuration is valid", "devices", len(cfg.Devices))
		return nil
	}

	slog.Info("starting rs-proxyd",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath,
		"devices", len(cfg.Devices))

	ctx := context.Background()
	registry := metric.NewMetricsRegistry()

	natsClient, err := connectNATS(ctx, cfg, registry, logger)
	if err != nil {
		return err
	}
	defer func() { _ = natsClient.Close(context.Background()) }()

	env := environment.New(environment.WithLogger(logger))

	var gw *gateway.Server
	if cfg.Gateway.Enabled {
		gw = gateway.New(cfg.Gateway,
			gateway.WithLogger(logger),
			gateway.WithMetrics(registry))
	}

	proxies, err := buildDevices(ctx, cfg, env, natsClient, registry, gw, logger)
	if err != nil {
		closeAll(proxies)
		return err
	}
	defer closeAll(proxies)

	return serve(ctx, cfg, cliCfg.ShutdownTimeout, registry, gw)
}

// initializeCLI parses and validates flags, handling the version and help
// exits.
func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	return cliCfg, false, nil
}

// applyCLIOverrides lets explicit CLI flags win over the file and
// environment layers.
func applyCLIOverrides(cfg *config.Config, cli *CLIConfig) {
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Log.Format = cli.LogFormat
	}
}

// connectNATS builds the client from config, connects, and waits for the
// connection to come up. Connection state changes feed the NATS metrics.
func connectNATS(
	ctx context.Context,
	cfg *config.Config,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) (*natsclient.Client, error) {
	core := registry.CoreMetrics()

	opts := []natsclient.ClientOption{
		natsclient.WithName(cfg.NATS.Name),
		natsclient.WithLogger(logger),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithReconnectWait(cfg.NATS.ReconnectWait),
		natsclient.WithDisconnectCallback(func(error) {
			core.RecordNATSStatus(false)
		}),
		natsclient.WithReconnectCallback(func() {
			core.RecordNATSStatus(true)
			core.RecordNATSReconnect()
		}),
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}
	if cfg.NATS.TLS.Enabled {
		opts = append(opts, natsclient.WithTLS(
			cfg.NATS.TLS.CertFile, cfg.NATS.TLS.KeyFile, cfg.NATS.TLS.CAFile))
	}

	client, err := natsclient.NewClient(cfg.NATS.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	slog.Info("connecting to NATS", "url", cfg.NATS.URL)
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.WaitForConnection(connCtx); err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("NATS connection timeout: %w", err)
	}

	core.RecordNATSStatus(true)
	return client, nil
}

// buildDevices adopts every configured device concurrently. Any failure
// aborts startup; proxies built before the failure are returned so the
// caller can release them.
func buildDevices(
	ctx context.Context,
	cfg *config.Config,
	env *environment.Environment,
	client *natsclient.Client,
	registry *metric.MetricsRegistry,
	gw *gateway.Server,
	logger *slog.Logger,
) ([]*proxy.DeviceProxy, error) {
	var (
		mu      sync.Mutex
		proxies []*proxy.DeviceProxy
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, devCfg := range cfg.Devices {
		devCfg := devCfg
		g.Go(func() error {
			p, err := buildDevice(gctx, cfg, env, client, registry, gw, logger, devCfg)
			if err != nil {
				return err
			}
			mu.Lock()
			proxies = append(proxies, p)
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	mu.Lock()
	defer mu.Unlock()
	return proxies, err
}

// buildDevice loads one descriptor, adopts it into a proxy, and starts its
// metadata feed. The feed subscription happens only after the build
// succeeded and the router is installed.
func buildDevice(
	ctx context.Context,
	cfg *config.Config,
	env *environment.Environment,
	client *natsclient.Client,
	registry *metric.MetricsRegistry,
	gw *gateway.Server,
	logger *slog.Logger,
	devCfg config.Device,
) (*proxy.DeviceProxy, error) {
	data, err := os.ReadFile(devCfg.Descriptor)
	if err != nil {
		return nil, fmt.Errorf("read descriptor %s: %w", devCfg.Descriptor, err)
	}
	desc, err := remote.ParseDescriptor(data)
	if err != nil {
		return nil, fmt.Errorf("parse descriptor %s: %w", devCfg.Descriptor, err)
	}
	if devCfg.Serial != "" && desc.Device.Serial != devCfg.Serial {
		return nil, fmt.Errorf("descriptor %s carries serial %s, config expects %s",
			devCfg.Descriptor, desc.Device.Serial, devCfg.Serial)
	}
	serial := desc.Device.Serial

	subject := devCfg.MetadataSubject
	if subject == "" && desc.Device.TopicRoot != "" {
		subject = remote.MetadataSubject(desc.Device.TopicRoot)
	}

	var source *remote.MetadataSource
	if subject != "" {
		source = remote.NewMetadataSource(client, subject, logger)
	} else if desc.MetadataSupported {
		slog.Warn("device has no topic root and no metadata-subject override; feed disabled",
			"serial", serial)
	}
	live := remote.NewLiveDevice(desc, source)

	opts := []proxy.Option{
		proxy.WithLogger(logger),
		proxy.WithMetrics(registry),
		proxy.WithMetadataDepth(cfg.Sensor.MetadataDepth),
	}
	if cfg.NATS.PublishBuildLog {
		opts = append(opts, proxy.WithBuildLog(client))
	}
	if gw != nil {
		opts = append(opts, proxy.WithMetadataObserver(func(rec remote.Metadata) {
			gw.BroadcastMetadata(serial, rec)
		}))
	}

	p, err := proxy.New(env, live, opts...)
	if err != nil {
		return nil, fmt.Errorf("adopt device %s: %w", serial, err)
	}

	if err := live.Start(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("start metadata feed for %s: %w", serial, err)
	}

	if gw != nil {
		gw.AddDevice(p)
	}
	slog.Info("device adopted", "serial", serial, "subject", subject)
	return p, nil
}

// serve runs the gateway and metrics servers until a shutdown signal
// arrives, then stops them in reverse order.
func serve(
	ctx context.Context,
	cfg *config.Config,
	shutdownTimeout time.Duration,
	registry *metric.MetricsRegistry,
	gw *gateway.Server,
) error {
	signalCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var metricsServer *metric.Server
	if cfg.Metrics.Enabled {
		metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
		go func() {
			if err := metricsServer.Start(); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
		slog.Info("metrics server listening", "address", metricsServer.Address())
	}

	if gw != nil {
		if err := gw.Start(signalCtx); err != nil {
			if metricsServer != nil {
				_ = metricsServer.Stop()
			}
			return fmt.Errorf("start gateway: %w", err)
		}
		slog.Info("gateway listening", "port", cfg.Gateway.Port)
	}

	slog.Info("rs-proxyd started")
	<-signalCtx.Done()
	slog.Info("received shutdown signal")

	if gw != nil {
		if err := gw.Stop(shutdownTimeout); err != nil {
			slog.Warn("gateway stop incomplete", "error", err)
		}
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			slog.Warn("metrics server stop incomplete", "error", err)
		}
	}

	slog.Info("rs-proxyd shutdown complete")
	return nil
}

// closeAll releases every built proxy.
func closeAll(proxies []*proxy.DeviceProxy) {
	for _, p := range proxies {
		p.Close()
	}
}
