package main

import (
	httpadapter "awesomelights-bridge/internal/adapters/input/http"
	"awesomelights-bridge/internal/adapters/input/ssdp"
	"awesomelights-bridge/internal/adapters/output/homeassistant"
	"awesomelights-bridge/internal/adapters/output/persistence"
	"awesomelights-bridge/internal/config"
	"awesomelights-bridge/internal/domain/service"
	"awesomelights-bridge/internal/logging"
	"awesomelights-bridge/internal/metrics"
	"awesomelights-bridge/internal/ports"
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("awesomelights stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ip := cfg.Bridge.AdvertiseIP
	if ip == "" {
		ip = getLocalIP()
	}
	if ip == "" {
		return errors.New("could not determine local IP, set bridge.advertiseIP")
	}
	port, err := cfg.AdvertisedPort()
	if err != nil {
		return err
	}
	logger.Info("starting awesomelights bridge", zap.String("ip", ip), zap.String("driver", cfg.Driver.Kind))

	opts := []service.HubOption{service.WithLogger(logger.Named("hub"))}
	if cfg.Hub.Password != "" {
		opts = append(opts, service.WithPassword(cfg.Hub.Password))
	}
	if factory := driverFactory(cfg, logger); factory != nil {
		opts = append(opts, service.WithDriverFactory(factory))
	}
	hub := service.NewHub(cfg.Hub.Host, cfg.Hub.Username, opts...)

	var recorder ports.Recorder
	var serverOpts []httpadapter.Option
	if cfg.Metrics.Enable {
		reg := metrics.NewRegistry()
		recorder = metrics.NewAppMetrics(reg)
		serverOpts = append(serverOpts, httpadapter.WithMetrics(cfg.Metrics.Path, metrics.Handler(reg)))
	}
	serverOpts = append(serverOpts, httpadapter.WithLogger(logger.Named("http")))

	registry := persistence.NewJSONDeviceRegistry(cfg.Bridge.RegistryPath)
	bridge := service.NewBridgeService(hub, registry, recorder, logger.Named("bridge"))
	if err := bridge.RefreshDevices(ctx); err != nil {
		// The bridge retries on the first Hue request.
		logger.Warn("initial device refresh failed", zap.Error(err))
	}

	if cfg.SSDP.Enable {
		ssdpServer := ssdp.NewServer(ip, port, logger.Named("ssdp"))
		go func() {
			if err := ssdpServer.Start(ctx); err != nil {
				logger.Error("ssdp server error", zap.Error(err))
			}
		}()
	}

	httpServer := httpadapter.NewServer(bridge, ip, port, serverOpts...).
		HTTPServer(cfg.HTTP.Addr, cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// driverFactory returns nil for the in-memory driver, which the hub uses by default.
func driverFactory(cfg *config.Config, logger *zap.Logger) ports.DriverFactory {
	if cfg.Driver.Kind != config.DriverHomeAssistant {
		return nil
	}
	ha := cfg.HomeAssistant
	client := homeassistant.NewClient(homeassistant.Options{
		URL:              ha.URL,
		Token:            ha.Token,
		Timeout:          ha.Timeout,
		RateLimit:        ha.RateLimit,
		Burst:            ha.Burst,
		CacheTTL:         ha.CacheTTL,
		ToHAFormula:      ha.ToHAFormula,
		ToAwesomeFormula: ha.ToAwesomeFormula,
	}, logger.Named("homeassistant"))
	return homeassistant.Factory(client, ha.Entities)
}

func getLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, address := range addrs {
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	return ""
}
