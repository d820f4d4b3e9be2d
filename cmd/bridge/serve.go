package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"zeptrion-bridge/internal/adapters/input/http"
	"zeptrion-bridge/internal/adapters/input/hue"
	"zeptrion-bridge/internal/adapters/input/ssdp"
	"zeptrion-bridge/internal/adapters/output/mqtt"
	"zeptrion-bridge/internal/adapters/output/persistence"
	"zeptrion-bridge/internal/adapters/output/zrap"
	"zeptrion-bridge/internal/domain/service"
	"zeptrion-bridge/internal/domain/tracker"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge: Hue emulation, REST API, hub listener and MQTT publishing",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("listen", ":80", "HTTP listen address")
	f.String("local-ip", "", "IP advertised to Hue clients (detected when empty)")
	f.String("config-path", "/app/config.json", "bridge settings file")
	f.Duration("scene-grace", tracker.DefaultSceneGrace, "how long a recalled scene counts as moving")
	f.Duration("travel-time", 0, "expected full open/close travel time, 0 to leave movement open ended")
	f.Bool("ssdp", true, "answer SSDP searches from Hue clients")
	f.Bool("events", true, "listen to the hub's websocket events")
	f.String("mqtt-broker", "", "publish state and events to this broker, e.g. mqtt://localhost:1883")
	f.String("mqtt-client-id", "zeptrion-bridge", "MQTT client id")
	f.String("mqtt-username", "", "MQTT username")
	f.String("mqtt-password", "", "MQTT password")
	f.String("mqtt-prefix", mqtt.DefaultPrefix, "MQTT topic prefix")
	cobra.CheckErr(viper.BindPFlags(f))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, closer, err := initLogging()
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo := persistence.NewJSONConfigRepository(viper.GetString("config-path"))
	cfg, err := repo.Get(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", viper.GetString("config-path"), err)
	}

	ip := viper.GetString("local-ip")
	if ip == "" {
		ip = cfg.LocalIP
	}
	if ip == "" {
		ip = getLocalIP()
	}
	if ip == "" {
		return fmt.Errorf("could not determine local IP, set --local-ip or ZAPP_LOCAL_IP")
	}
	port, err := listenPort(viper.GetString("listen"))
	if err != nil {
		return err
	}

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithSceneGrace(viper.GetDuration("scene-grace")),
		service.WithTravelTime(viper.GetDuration("travel-time")),
		service.WithStepDuration(cfg.StepDuration()),
	}
	if broker := viper.GetString("mqtt-broker"); broker != "" {
		pub, err := mqtt.Connect(ctx, mqtt.Config{
			BrokerURL: broker,
			ClientID:  viper.GetString("mqtt-client-id"),
			Username:  viper.GetString("mqtt-username"),
			Password:  viper.GetString("mqtt-password"),
			Prefix:    viper.GetString("mqtt-prefix"),
		}, logger)
		if err != nil {
			return err
		}
		opts = append(opts, service.WithObserver(pub), service.WithEventSink(pub))
	}
	coordinator := service.NewCoordinator(opts...)
	dial := dialer(logger.With().Str("component", "zrap").Logger())
	configService := service.NewConfigService(repo, coordinator, dial)

	server, err := http.NewServer(coordinator, configService, ip, port, logger.With().Str("component", "http").Logger())
	if err != nil {
		return err
	}

	logger.Info().Str("ip", ip).Str("version", Version).Msg("Starting zeptrion bridge")

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.ListenAndServe(ctx, viper.GetString("listen")); err != nil {
			errCh <- err
		}
	}()

	if viper.GetBool("ssdp") {
		bridgeUUID := func() uuid.UUID {
			if ident, err := coordinator.Identity(); err == nil && ident.SerialNumber != "" {
				return hue.BridgeUUID(ident.SerialNumber)
			}
			return hue.BridgeUUID(ip)
		}
		responder := ssdp.NewServer(ip, port, bridgeUUID, logger.With().Str("component", "ssdp").Logger())
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := responder.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("SSDP responder stopped")
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		host, err := resolveHost(ctx, cfg.HubHost, logger)
		if err != nil {
			logger.Error().Err(err).Msg("No hub configured; set one through /admin")
			return
		}
		if err := setupWithRetry(ctx, coordinator, dial(host), setupBackOff(), logger); err != nil {
			logger.Error().Err(err).Str("host", host).Msg("Hub setup abandoned")
			return
		}
		ident, _ := coordinator.Identity()
		logger.Info().
			Str("host", host).
			Str("serial", ident.SerialNumber).
			Int("channels", len(coordinator.Channels())).
			Msg("Hub ready")

		// TODO: restart the listener when the hub host is changed through /admin/config.
		if viper.GetBool("events") {
			zrap.NewListener(host, coordinator, logger.With().Str("component", "listener").Logger()).Run(ctx)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		stop()
	}
	wg.Wait()
	logger.Info().Msg("Bridge stopped")
	return runErr
}

func listenPort(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return 0, fmt.Errorf("listen address %q: port must be numeric", addr)
	}
	return port, nil
}
