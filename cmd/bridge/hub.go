package main

import (
	"context"
	"errors"
	"fmt"
	"time"
	"zeptrion-bridge/internal/adapters/output/discovery"
	"zeptrion-bridge/internal/adapters/output/zrap"
	"zeptrion-bridge/internal/domain/service"
	"zeptrion-bridge/internal/ports"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

var errNoHub = errors.New("no zeptrion hub found on the network")

func dialer(logger zerolog.Logger) service.TransportFactory {
	timeout := viper.GetDuration("timeout")
	return func(host string) ports.HubTransport {
		return zrap.NewClient(host, timeout, zrap.WithClientLogger(logger))
	}
}

// resolveHost picks the hub address: saved configuration first, then the hub-host setting, then
// the first hub found by mDNS.
func resolveHost(ctx context.Context, saved string, logger zerolog.Logger) (string, error) {
	if saved != "" {
		return saved, nil
	}
	if host := viper.GetString("hub-host"); host != "" {
		return host, nil
	}

	hubs, err := discovery.NewBrowser(logger).Discover(ctx, viper.GetDuration("discover-wait"))
	if err != nil {
		return "", err
	}
	if len(hubs) == 0 {
		return "", errNoHub
	}
	logger.Info().Str("host", hubs[0].Host).Str("serial", hubs[0].Serial).Int("found", len(hubs)).Msg("Using discovered hub")
	return hubs[0].Host, nil
}

func setupBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.MaxInterval = time.Minute
	b.MaxElapsedTime = 0
	return b
}

// setupWithRetry runs Setup until it succeeds, ctx ends or the failure is not transient.
func setupWithRetry(ctx context.Context, c *service.Coordinator, transport ports.HubTransport, b backoff.BackOff, logger zerolog.Logger) error {
	op := func() error {
		_, err := c.Setup(ctx, transport)
		if err != nil && !ports.Transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		logger.Warn().Err(err).Dur("retry_in", next).Msg("Hub setup failed")
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("hub setup: %w", err)
	}
	return nil
}
