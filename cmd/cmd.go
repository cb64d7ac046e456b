package cmd

import (
	"context"
	"errors"
	"io"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/mqtt4dsmr/internal/pkg/config"
	"github.com/anicoll/mqtt4dsmr/internal/pkg/dsmr"
	"github.com/anicoll/mqtt4dsmr/internal/pkg/mqtt"
	"github.com/anicoll/mqtt4dsmr/internal/pkg/pipeline"
)

func BridgeCommand(ctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if ctx.IsSet("log-level") {
		cfg.LogLevel = ctx.String("log-level")
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	opts, err := mqtt.NewClientOptions(&cfg.MQTT, cfg.AvailabilityTopic())
	if err != nil {
		return err
	}
	broker := mqtt.New(paho_mqtt.NewClient(opts), cfg.AvailabilityTopic())
	logger.Info("connecting to broker", zap.String("broker", cfg.MQTT.BrokerURL()))
	if err := broker.Connect(); err != nil {
		return err
	}
	defer broker.Disconnect()

	src, err := openSource(ctx.Context, &cfg.Serial)
	if err != nil {
		return err
	}

	err = run(ctx.Context, cfg, broker, src, make(chan error, 1), logger)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

func newLogger(level string) (*zap.Logger, error) {
	var err error
	logCfg := zap.NewProductionConfig()

	logCfg.Level, err = zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	return logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

func openSource(ctx context.Context, cfg *config.SerialConfig) (io.ReadCloser, error) {
	if cfg.TCP {
		zap.L().Info("reading telegrams over tcp", zap.String("host", cfg.TCPHost), zap.Int("port", cfg.TCPPort))
		return dsmr.DialTCP(ctx, cfg.TCPHost, cfg.TCPPort)
	}
	zap.L().Info("reading telegrams from serial port", zap.String("device", cfg.Device), zap.String("settings", cfg.Settings))
	return dsmr.OpenSerial(cfg.Device, cfg.Settings)
}

// run bridges telegrams read from src to the broker until a fatal error occurs
// or ctx is done. src is closed on return.
func run(ctx context.Context, cfg *config.Config, broker Broker, src io.ReadCloser, errorChan chan error, logger *zap.Logger) error {
	eg, ctx := errgroup.WithContext(ctx)

	p := pipeline.New(pipeline.Options{
		TopicPrefix:       cfg.MQTT.TopicPrefix,
		AvailabilityTopic: cfg.AvailabilityTopic(),
		Discovery:         cfg.HA.Enabled,
		DiscoveryPrefix:   cfg.HA.DiscoveryPrefix,
		DeviceID:          cfg.HA.DeviceID,
		Interval:          cfg.Interval(),
	}, broker, errorChan)
	reader := dsmr.NewReader(src, dsmr.RequiresCRC(cfg.Serial.Version))

	eg.Go(func() error {
		return p.Run(ctx, reader.Telegrams())
	})

	eg.Go(func() error {
		// unblocks the reader
		<-ctx.Done()
		if err := src.Close(); err != nil {
			logger.Debug("closing telegram source", zap.Error(err))
		}
		return nil
	})

	eg.Go(func() error {
		return refreshAvailability(ctx, cfg.AvailabilityRefresh, broker)
	})

	eg.Go(func() error {
		// handle any async errors from the publisher
		select {
		case err := <-errorChan:
			logger.Error("publish error", zap.Error(err))
			return err
		case <-ctx.Done():
			logger.Info("context done")
			return ctx.Err()
		}
	})

	return eg.Wait()
}

// refreshAvailability republishes the online status on schedule, so it survives
// a broker restart without persistence.
func refreshAvailability(ctx context.Context, schedule string, broker Broker) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := broker.Announce(); err != nil {
			zap.L().Warn("failed to refresh availability", zap.Error(err))
			return
		}
		zap.L().Debug("refreshed availability")
	}); err != nil {
		return err
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
