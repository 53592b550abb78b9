package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"logbridge/pkg/bridge"
	"logbridge/pkg/codec"
	"logbridge/pkg/config"
	"logbridge/pkg/logger"
	"logbridge/pkg/pipeline"
	"logbridge/pkg/sink"
	"logbridge/pkg/wsclient"
)

var errSourceEnded = errors.New("source stream ended")

func main() {
	configPath := flag.String("config", "", "Path to configuration file (defaults are used when empty)")
	flag.Parse()

	cfg := config.Default()
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("streamer stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := sink.DefaultOptions(cfg.DataDir)
	opts.Workers = cfg.Sink.Workers
	opts.QueueSize = cfg.Sink.QueueSize
	if cfg.Sink.CompressionLevel != nil {
		opts.Level = *cfg.Sink.CompressionLevel
	}
	opts.Metrics = sink.NewMetrics(reg)

	c := codec.Default()
	factory := bridge.NewFactory(opts, c, log)
	plugins := bridge.NewRegistry()
	factory.Register(plugins)
	bridge.RegisterPublisher[pipeline.Frame](plugins, pipeline.FrameType, c)
	log.Info("bridge registered", zap.String("bridge", factory.Name()), zap.Strings("types", plugins.Types()))

	inst := factory.CreateInstance()
	defer func() {
		if err := inst.Close(10 * time.Second); err != nil {
			log.Warn("sink close", zap.Error(err))
		}
	}()

	inst.Connect(cfg.Connection)
	if inst.Status() != sink.Connected {
		return fmt.Errorf("could not open %s", inst.Path(cfg.Connection))
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if cfg.Source != nil {
		pub, err := bridge.CreatePublisher[pipeline.Frame](plugins, pipeline.FrameType, inst, cfg.Source.Topic)
		if err != nil {
			return err
		}

		client := wsclient.New(cfg.Source.URL, log)
		if err := client.Connect(); err != nil {
			return fmt.Errorf("connect source: %w", err)
		}
		if err := client.Subscribe(cfg.Source.Streams, 1); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		log.Info("subscribed", zap.Strings("streams", cfg.Source.Streams), zap.String("topic", pub.Topic()))

		g.Go(func() error {
			<-ctx.Done()
			return client.Close()
		})
		g.Go(func() error {
			pipeline.Run(ctx, client.Messages(), client.Errors(), pub, cfg.Source.URL, log)
			if ctx.Err() == nil {
				return errSourceEnded
			}
			return nil
		})
	} else {
		log.Info("no source configured; recording until interrupted", zap.String("path", inst.Path(cfg.Connection)))
		g.Go(func() error {
			<-ctx.Done()
			return nil
		})
	}

	return g.Wait()
}
