// Command logship reads log lines from stdin and ships them to a
// remote collector. Mainly a smoke-test harness for the shipper; real
// applications embed the shipper package directly.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"logship/internal/config"
	"logship/internal/logger"
	"logship/internal/models"
	"logship/internal/shipper"
	"logship/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	opts, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logship: %v\n", err)
		os.Exit(1)
	}
	logger.Init(opts.LogLevel)
	log := logger.WithComponent("main")

	tr, err := newTransport(opts)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build transport")
	}
	defer tr.Close()

	if opts.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(opts.MetricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	hostname, _ := os.Hostname()
	s := shipper.New(opts, tr, shipper.Hooks{
		Metadata: func() map[string]any {
			return map[string]any{
				"hostname": hostname,
				"pid":      os.Getpid(),
			}
		},
	})
	s.Start()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

loop:
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			s.Handle(models.Input{
				Severity: models.SeverityInfo,
				Logger:   "stdin",
				Message:  line,
			}, nil)
		case <-sigs:
			log.Info().Msg("shutting down")
			break loop
		}
	}

	completed := s.Close(opts.ShutdownTimeout + opts.SendTimeout)
	stats := s.Stats()
	log.Info().
		Bool("flush_completed", completed).
		Uint64("enqueued", stats.Enqueued).
		Uint64("delivered", stats.Delivered).
		Uint64("dropped_overflow", stats.DroppedOverflow).
		Uint64("dropped_retry", stats.DroppedRetry).
		Uint64("dropped_permanent", stats.DroppedPermanent).
		Uint64("dropped_shutdown", stats.DroppedShutdown).
		Msg("exited")
}

func newTransport(opts config.Options) (transport.Transport, error) {
	switch opts.Transport {
	case config.TransportKafka:
		return transport.NewKafka(transport.KafkaConfig{
			Brokers:     opts.KafkaBrokers,
			Topic:       opts.KafkaTopic,
			AppName:     opts.AppName,
			Compression: opts.Compression,
		})
	default:
		return transport.NewHTTP(transport.HTTPConfig{
			Endpoint: opts.Endpoint,
			AppName:  opts.AppName,
			Token:    opts.AuthToken,
		})
	}
}
