// Command logqueued runs the queue subsystem as a standalone daemon: it
// decodes a YAML config, constructs a single queue.Queue from it, and
// feeds dequeued items to a demo consumer until told to stop.
package main

import (
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	conf "github.com/elastic/elastic-agent-libs/config"
	"github.com/elastic/elastic-agent-libs/logp"
	"github.com/elastic/elastic-agent-libs/monitoring"
	"github.com/elastic/elastic-agent-libs/paths"
	"github.com/elastic/elastic-agent-libs/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.elastic.co/apm/v2"

	daemonconfig "github.com/njcx/logqueued/internal/config"
	"github.com/njcx/logqueued/internal/logging"
	"github.com/njcx/logqueued/internal/queue"
	"github.com/njcx/logqueued/internal/queue/codec"
	"github.com/njcx/logqueued/internal/queue/metrics"
)

var (
	metricsAddr = pflag.String("metrics-addr", "", "address to serve Prometheus metrics on, e.g. :9100 (disabled if empty)")
	overwrites  = conf.SettingFlag(nil, "E", "Configuration overwrite")
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	pflag.Parse()
	files := pflag.Args()

	cfg, err := daemonconfig.Load(files...)
	if err != nil {
		return err
	}
	if err := cfg.Merge(overwrites); err != nil {
		return err
	}

	settings, err := daemonconfig.Unpack(cfg)
	if err != nil {
		return err
	}

	service.BeforeRun()
	defer service.Cleanup()

	if err := paths.InitPaths(&settings.Path); err != nil {
		return err
	}
	if err := logging.Configure("logqueued", settings.Logging); err != nil {
		return err
	}
	logger := logging.Root()

	kind, queueSettings, err := settings.Resolve()
	if err != nil {
		return err
	}
	queueSettings.Logger = logger

	reg := monitoring.Default.NewRegistry("queue")
	m := metrics.NewRegistryMetrics(reg)
	if *metricsAddr != "" {
		m = m.WithPrometheus(prometheus.DefaultRegisterer, "logqueued", "mainq")
		startMetricsServer(logger, *metricsAddr)
	}
	queueSettings.Metrics = m
	queueSettings.Tracer = apm.DefaultTracer()

	consumer := loggingConsumer(logger)

	q, err := queue.New(kind, queueSettings, consumer)
	if err != nil {
		return fmt.Errorf("logqueued: construct queue: %w", err)
	}
	if err := q.Start(); err != nil {
		return fmt.Errorf("logqueued: start queue: %w", err)
	}

	// A single designated goroutine owns os/signal, per worker.go's
	// documented design: workers never install their own handler, so
	// shutdown is always funneled through this one path into Close.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("logqueued: shutdown signal received, draining queue")

	return q.Close()
}

// loggingConsumer is the demo consumer: it expects codec.LogEntry items
// (the shape produced by either disk codec, or handed to an in-memory
// queue by a producer) and logs them at info level.
func loggingConsumer(logger *logp.Logger) queue.Consumer {
	return func(item queue.Entry) error {
		entry, ok := item.(*codec.LogEntry)
		if !ok {
			logger.Infof("logqueued: dequeued non-LogEntry item: %v", item)
			return nil
		}
		logger.Infof("logqueued: %s %s[%s]: %s", entry.Host, entry.Facility, entry.Severity, entry.Message)
		return nil
	}
}

func startMetricsServer(logger *logp.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warnf("logqueued: metrics server stopped: %v", err)
		}
	}()
}
