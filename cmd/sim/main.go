// Command sim runs the dealer simulation: load config and scenario,
// step the configured number of days, and flush the journal. With
// -serve the process stays up after the run so dashboards can read the
// metrics endpoint and the journal websocket stream.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"ticket-dealer-go/config"
	"ticket-dealer-go/journal"
	"ticket-dealer-go/ledger"
	"ticket-dealer-go/logging"
	"ticket-dealer-go/metrics"
	"ticket-dealer-go/sim"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "config file path")
	scenarioPath := flag.String("scenario", "configs/scenario.yaml", "scenario file path")
	days := flag.Int("days", 0, "override configured day count")
	serve := flag.Bool("serve", false, "keep serving metrics and the journal stream after the run")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *days > 0 {
		cfg.Days = *days
	}
	sc, err := config.LoadScenario(*scenarioPath)
	if err != nil {
		log.Fatalf("load scenario: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	var sinks []journal.Sink
	var fileSink *journal.FileSink
	if cfg.Journal.File != "" {
		fileSink, err = journal.NewFileSink(cfg.Journal.File)
		if err != nil {
			logger.Fatal("open journal file", zap.Error(err))
		}
		sinks = append(sinks, fileSink)
	}
	if cfg.Journal.SQLite != "" {
		sqlSink, err := journal.NewSQLiteSink(cfg.Journal.SQLite)
		if err != nil {
			logger.Fatal("open journal db", zap.Error(err))
		}
		sinks = append(sinks, sqlSink)
	}
	var hub *journal.Hub
	if cfg.Journal.ServeAddr != "" {
		hub = journal.NewHub(logger)
		sinks = append(sinks, hub)
		mux := http.NewServeMux()
		mux.Handle("/journal", hub)
		go func() {
			if err := http.ListenAndServe(cfg.Journal.ServeAddr, mux); err != nil {
				logger.Warn("journal stream server stopped", zap.Error(err))
			}
		}()
	}
	jr := journal.New(sinks...)
	jr.OnError(func(err error) {
		logger.Warn("journal sink error", zap.Error(err))
	})

	if cfg.Metrics.Enabled {
		metrics.StartMetricsServer(cfg.Metrics.Addr)
	}

	runner, err := sim.NewRunner(cfg, sc, jr, logger)
	if err != nil {
		logger.Fatal("build runner", zap.Error(err))
	}

	if *serve {
		if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
			logger.Debug("sd_notify unavailable", zap.Error(err))
		}
	}

	runErr := runner.Run()
	if fileSink != nil {
		if err := fileSink.Close(); err != nil {
			logger.Warn("close journal file", zap.Error(err))
		}
	}
	if runErr != nil {
		if _, ok := runErr.(*ledger.InvariantViolation); ok {
			logger.Fatal("run aborted on invariant violation", zap.Error(runErr))
		}
		logger.Fatal("run failed", zap.Error(runErr))
	}
	logger.Info("run complete",
		zap.Int("days", cfg.Days),
		zap.Int("events", jr.Len()),
	)

	if *serve {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		if hub != nil {
			hub.Close()
		}
	}
}
