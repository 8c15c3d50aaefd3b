package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"matchbook/api/httpserver"
	"matchbook/domain/orderbook"
	"matchbook/engine"
	"matchbook/infra/config"
	"matchbook/infra/health"
	"matchbook/infra/journal"
	"matchbook/infra/kafka"
	"matchbook/infra/logging"
	"matchbook/infra/outbox"
	"matchbook/infra/sequence"
	"matchbook/infra/store"
	"matchbook/jobs/broadcaster"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults apply when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(cfg.Logging.Level, cfg.Logging.Dir)

	// ---------------- Storage ----------------

	var st store.Store
	switch cfg.Storage.Backend {
	case "pebble":
		st, err = store.OpenPebble(cfg.Storage.Dir)
		if err != nil {
			log.Error("open store", "err", err)
			os.Exit(1)
		}
	default:
		st = store.NewMemory()
	}
	defer st.Close()

	// ---------------- Trade journal ----------------

	var jrnl *journal.Journal
	seqGen := sequence.New(0)
	if cfg.Journal.Enabled {
		jrnl, err = journal.Open(journal.Config{
			Dir:         cfg.Journal.Dir,
			SegmentSize: cfg.Journal.SegmentSize,
		})
		if err != nil {
			log.Error("open journal", "err", err)
			os.Exit(1)
		}
		defer jrnl.Close()

		// journaled trade sequences must never be reissued
		maxSeq, err := journal.Scan(cfg.Journal.Dir, func(orderbook.Trade) error { return nil })
		if err != nil {
			log.Error("journal scan", "err", err)
			os.Exit(1)
		}
		seqGen.Floor(maxSeq)
	}

	// ---------------- Trade event sink ----------------

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sink engine.TradeSink
	switch cfg.Events.Sink {
	case "kafka":
		producer := kafka.NewProducer(cfg.Events.Brokers, cfg.Events.Topic)
		defer producer.Close()
		sink = producer
	case "outbox":
		ob, err := outbox.Open(cfg.Events.OutboxDir)
		if err != nil {
			log.Error("open outbox", "err", err)
			os.Exit(1)
		}
		defer ob.Close()

		producer, err := broadcaster.NewProducer(cfg.Events.Brokers)
		if err != nil {
			log.Error("kafka producer", "err", err)
			os.Exit(1)
		}
		bc := broadcaster.New(ob, producer, cfg.Events.Topic,
			time.Duration(cfg.Events.DrainIntervalMS)*time.Millisecond, log)
		defer bc.Close()
		go bc.Run(ctx)

		sink = outboxSink{ob: ob}
	default:
		sink = engine.LogSink{Log: log}
	}

	// ---------------- Matching authority ----------------

	policy := engine.SelfTradeAllow
	if cfg.Matching.SelfTrade == "reject" {
		policy = engine.SelfTradeReject
	}

	eng := engine.New(engine.Config{
		Symbol: cfg.Instrument,
		Policy: policy,
	}, orderbook.NewBook(), st, seqGen, sink, jrnl, log)

	if err := eng.Restore(); err != nil {
		log.Error("restore", "err", err)
		os.Exit(1)
	}
	if err := eng.Start(); err != nil {
		log.Error("start engine", "err", err)
		os.Exit(1)
	}

	// ---------------- Health (gRPC) ----------------

	hs, err := health.New(cfg.Health.GRPCAddr)
	if err != nil {
		log.Error("health server", "err", err)
		os.Exit(1)
	}
	hs.SetServing(true)
	go func() {
		if err := hs.Serve(); err != nil {
			log.Error("health server exited", "err", err)
		}
	}()

	// ---------------- HTTP API ----------------

	api := httpserver.New(cfg.HTTP.Addr, eng, log)
	go func() {
		if err := api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server exited", "err", err)
			cancel()
		}
	}()

	log.Info("matchbook running",
		"instrument", cfg.Instrument,
		"http", cfg.HTTP.Addr,
		"health", cfg.Health.GRPCAddr,
		"storage", cfg.Storage.Backend,
		"sink", cfg.Events.Sink,
	)

	// ---------------- Shutdown ----------------

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	hs.SetServing(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "err", err)
	}
	eng.Stop()
	hs.Stop()
	cancel()
}

// outboxSink appends trades durably; the broadcaster owns delivery.
type outboxSink struct {
	ob *outbox.Outbox
}

func (s outboxSink) Publish(t orderbook.Trade) error {
	return s.ob.Append(t)
}
