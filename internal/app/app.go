package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	server "turbowheel/server"
	servernet "turbowheel/server/internal/net"
	"turbowheel/server/internal/scores"
	"turbowheel/server/internal/settle"
	"turbowheel/server/logging"
	loggingsinks "turbowheel/server/logging/sinks"
)

// Run wires storage, settlement, logging, and the hub, then serves HTTP until
// the context ends.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	logger := log.Default()

	logConfig := logging.DefaultConfig()
	logConfig.EnabledSinks = cfg.LogSinks
	logConfig.JSON.FilePath = cfg.LogJSONPath

	sinks, closeFiles, err := buildSinks(logConfig)
	if err != nil {
		return err
	}
	router := logging.NewRouter(nil, logConfig, sinks)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
		closeFiles()
	}()

	var store scores.Store
	if cfg.MemoryStore {
		store = scores.NewMemoryStore()
	} else {
		boltStore, err := scores.OpenBolt(cfg.DataDir, "turbowheel.db")
		if err != nil {
			return fmt.Errorf("open score store: %w", err)
		}
		store = boltStore
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Printf("failed to close score store: %v", cerr)
		}
	}()

	contribution := settle.MustParseEther(server.PrizeContributionEther)
	ledger := settle.NewMemoryLedger(contribution)
	aggregator := settle.NewAggregator(store, ledger, settle.Config{
		TopN:         cfg.TopN,
		Contribution: contribution,
		Publisher:    router,
	})

	hub := server.NewHub(server.HubConfig{
		Store:      store,
		Aggregator: aggregator,
		Publisher:  router,
		Logger:     logger,
	})

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		ClientDir: cfg.ClientDir,
		Logger:    logger,
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Printf("server listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func buildSinks(cfg logging.Config) ([]logging.NamedSink, func(), error) {
	var sinks []logging.NamedSink
	var files []*os.File

	if cfg.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{Name: "console", Sink: loggingsinks.NewConsole(os.Stdout)})
	}
	if cfg.HasSink("json") && cfg.JSON.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.JSON.FilePath), 0o750); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		file, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		files = append(files, file)
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingsinks.NewJSON(file, cfg.JSON.FlushInterval)})
	}

	closeFiles := func() {
		for _, file := range files {
			file.Close()
		}
	}
	return sinks, closeFiles, nil
}
