package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/api"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/config"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/engine"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/logger"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/metrics"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/registry"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketches"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/storage"
)

func main() {
	settings := config.FromEnv(engine.DefaultCacheSize)
	if len(os.Args) > 1 {
		settings.ConfigPath = os.Args[1]
	}

	log, err := logger.New(settings.LogMode, settings.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, settings, log); err != nil {
		log.Error("server error", "error", err)
		log.Sync()
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, settings config.Settings, log *logger.Logger) error {
	if settings.ConfigPath == "" {
		return errors.New("no sketch configuration: pass a path or set SKETCHD_CONFIG")
	}
	log.Info("loading sketch configuration", "path", settings.ConfigPath)
	file, err := config.Load(settings.ConfigPath)
	if err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promReg)

	reg, err := registry.New(file.Specs, registry.WithLockWait(func(f sketches.Family, wait time.Duration) {
		m.LockWait(f.String(), wait)
	}))
	if err != nil {
		return err
	}
	for _, info := range reg.List() {
		log.Debug("registered sketch", "name", info.Name, "family", info.Family, "type", info.ValueType, "k", info.K)
	}

	eng := engine.New(reg,
		engine.WithLogger(log.With("component", "engine")),
		engine.WithMetrics(m),
		engine.WithCacheSize(settings.CacheSize),
	)

	opts := []api.Option{api.WithLogger(log.With("component", "api")), api.WithGatherer(promReg)}
	if settings.SnapshotDB != "" {
		log.Info("using snapshot database", "path", settings.SnapshotDB)
		store, err := storage.Open(ctx, settings.SnapshotDB)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, api.WithStore(store))
	}

	r := mux.NewRouter()
	api.RegisterRoutes(r, eng, opts...)

	port := settings.ResolvePort(file)
	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("sketch server listening", "addr", "http://localhost:"+strconv.Itoa(port), "sketches", reg.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
