// Command server runs the casgen HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medforge/casgen/internal/api"
	"github.com/medforge/casgen/internal/artifacts"
	"github.com/medforge/casgen/internal/cache"
	"github.com/medforge/casgen/internal/catalog"
	"github.com/medforge/casgen/internal/config"
	"github.com/medforge/casgen/internal/engine"
	"github.com/medforge/casgen/internal/metrics"
	"github.com/medforge/casgen/internal/otel"
	"github.com/medforge/casgen/internal/retention"
	"github.com/medforge/casgen/internal/store"
)

func main() {
	addr := flag.String("addr", "", "HTTP server address (overrides LISTEN_ADDR)")
	workers := flag.Int("workers", 0, "Worker pool size (0 = logical cores, capped)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	cat, err := catalog.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal catalog error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var jobStore store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
			os.Exit(1)
		}
		defer pg.Close()
		jobStore = pg
		log.Printf("[Server] Using Postgres job store")
	} else {
		jobStore = store.NewMemoryStore()
		log.Printf("[Server] Using in-memory job store")
	}

	var templateStore *cache.JobCache
	if cfg.CacheEnabled && cfg.RedisURL != "" {
		cached, err := cache.New(jobStore, cfg.RedisURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to Redis: %v\n", err)
			os.Exit(1)
		}
		defer cached.Close()
		jobStore = cached
		templateStore = cached
		log.Printf("[Server] Redis cache enabled")
	}

	artifactStore, err := artifacts.NewFilesystemStore(cfg.OutputDirectory)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating artifact store: %v\n", err)
		os.Exit(1)
	}

	otelCfg := &otel.Config{
		Enabled:      cfg.OTelExporter != "none",
		ServiceName:  "casgen",
		ExporterType: otel.ExporterType(cfg.OTelExporter),
		OTLPEndpoint: cfg.OTelEndpoint,
		OTLPInsecure: true,
		SampleRate:   1.0,
	}
	tracer, err := otel.NewTracer(ctx, otelCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing tracing: %v\n", err)
		os.Exit(1)
	}
	otel.SetGlobalTracer(tracer)

	meter, err := otel.NewMeter(ctx, otelCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing metrics export: %v\n", err)
		os.Exit(1)
	}
	otel.SetGlobalMeter(meter)

	m := metrics.New()
	eng := engine.NewManager(jobStore, artifactStore, cat, m, cfg)
	if *workers > 0 {
		eng.SetWorkers(*workers)
	}

	ret := retention.NewManager(jobStore, artifactStore, cfg.RetentionPeriod)
	ret.Start()

	server := api.NewServer(eng, jobStore, artifactStore, m, cfg)
	if templateStore != nil {
		server.SetTemplateStore(templateStore)
	}
	handler := otel.Middleware(tracer)(server.Router())

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[Server] Listening on %s with %d workers", cfg.ListenAddr, eng.Workers())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Server] HTTP server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Printf("[Server] Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] HTTP shutdown error: %v", err)
	}
	ret.Stop()
	eng.Shutdown()
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] Tracer shutdown error: %v", err)
	}
	if err := meter.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] Meter shutdown error: %v", err)
	}
}
