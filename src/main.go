package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	"ResourceDirectory/src/cache"
	"ResourceDirectory/src/config"
	"ResourceDirectory/src/db"
	"ResourceDirectory/src/graceful"
	"ResourceDirectory/src/handlers"
	"ResourceDirectory/src/logger"
	"ResourceDirectory/src/metrics"
	"ResourceDirectory/src/persist"
	"ResourceDirectory/src/query"
	"ResourceDirectory/src/token"
	"ResourceDirectory/src/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	seedFile := flag.String("seed", "", "tab-separated seed file to import before serving")
	inMemory := flag.Bool("memory", false, "use an in-memory store instead of Firestore")
	envFile := flag.String("env", ".env", "optional env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.New(logger.Config{}).Fatal().Err(err).Msg("Invalid configuration")
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	ctx, cancel := graceful.Context(context.Background(), log)
	defer cancel()

	var store types.DataStore
	if *inMemory {
		store = db.NewMemoryStore()
		log.Warn().Msg("Using in-memory store; data is lost on exit")
	} else {
		if err := cfg.RequireFirestore(); err != nil {
			log.Fatal().Err(err).Msg("Invalid configuration")
		}
		provider := db.NewProvider(cfg.ProjectID, cfg.DatabaseID)
		defer provider.Close()
		client, err := provider.Instance(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Firestore")
		}
		if store, err = db.NewFirestoreStore(client, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to create Firestore store")
		}
	}

	index, err := db.NewElasticIndex(cfg.ElasticURL, cfg.ElasticIndex, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Elasticsearch")
	}
	defer index.Stop()
	if err = index.CreateIndexWithMapping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare search index")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	queries, err := query.NewEngine(store, index, cache.New(), log, query.WithMetrics(m))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create query engine")
	}
	persistOpts := []persist.Option{persist.WithMetrics(m)}
	if cfg.CompensateWrite {
		persistOpts = append(persistOpts, persist.WithCompensatingDelete())
	}
	writer, err := persist.NewEngine(store, log, persistOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create persistence engine")
	}

	if *seedFile != "" {
		if err := seed(ctx, log, *seedFile, writer, queries, index); err != nil {
			log.Fatal().Err(err).Str("file", *seedFile).Msg("Seed import failed")
		}
	}

	auth, err := token.NewAuthenticator(cfg.SigningKey, cfg.Users, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create authenticator")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/get_token", auth.GetToken)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	handlers.NewResourceHandler(queries, writer, index, log).Register(mux, auth.JwtMiddleware)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.ListenAddr).Msg("Server started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("HTTP server failed")
		cancel()
		os.Exit(1)
	}
	log.Info().Msg("Server stopped")
}

// seed submits every row of the file and then rebuilds the search index
// from the store.
func seed(ctx context.Context, log zerolog.Logger, path string, writer *persist.Engine, queries *query.Engine, index *db.ElasticIndex) error {
	rows, err := db.ReadResourcesCSV(path)
	if err != nil {
		return err
	}
	for _, row := range rows {
		row.Resource.SetDetails(row.Details)
		if _, err := writer.SubmitResource(ctx, row.Resource); err != nil {
			return err
		}
	}
	queries.ClearResourceCache()

	all, err := queries.GetAllResources(ctx, nil)
	if err != nil {
		return err
	}
	indexed, err := index.Reindex(ctx, all)
	if err != nil {
		return err
	}
	log.Info().Int("submitted", len(rows)).Int("indexed", indexed).Msg("Seed import finished")
	return nil
}
