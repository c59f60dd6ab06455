// tarsy-ingest orchestrator server - ingests support-platform data into a
// per-tenant store, builds LLM context for SRE/support replies, and serves
// the HTTP API spec.md §6.1 describes.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/api"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/config"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/database"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/llm"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/retention"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/slack"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/tenantstore"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/vectorstore"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// tenantRunRecorder satisfies jobs.RunRecorder by resolving the
// completing job's own tenant store from its TenantID, since the Job
// Manager is a process singleton but tenantstore.Manager opens one Store
// per tenant.
type tenantRunRecorder struct {
	stores *tenantstore.Manager
}

func (r tenantRunRecorder) RecordIngestRun(ctx context.Context, rec tenantstore.IngestRunRecord) error {
	store, err := r.stores.Get(ctx, rec.TenantID)
	if err != nil {
		return err
	}
	return store.RecordIngestRun(ctx, rec)
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")

	log.Printf("Starting tarsy-ingest")
	log.Printf("HTTP Port: %s", httpPort)
	log.Printf("Config Directory: %s", *configDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}
	log.Printf("Loaded configuration: %d LLM provider(s)", cfg.Stats().LLMProviders)

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("Error closing database client: %v", err)
		}
	}()
	log.Println("Connected to database")

	tenantBackendCfg, err := tenantstore.LoadBackendConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load tenant store backend config: %v", err)
	}
	tenantStores := tenantstore.NewManager(tenantBackendCfg)
	log.Printf("Tenant Store backend: %s", tenantBackendCfg.Backend)

	vectorCfg, err := vectorstore.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load vector store config: %v", err)
	}
	vectors, err := vectorstore.NewFromConfig(ctx, vectorCfg)
	if err != nil {
		log.Fatalf("Failed to initialize vector store: %v", err)
	}
	log.Printf("Vector Store backend: %s", vectorCfg.Backend)

	providers, providerErrs := llm.NewProvidersFromRegistry(cfg.LLMProviderRegistry)
	for _, perr := range providerErrs {
		slog.Warn("llm provider skipped", "error", perr)
	}
	if len(providers) == 0 {
		log.Fatalf("No LLM providers could be initialized; check credentials in %s", *configDir)
	}
	router := llm.NewRouter(cfg.LLMProviderRegistry, providers)
	log.Printf("LLM Router: %d provider(s) ready", len(providers))

	var notifier *slack.Service
	if cfg.Slack != nil && cfg.Slack.Enabled {
		notifier = slack.NewService(slack.ServiceConfig{
			Token:   os.Getenv(cfg.Slack.TokenEnv),
			Channel: cfg.Slack.Channel,
		})
		if notifier == nil {
			log.Printf("Slack notifications enabled but %s/channel not set; notifications disabled", cfg.Slack.TokenEnv)
		} else {
			log.Println("Slack notifications enabled")
		}
	}

	recorder := tenantRunRecorder{stores: tenantStores}
	deps := api.NewDeps(cfg, dbClient, tenantStores, vectors, router, recorder, notifier)
	deps.Jobs.Start(ctx)
	defer deps.Jobs.Stop()
	log.Println("Job Manager started")

	reaper := retention.NewService(cfg.Retention, tenantStores)
	reaper.Start(ctx)
	defer reaper.Stop()
	log.Println("Retention reaper started")

	server := api.NewServer(deps)

	go func() {
		<-ctx.Done()
		log.Println("Shutdown signal received, draining in-flight requests...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error during server shutdown: %v", err)
		}
	}()

	log.Printf("HTTP server listening on :%s", httpPort)
	if err := server.Start(":" + httpPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}
