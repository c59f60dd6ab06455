package api

import (
	"context"
	"time"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/config"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/database"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/ingestion"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/jobs"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/llm"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/platform"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/platform/freshdesk"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/ratelimit"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/retrieval"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/slack"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/summarizer"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/tenantctx"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/tenantstore"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/vectorstore"
)

// replyContextTTL bounds how long a /init context id stays reachable by a
// follow-up /reply call.
const replyContextTTL = 30 * time.Minute

// settingDomain and settingAPIKey are the C9 tenant-setting keys the
// platform adapter's connection details are persisted under. A job's
// ingestion run happens on a background worker, long after the HTTP
// request that created it has returned, so the Domain/APIKey the caller
// supplied as headers must outlive the request; C9's encrypted
// tenant-settings store (the same one backing runtime behavior overrides)
// is the natural home for it, rather than inventing a second credential
// store.
const (
	settingDomain = "platform_domain"
	settingAPIKey = "platform_api_key"
)

// Deps collects every process-wide collaborator the HTTP boundary wires
// into its handlers. One Deps is built at startup and shared by every
// request; per-tenant collaborators (tenant store, platform adapter) are
// resolved lazily off the shared registries it holds.
//
// Grounded on server.go's Server struct (pkg/api, pre-rewrite): a flat
// bag of already-constructed collaborators passed into NewServer, with
// that version's Set*-style late wiring collapsed into constructor
// arguments since none of these collaborators are optional for this
// service.
type Deps struct {
	Config       *config.Config
	DB           *database.Client
	TenantStores *tenantstore.Manager
	Vectors      vectorstore.Store
	Router       *llm.Router
	Summarizer   *summarizer.Summarizer
	Settings     *tenantctx.Provider
	Jobs         *jobs.Manager
	Limiter      *ratelimit.Limiter
	Notifier     *slack.Service

	replyContexts *replyContextStore
}

// NewDeps wires Deps from already-initialized collaborators, building the
// Job Manager (C7) internally so its EngineFactory can close over the
// rest of Deps. notifier may be nil, matching pkg/slack.Service's own
// nil-safety when Slack isn't configured.
func NewDeps(
	cfg *config.Config,
	db *database.Client,
	tenantStores *tenantstore.Manager,
	vectors vectorstore.Store,
	router *llm.Router,
	recorder jobs.RunRecorder,
	notifier *slack.Service,
) *Deps {
	d := &Deps{
		Config:        cfg,
		DB:            db,
		TenantStores:  tenantStores,
		Vectors:       vectors,
		Router:        router,
		Summarizer:    summarizer.New(router),
		Settings:      tenantctx.NewProvider(db, cfg.Encryption),
		Limiter:       ratelimit.NewDefault(),
		Notifier:      notifier,
		replyContexts: newReplyContextStore(),
	}
	d.Jobs = jobs.NewManager(cfg.Jobs, d.engineFactory, recorder)
	d.Jobs.SetNotifier(jobNotifierAdapter{notifier})
	return d
}

// jobNotifierAdapter satisfies jobs.JobNotifier by translating its
// notification-agnostic JobCompletedInput into pkg/slack's own input type,
// so pkg/jobs never needs to import pkg/slack directly.
type jobNotifierAdapter struct {
	svc *slack.Service
}

func (a jobNotifierAdapter) NotifyJobCompleted(ctx context.Context, input jobs.JobCompletedInput) {
	a.svc.NotifyJobCompleted(ctx, slack.JobCompletedInput{
		JobID:            input.JobID,
		TenantID:         input.TenantID,
		Platform:         input.Platform,
		Status:           input.Status,
		TicketsCollected: input.TicketsCollected,
		ErrorMessage:     input.ErrorMessage,
	})
}

// adapterFor builds the Platform Adapter for one request's tenant
// context, using the Domain/APIKey it carries directly. Freshdesk is the
// only implemented platform, matching TenantDefaults.Platform's
// "freshdesk" default; the tenantContext middleware rejects any other
// X-Platform value before a handler ever sees it.
func (d *Deps) adapterFor(tctx *tenantctx.Context) platform.Capability {
	return freshdesk.New(tctx.TenantID, freshdesk.DefaultConfig(tctx.Domain, tctx.APIKey))
}

// persistCredentials saves tctx's Domain/APIKey as encrypted tenant
// settings, so a later background job for this tenant/platform can
// resolve the same Platform Adapter connection without a live request's
// headers.
func (d *Deps) persistCredentials(ctx context.Context, tctx *tenantctx.Context) error {
	if err := d.Settings.Set(ctx, tctx, settingDomain, tctx.Domain, false); err != nil {
		return err
	}
	return d.Settings.Set(ctx, tctx, settingAPIKey, tctx.APIKey, true)
}

// orchestratorFor builds the Retrieval Orchestrator (C8) for one request,
// resolving the tenant's store and settings provider on demand.
func (d *Deps) orchestratorFor(ctx context.Context, tctx *tenantctx.Context) (*retrieval.Orchestrator, error) {
	store, err := d.TenantStores.Get(ctx, tctx.TenantID)
	if err != nil {
		return nil, err
	}
	return retrieval.New(d.adapterFor(tctx), store, d.Vectors, d.Router, d.Summarizer, d.Settings, d.Config.TenantDefaults), nil
}

// engineFactory satisfies jobs.EngineFactory: it resolves a fresh
// Ingestion Engine (C6) for the given tenant/platform pair by reading the
// credentials persistCredentials saved at job-creation time, since the
// Job Manager's workers run this long after the original request headers
// are gone.
func (d *Deps) engineFactory(ctx context.Context, tenantID, platformName string) (jobs.EngineRunner, error) {
	store, err := d.TenantStores.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	lookup := &tenantctx.Context{TenantID: tenantID, Platform: platformName}
	settings, err := d.Settings.Get(ctx, lookup)
	if err != nil {
		return nil, err
	}
	adapter := freshdesk.New(tenantID, freshdesk.DefaultConfig(
		settings.String(settingDomain, ""),
		settings.String(settingAPIKey, ""),
	))

	return ingestion.New(adapter, store, d.Vectors, d.Summarizer, d.Router), nil
}
