// Command server runs the Agency OS tenant-facing HTTP API: campaign
// CRUD, lead views, suppression, customer import, the KPI dashboard, and
// the inbound reply webhooks (spec.md §6). The Dispatch Orchestrator and
// CIS scheduler run as a separate process (cmd/worker) so the API stays
// thin and horizontally scalable.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keiracom/agencyos/internal/api"
	"github.com/keiracom/agencyos/internal/cis"
	"github.com/keiracom/agencyos/internal/config"
	"github.com/keiracom/agencyos/internal/enrichment"
	"github.com/keiracom/agencyos/internal/llm"
	"github.com/keiracom/agencyos/internal/pool"
	"github.com/keiracom/agencyos/internal/reply"
	"github.com/keiracom/agencyos/internal/reporting"
	"github.com/keiracom/agencyos/internal/store"
	"github.com/keiracom/agencyos/internal/suppression"
	"github.com/keiracom/agencyos/internal/thread"
)

func main() {
	log.Println("Agency OS API server starting")

	configPath := os.Getenv("AGENCYOS_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := store.New(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxOpenConns, cfg.Store.MaxIdleConns, cfg.Store.ConnMaxLifetime())
	if err != nil {
		log.Fatalf("connect store: %v", err)
	}
	defer s.Close()
	log.Println("Connected to Postgres")

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Printf("Warning: invalid REDIS_URL, suppression cache and rate limiter disabled: %v", err)
		} else {
			redisClient = redis.NewClient(opts)
			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.Printf("Warning: redis ping failed, continuing without cache: %v", err)
				redisClient = nil
			} else {
				log.Println("Connected to Redis")
			}
		}
	}

	suppSvc := suppression.New(s, redisClient, cfg.Suppression.PersonalEmailDomains, cfg.Suppression.CoolingOffMonths)

	providers := enrichmentProviders(cfg.Enrichment)
	waterfall := enrichment.New(providers, cfg.Enrichment.CacheTTL(), cfg.Enrichment.CacheVersion, s)

	poolSvc := pool.New(s, suppSvc, waterfall)

	signalLookup := cis.NewSignalLookup(s)
	if err := signalLookup.Refresh(ctx, 500); err != nil {
		log.Printf("Warning: initial buyer-signal refresh failed: %v", err)
	}
	poolSvc.SetBuyerSignalLookup(signalLookup)

	var archiver cis.Archiver
	if realArchiver, err := cis.NewS3Archiver(ctx, cis.S3ArchiverConfig{Bucket: cfg.CIS.S3Bucket, Prefix: "cis/patterns/", Region: cfg.CIS.S3Region}); err != nil {
		log.Printf("Warning: CIS S3 archiver unavailable, pattern detection runs will skip publish: %v", err)
	} else {
		archiver = realArchiver
	}
	cisSvc := cis.New(s, archiver, cfg.CIS.Interval())

	var classifier thread.Classifier
	if realClassifier, err := newClassifier(ctx, cfg); err != nil {
		log.Printf("Warning: LLM classifier unavailable, thread classification disabled: %v", err)
	} else {
		classifier = realClassifier
	}
	threadSvc := thread.New(s, classifier, suppSvc, poolSvc, 0)

	var dedup reply.Deduper
	if realDedup, err := reply.NewDynamoDedup(ctx, "agencyos-reply-dedup", cfg.Channels.SES.Region, 24*time.Hour); err != nil {
		log.Printf("Warning: reply dedup store unavailable, duplicate webhook deliveries may double-process: %v", err)
	} else {
		dedup = realDedup
	}
	receiver := reply.NewReceiver(threadSvc, s, dedup, reply.SigningSecrets{
		Email:    cfg.Webhooks.EmailSigningSecret,
		SMS:      cfg.Webhooks.SMSSigningSecret,
		LinkedIn: cfg.Webhooks.LinkedInSigningSecret,
		Voice:    cfg.Webhooks.VoiceSigningSecret,
	})

	var reportingSvc *reporting.Service
	if cfg.Reporting.Enabled {
		client, err := reporting.NewClient(cfg.Reporting)
		if err != nil {
			log.Printf("Warning: Snowflake reporting client unavailable, dashboard disabled: %v", err)
		} else {
			reportingSvc = reporting.New(client)
		}
	}

	handlers := api.NewHandlers(s)
	handlers.SetPool(poolSvc)
	handlers.SetSuppression(suppSvc)
	handlers.SetThread(threadSvc)
	handlers.SetReply(receiver)
	handlers.SetCIS(cisSvc)
	handlers.SetSignalLookup(signalLookup)
	if reportingSvc != nil {
		handlers.SetReporting(reportingSvc)
	}

	router := api.SetupRoutes(handlers)

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		log.Printf("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-done
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

// enrichmentProviders builds the tier1/tier2 HTTP providers configured in
// cfg; tier 3's OAuth2 client-credentials provider is added only when
// credentials are present, since it gates on a paid premium contract.
func enrichmentProviders(cfg config.EnrichmentConfig) []enrichment.Provider {
	providers := []enrichment.Provider{
		enrichment.NewTier1Provider(cfg.Tier1),
		enrichment.NewTier2Provider(cfg.Tier2),
	}
	if cfg.Tier3.ClientID != "" && cfg.Tier3.ClientSecret != "" {
		providers = append(providers, enrichment.NewTier3Provider(cfg.Tier3))
		log.Println("Enrichment tier 3 (premium contact-reveal) provider enabled")
	}
	return providers
}

// newClassifier builds the Bedrock-backed reply classifier. It does not
// check for LLM credentials: it returns an error only when the AWS
// configuration cannot be loaded, and the caller then runs the thread
// service without a classifier (the teacher's same "feature disabled,
// dependents log and continue" convention).
func newClassifier(ctx context.Context, cfg *config.Config) (*llm.Classifier, error) {
	inv, err := llm.NewBedrockInvoker(ctx, cfg.LLM.Region)
	if err != nil {
		return nil, err
	}
	return llm.New(inv, cfg.LLM), nil
}
