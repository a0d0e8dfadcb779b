// Command worker runs the background processing side of Agency OS: the
// Dispatch Orchestrator's per-channel send loops and safety-net sweep,
// the CIS Learning Loop's scheduled detector pass, and the stale-thread
// sweep, mirroring the teacher's cmd/worker separation of the journey
// executor and its maintenance goroutines from the HTTP API process.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keiracom/agencyos/internal/channel"
	"github.com/keiracom/agencyos/internal/cis"
	"github.com/keiracom/agencyos/internal/config"
	"github.com/keiracom/agencyos/internal/dispatch"
	"github.com/keiracom/agencyos/internal/domain"
	"github.com/keiracom/agencyos/internal/store"
	"github.com/keiracom/agencyos/internal/suppression"
	"github.com/keiracom/agencyos/internal/thread"
)

func main() {
	log.Println("Agency OS worker starting")

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

	if cfg.Redis.URL == "" {
		log.Fatalf("REDIS_URL is required: the rate limiter and touch claim lease both depend on Redis")
	}
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("parse REDIS_URL: %v", err)
	}
	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}
	log.Println("Connected to Redis")

	suppSvc := suppression.New(s, redisClient, cfg.Suppression.PersonalEmailDomains, cfg.Suppression.CoolingOffMonths)

	rateLimiter := dispatch.NewRateLimiter(redisClient)
	rateLimits := map[domain.Channel]int{
		domain.ChannelEmail:    cfg.RateLimits.EmailPerMailbox,
		domain.ChannelSMS:      cfg.RateLimits.SMSPerNumber,
		domain.ChannelLinkedIn: cfg.RateLimits.LinkedInPerSeat,
		domain.ChannelVoice:    cfg.RateLimits.VoicePerNumber,
		domain.ChannelMail:     cfg.RateLimits.MailPerAccount,
	}
	validator := dispatch.NewValidator(s, s, s, suppSvc, rateLimiter, rateLimits)

	templates, err := s.ListTouchTemplates(ctx)
	if err != nil {
		log.Fatalf("load touch templates: %v", err)
	}
	if len(templates) == 0 {
		log.Println("Warning: touch_templates table is empty, all sends will fail content rendering")
	}
	renderer := dispatch.NewContentRenderer(templates)

	adapters := channelAdapters(ctx, cfg)

	orchestrator := dispatch.NewOrchestrator(s, validator, renderer, adapters, redisClient, s.DB(), workerID(), dispatch.Config{
		WorkersPerChannel: cfg.Dispatch.WorkersPerChannel,
		PollInterval:      cfg.Dispatch.PollInterval(),
		Lease:             cfg.Dispatch.Lease(),
		MaxAttempts:       cfg.Dispatch.MaxAttempts,
		BackoffBaseSec:    cfg.Dispatch.BackoffBaseSec,
		BackoffMaxSec:     cfg.Dispatch.BackoffMaxSec,
		SafetyNetInterval: safetyNetInterval(cfg.Dispatch.SafetyNetHours),
		SendWindowStartHour: cfg.Dispatch.SendWindowStartHour,
	})
	orchestrator.Start(ctx)
	log.Println("Dispatch Orchestrator started")

	var classifier thread.Classifier // LLM classification is optional; cmd/server owns reply ingestion, this loop only sweeps staleness.
	threadSvc := thread.New(s, classifier, suppSvc, nil, 0)
	go staleThreadLoop(ctx, threadSvc)

	var archiver cis.Archiver
	cisSvc := cis.New(s, archiver, cfg.CIS.Interval())
	go cisLoop(ctx, cisSvc, cfg.CIS.Interval())

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-done
	log.Println("Shutting down...")

	orchestrator.Stop()
	cancel()
	log.Println("Worker stopped")
}

// channelAdapters builds the five channel send adapters from configured
// provider credentials. Email requires a working SES client; the other
// four are generic HTTP adapters that fail individual sends rather than
// startup when a provider is unreachable.
func channelAdapters(ctx context.Context, cfg *config.Config) map[domain.Channel]dispatch.ChannelAdapter {
	adapters := map[domain.Channel]dispatch.ChannelAdapter{
		domain.ChannelSMS:      channel.NewSMSAdapter(cfg.Channels.SMS),
		domain.ChannelLinkedIn: channel.NewLinkedInAdapter(cfg.Channels.LinkedIn),
		domain.ChannelVoice:    channel.NewVoiceAdapter(cfg.Channels.Voice),
		domain.ChannelMail:     channel.NewMailAdapter(cfg.Channels.Mail),
	}
	email, err := channel.NewEmailAdapter(ctx, cfg.Channels.SES, cfg.Channels.SES.FromName, cfg.Channels.SES.FromAddress)
	if err != nil {
		log.Printf("Warning: SES email adapter unavailable, email touches will fail JIT send: %v", err)
	} else {
		adapters[domain.ChannelEmail] = email
	}
	return adapters
}

// workerID distinguishes concurrent worker processes in claim/lease
// bookkeeping; the hostname is stable enough for a single-process-per-pod
// deployment and avoids pulling in a UUID generator just for this.
func workerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "worker-unknown"
	}
	return host
}

func safetyNetInterval(hours int) time.Duration {
	if hours == 0 {
		return time.Hour
	}
	return time.Duration(hours) * time.Hour
}

// staleThreadLoop periodically marks threads with no inbound reply past
// the attribution window as stale (spec.md §5 thread state machine).
func staleThreadLoop(ctx context.Context, threadSvc *thread.Service) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := threadSvc.SweepStale(ctx, time.Now())
			if err != nil {
				log.Printf("stale thread sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("marked %d threads stale", n)
			}
		}
	}
}

// cisLoop runs the CIS Learning Loop's four detectors on the configured
// interval (default weekly per spec.md §7).
func cisLoop(ctx context.Context, cisSvc *cis.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := cisSvc.Run(ctx)
			if err != nil {
				log.Printf("CIS run failed: %v", err)
				continue
			}
			log.Printf("CIS run complete: %+v", result)
		}
	}
}
