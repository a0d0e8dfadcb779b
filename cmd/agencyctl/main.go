// Command agencyctl is the operator CLI for Agency OS: point-in-time
// introspection and manual triggers against a live deployment, the same
// role the teacher's cmd/verify-suppression and cmd/migrate tools play —
// small, single-purpose binaries run by hand against production rather
// than served over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/keiracom/agencyos/internal/cis"
	"github.com/keiracom/agencyos/internal/config"
	"github.com/keiracom/agencyos/internal/domain"
	"github.com/keiracom/agencyos/internal/enrichment"
	"github.com/keiracom/agencyos/internal/reporting"
	"github.com/keiracom/agencyos/internal/store"
	"github.com/keiracom/agencyos/internal/suppression"
	"github.com/keiracom/agencyos/internal/thread"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	configPath := os.Getenv("AGENCYOS_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s, err := store.New(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxOpenConns, cfg.Store.MaxIdleConns, cfg.Store.ConnMaxLifetime())
	if err != nil {
		fatalf("connect store: %v", err)
	}
	defer s.Close()

	switch os.Args[1] {
	case "status":
		runStatus(ctx, cfg, s, os.Args[2:])
	case "detect":
		runDetect(ctx, cfg, s, os.Args[2:])
	case "enrich":
		runEnrich(ctx, cfg, s, os.Args[2:])
	case "simulate-reply":
		runSimulateReply(ctx, cfg, s, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `agencyctl <command> [flags]

Commands:
  status          print a tenant's credit/assignment/KPI snapshot
  detect          run one CIS Learning Loop detection pass
  enrich          run the enrichment waterfall for a partial lead
  simulate-reply  feed a synthetic inbound reply through the thread state machine`)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "agencyctl: "+format+"\n", args...)
	os.Exit(1)
}

// runStatus prints the tenant record plus, when Snowflake reporting is
// configured, the KPI dashboard spec.md §6 exposes over HTTP.
func runStatus(ctx context.Context, cfg *config.Config, s *store.Store, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	tenantID := fs.String("tenant", "", "tenant ID (required)")
	fs.Parse(args)
	if *tenantID == "" {
		fatalf("status: -tenant is required")
	}

	tenant, err := s.GetTenant(ctx, *tenantID)
	if err != nil {
		fatalf("lookup tenant: %v", err)
	}

	fmt.Println("=====================================================")
	fmt.Printf(" Tenant:       %s (%s)\n", tenant.Name, tenant.ID)
	fmt.Printf(" Subscription: %s\n", tenant.SubscriptionStatus)
	fmt.Printf(" Credits:      %d remaining\n", tenant.CreditsRemaining)
	fmt.Printf(" Daily caps:   email=%d sms=%d linkedin=%d voice=%d mail=%d\n",
		tenant.DailyCaps.Email, tenant.DailyCaps.SMS, tenant.DailyCaps.LinkedIn, tenant.DailyCaps.Voice, tenant.DailyCaps.Mail)
	fmt.Println("=====================================================")

	if !cfg.Reporting.Enabled {
		fmt.Println("(Snowflake reporting not configured; dashboard unavailable)")
		return
	}
	client, err := reporting.NewClient(cfg.Reporting)
	if err != nil {
		fmt.Printf("(dashboard unavailable: %v)\n", err)
		return
	}
	defer client.Close()

	dash, err := reporting.New(client).GetDashboard(ctx, *tenantID)
	if err != nil {
		fmt.Printf("(dashboard query failed: %v)\n", err)
		return
	}
	fmt.Printf(" Leads assigned:   %d\n", dash.LeadsAssigned)
	fmt.Printf(" Leads converted:  %d\n", dash.LeadsConverted)
	fmt.Printf(" Conversion rate:  %.1f%%\n", dash.ConversionRate*100)
}

// runDetect triggers one pass of the CIS Learning Loop's four detectors
// outside its normal scheduled interval, useful after a bulk activity
// backfill or when validating a detector change.
func runDetect(ctx context.Context, cfg *config.Config, s *store.Store, args []string) {
	var archiver cis.Archiver
	if cfg.CIS.S3Bucket != "" {
		realArchiver, err := cis.NewS3Archiver(ctx, cis.S3ArchiverConfig{Bucket: cfg.CIS.S3Bucket, Prefix: "cis/patterns/", Region: cfg.CIS.S3Region})
		if err != nil {
			fmt.Printf("Warning: S3 archiver unavailable, pattern detail will not be archived: %v\n", err)
		} else {
			archiver = realArchiver
		}
	}

	cisSvc := cis.New(s, archiver, cfg.CIS.Interval())
	result, err := cisSvc.Run(ctx)
	if err != nil {
		fatalf("detection run: %v", err)
	}
	fmt.Printf("Detection run complete: %d buyer signals published, %d conversion patterns published\n",
		result.SignalsPublished, result.PatternsPublished)
}

// runEnrich walks a partial lead through the tiered enrichment waterfall
// for manual QA of a provider integration or tier-cost tuning.
func runEnrich(ctx context.Context, cfg *config.Config, s *store.Store, args []string) {
	fs := flag.NewFlagSet("enrich", flag.ExitOnError)
	tenantID := fs.String("tenant", "", "tenant ID (required)")
	email := fs.String("email", "", "lead email (required)")
	domainName := fs.String("domain", "", "company domain")
	maxTier := fs.Int("max-tier", int(enrichment.TierFull), "highest tier to attempt (0=cache,1=bulk,2=full,3=premium)")
	budget := fs.Float64("budget", 50.0, "remaining daily budget in AUD")
	fs.Parse(args)
	if *tenantID == "" || *email == "" {
		fatalf("enrich: -tenant and -email are required")
	}

	providers := []enrichment.Provider{
		enrichment.NewTier1Provider(cfg.Enrichment.Tier1),
		enrichment.NewTier2Provider(cfg.Enrichment.Tier2),
	}
	if cfg.Enrichment.Tier3.ClientID != "" {
		providers = append(providers, enrichment.NewTier3Provider(cfg.Enrichment.Tier3))
	}
	waterfall := enrichment.New(providers, cfg.Enrichment.CacheTTL(), cfg.Enrichment.CacheVersion, s)

	partial := domain.PoolLead{Email: *email, Domain: *domainName}
	result, err := waterfall.Enrich(ctx, *tenantID, partial, enrichment.Tier(*maxTier), *budget)
	if err != nil {
		fatalf("enrich: %v", err)
	}
	fmt.Printf("Enriched %s: name=%q title=%q company=%q tier_reached=%d cost=$%.2f\n",
		result.Email, result.FirstName+" "+result.LastName, result.Title, result.Company, result.Enrichment.Tier, result.Enrichment.CreditCost)
}

// runSimulateReply feeds a synthetic inbound reply straight into the
// thread state machine, bypassing webhook signature verification, for
// exercising classification/transition logic against a local database
// without a real provider callback.
func runSimulateReply(ctx context.Context, cfg *config.Config, s *store.Store, args []string) {
	fs := flag.NewFlagSet("simulate-reply", flag.ExitOnError)
	tenantID := fs.String("tenant", "", "tenant ID (required)")
	assignmentID := fs.String("assignment", "", "assignment ID (required)")
	email := fs.String("email", "", "lead email (required)")
	body := fs.String("body", "", "reply body text (required)")
	channelName := fs.String("channel", "email", "channel the reply arrived on")
	fs.Parse(args)
	if *tenantID == "" || *assignmentID == "" || *email == "" || *body == "" {
		fatalf("simulate-reply: -tenant, -assignment, -email, and -body are required")
	}

	suppSvc := suppression.New(s, nil, cfg.Suppression.PersonalEmailDomains, cfg.Suppression.CoolingOffMonths)
	var classifier thread.Classifier // no LLM wiring needed to exercise the rule-based fallback path
	threadSvc := thread.New(s, classifier, suppSvc, nil, 0)

	th, err := threadSvc.HandleInbound(ctx, thread.InboundReply{
		TenantID:     *tenantID,
		AssignmentID: *assignmentID,
		Channel:      domain.Channel(*channelName),
		Email:        *email,
		Body:         *body,
		DedupeKey:    fmt.Sprintf("simulate-%d", time.Now().UnixNano()),
		ReceivedAt:   time.Now(),
	})
	if err != nil {
		fatalf("simulate reply: %v", err)
	}
	fmt.Printf("Thread %s: status=%s outcome=%s\n", th.ID, th.Status, th.Outcome)
}
