package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/keiracom/agencyos/internal/config"
	"github.com/keiracom/agencyos/internal/domain"
	"github.com/keiracom/agencyos/internal/pkg/httpretry"
)

// httpProvider is the shared shape of the tier-1 and tier-2 providers:
// a single POST to a normalized-response API, wrapped in the platform's
// retrying HTTP client (spec.md §4.3 tiers 1-2: "bulk source + free email
// discovery" / "full waterfall").
type httpProvider struct {
	tier   Tier
	client httpretry.HTTPDoer
	cfg    config.ProviderConfig
}

// NewTier1Provider builds the cold/cool-lead bulk-discovery provider.
func NewTier1Provider(cfg config.ProviderConfig) Provider {
	return &httpProvider{
		tier:   TierBulk,
		client: httpretry.NewRetryClient(&http.Client{Timeout: cfg.Timeout()}, 2),
		cfg:    cfg,
	}
}

// NewTier2Provider builds the warm/hot-lead full-waterfall provider
// (LinkedIn scrape + multiple email finders, semantically).
func NewTier2Provider(cfg config.ProviderConfig) Provider {
	return &httpProvider{
		tier:   TierFull,
		client: httpretry.NewRetryClient(&http.Client{Timeout: cfg.Timeout()}, 2),
		cfg:    cfg,
	}
}

func (p *httpProvider) Tier() Tier { return p.tier }

type providerRequest struct {
	Email       string `json:"email,omitempty"`
	Domain      string `json:"domain,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
}

type providerResponse struct {
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	Title         string  `json:"title"`
	Company       string  `json:"company"`
	LinkedInURL   string  `json:"linkedin_url"`
	Phone         string  `json:"phone"`
	Industry      string  `json:"industry"`
	EmployeeCount int     `json:"employee_count"`
	Country       string  `json:"country"`
	CostAUD       float64 `json:"cost_aud"`
	Partial       bool    `json:"partial"`
}

func (p *httpProvider) Enrich(ctx context.Context, partial domain.PoolLead) (domain.PoolLead, float64, bool, error) {
	body, err := json.Marshal(providerRequest{
		Email:       partial.Email,
		Domain:      partial.Domain,
		LinkedInURL: partial.LinkedInURL,
	})
	if err != nil {
		return partial, 0, true, fmt.Errorf("marshal enrichment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/enrich", bytes.NewReader(body))
	if err != nil {
		return partial, 0, true, fmt.Errorf("build enrichment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return partial, 0, true, fmt.Errorf("call enrichment provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return partial, 0, true, fmt.Errorf("enrichment provider returned status %d", resp.StatusCode)
	}

	var pr providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return partial, 0, true, fmt.Errorf("decode enrichment response: %w", err)
	}

	out := partial
	out.FirstName = pr.FirstName
	out.LastName = pr.LastName
	out.Title = pr.Title
	out.Company = pr.Company
	out.LinkedInURL = pr.LinkedInURL
	out.Phone = pr.Phone
	out.Org.Industry = pr.Industry
	out.Org.EmployeeCount = pr.EmployeeCount
	out.Org.Country = pr.Country

	return out, pr.CostAUD, pr.Partial, nil
}

// premiumProvider is the tier-3 premium mobile/contact-reveal provider
// (spec.md §4.3 tier 3, "hot leads only"), gated behind OAuth2
// client-credentials rather than a static API key.
type premiumProvider struct {
	cfg      config.Tier3Config
	tokenSrc *clientcredentials.Config
}

// NewTier3Provider builds the premium contact-reveal provider.
func NewTier3Provider(cfg config.Tier3Config) Provider {
	return &premiumProvider{
		cfg: cfg,
		tokenSrc: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		},
	}
}

func (p *premiumProvider) Tier() Tier { return TierPremium }

func (p *premiumProvider) Enrich(ctx context.Context, partial domain.PoolLead) (domain.PoolLead, float64, bool, error) {
	client := p.tokenSrc.Client(ctx)

	body, err := json.Marshal(providerRequest{
		Email:       partial.Email,
		LinkedInURL: partial.LinkedInURL,
	})
	if err != nil {
		return partial, 0, true, fmt.Errorf("marshal tier-3 request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/reveal", bytes.NewReader(body))
	if err != nil {
		return partial, 0, true, fmt.Errorf("build tier-3 request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return partial, 0, true, fmt.Errorf("call tier-3 provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return partial, 0, true, fmt.Errorf("tier-3 provider returned status %d", resp.StatusCode)
	}

	var pr providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return partial, 0, true, fmt.Errorf("decode tier-3 response: %w", err)
	}

	out := partial
	out.Phone = pr.Phone
	if pr.LinkedInURL != "" {
		out.LinkedInURL = pr.LinkedInURL
	}
	return out, pr.CostAUD, pr.Partial, nil
}
