package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonathan/auto-applier/internal/types"
)

const leverPostingsAPI = "https://api.lever.co/v0/postings/%s?mode=json"

// LeverSource lists postings from the public Lever postings API for a
// set of company slugs.
type LeverSource struct {
	companies []string
	baseAPI   string
	client    *http.Client
}

// NewLeverSource creates a source over the given company slugs.
func NewLeverSource(companies []string) *LeverSource {
	return &LeverSource{
		companies: companies,
		baseAPI:   leverPostingsAPI,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *LeverSource) Name() string { return "lever" }

type leverPosting struct {
	Text       string `json:"text"`
	HostedURL  string `json:"hostedUrl"`
	ApplyURL   string `json:"applyUrl"`
	Categories struct {
		Location string `json:"location"`
		Team     string `json:"team"`
	} `json:"categories"`
}

// Scrape fetches every configured company and returns up to limit jobs total.
func (s *LeverSource) Scrape(ctx context.Context, limit int) ([]*types.Job, error) {
	var out []*types.Job
	for _, company := range s.companies {
		if limit > 0 && len(out) >= limit {
			break
		}
		postings, err := s.fetchPostings(ctx, company)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch lever postings for %q: %w", company, err)
		}
		for _, posting := range postings {
			if limit > 0 && len(out) >= limit {
				break
			}
			job := types.NewJob(posting.Text, company, posting.HostedURL, types.SourceLever)
			job.ApplyURL = posting.ApplyURL
			job.Location = posting.Categories.Location
			job.Vendor = types.VendorLever
			if posting.Categories.Team != "" {
				job.Tags = []string{posting.Categories.Team}
			}
			out = append(out, job)
		}
	}
	return out, nil
}

func (s *LeverSource) fetchPostings(ctx context.Context, company string) ([]leverPosting, error) {
	url := fmt.Sprintf(s.baseAPI, company)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var postings []leverPosting
	if err := json.NewDecoder(resp.Body).Decode(&postings); err != nil {
		return nil, fmt.Errorf("failed to decode postings response: %w", err)
	}
	return postings, nil
}
