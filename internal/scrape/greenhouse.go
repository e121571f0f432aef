package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonathan/auto-applier/internal/types"
)

const greenhouseBoardsAPI = "https://boards-api.greenhouse.io/v1/boards/%s/jobs"

// GreenhouseSource lists postings from the public Greenhouse boards API
// for a set of board tokens (one token per company).
type GreenhouseSource struct {
	boards  []string
	baseAPI string
	client  *http.Client
}

// NewGreenhouseSource creates a source over the given board tokens.
func NewGreenhouseSource(boards []string) *GreenhouseSource {
	return &GreenhouseSource{
		boards:  boards,
		baseAPI: greenhouseBoardsAPI,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *GreenhouseSource) Name() string { return "greenhouse" }

type greenhouseBoard struct {
	Jobs []struct {
		ID          int64  `json:"id"`
		Title       string `json:"title"`
		AbsoluteURL string `json:"absolute_url"`
		Location    struct {
			Name string `json:"name"`
		} `json:"location"`
		CompanyName string `json:"company_name"`
	} `json:"jobs"`
}

// Scrape fetches every configured board and returns up to limit jobs
// total. A board that fails to load aborts the source; partial results
// across boards would skew dedupe counts silently.
func (s *GreenhouseSource) Scrape(ctx context.Context, limit int) ([]*types.Job, error) {
	var out []*types.Job
	for _, token := range s.boards {
		if limit > 0 && len(out) >= limit {
			break
		}
		board, err := s.fetchBoard(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch greenhouse board %q: %w", token, err)
		}
		for _, posting := range board.Jobs {
			if limit > 0 && len(out) >= limit {
				break
			}
			company := posting.CompanyName
			if company == "" {
				company = token
			}
			job := types.NewJob(posting.Title, company, posting.AbsoluteURL, types.SourceGreenhouse)
			job.Location = posting.Location.Name
			job.Vendor = types.VendorGreenhouse
			out = append(out, job)
		}
	}
	return out, nil
}

func (s *GreenhouseSource) fetchBoard(ctx context.Context, token string) (*greenhouseBoard, error) {
	url := fmt.Sprintf(s.baseAPI, token)
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

	var board greenhouseBoard
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		return nil, fmt.Errorf("failed to decode board response: %w", err)
	}
	return &board, nil
}
