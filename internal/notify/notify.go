// Package notify sends push notifications about application outcomes
// via ntfy.sh topics.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Notifier receives application outcome events. Implementations must
// not fail the run: notification errors are logged by callers, never
// propagated into job status.
type Notifier interface {
	Completed(ctx context.Context, jobTitle, company, url string) error
	Failed(ctx context.Context, jobTitle, company, errMsg string) error
	NeedsReview(ctx context.Context, jobTitle, company, reason, url string) error
	Summary(ctx context.Context, applied, pending, failed, needsReview int) error
}

// Nop discards all notifications. Used when no topic is configured.
type Nop struct{}

func (Nop) Completed(context.Context, string, string, string) error      { return nil }
func (Nop) Failed(context.Context, string, string, string) error        { return nil }
func (Nop) NeedsReview(context.Context, string, string, string, string) error { return nil }
func (Nop) Summary(context.Context, int, int, int, int) error           { return nil }

// ntfy priorities, 1 (min) to 5 (max).
const (
	priorityNormal = "3"
	priorityHigh   = "4"
)

// Ntfy publishes to a ntfy.sh topic. Free, no signup: subscribers just
// open https://ntfy.sh/<topic> or the mobile app.
type Ntfy struct {
	baseURL string
	topic   string
	client  *http.Client
}

// NewNtfy creates a notifier for the topic.
func NewNtfy(topic string) (*Ntfy, error) {
	if topic == "" {
		return nil, fmt.Errorf("ntfy topic is required")
	}
	return &Ntfy{
		baseURL: "https://ntfy.sh",
		topic:   topic,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// SubscribeURL returns where to subscribe for this topic.
func (n *Ntfy) SubscribeURL() string {
	return n.baseURL + "/" + n.topic
}

func (n *Ntfy) publish(ctx context.Context, title, message, priority, clickURL string, tags ...string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		n.baseURL+"/"+n.topic, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}

	req.Header.Set("Title", title)
	req.Header.Set("Priority", priority)
	if len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
	}
	if clickURL != "" {
		req.Header.Set("Click", clickURL)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}
	return nil
}

// Completed announces a submitted application.
func (n *Ntfy) Completed(ctx context.Context, jobTitle, company, url string) error {
	return n.publish(ctx,
		"Application submitted",
		fmt.Sprintf("%s at %s", jobTitle, company),
		priorityNormal, url, "white_check_mark")
}

// Failed announces a failed application attempt.
func (n *Ntfy) Failed(ctx context.Context, jobTitle, company, errMsg string) error {
	return n.publish(ctx,
		"Application failed",
		fmt.Sprintf("%s at %s: %s", jobTitle, company, errMsg),
		priorityHigh, "", "x")
}

// NeedsReview asks a human to confirm a paused application.
func (n *Ntfy) NeedsReview(ctx context.Context, jobTitle, company, reason, url string) error {
	return n.publish(ctx,
		"Application needs review",
		fmt.Sprintf("%s at %s: %s", jobTitle, company, reason),
		priorityHigh, url, "eyes")
}

// Summary reports end-of-session statistics.
func (n *Ntfy) Summary(ctx context.Context, applied, pending, failed, needsReview int) error {
	return n.publish(ctx,
		"Session summary",
		fmt.Sprintf("applied %d, pending %d, failed %d, needs review %d",
			applied, pending, failed, needsReview),
		priorityNormal, "", "bar_chart")
}
