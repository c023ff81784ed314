package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultNtfyURL is the public ntfy.sh relay.
const DefaultNtfyURL = "https://ntfy.sh"

// NtfyNotifier implements Notifier against an ntfy topic. The relay accepts
// a raw text body; title and priority travel as headers.
type NtfyNotifier struct {
	baseURL string
	topic   string
	client  *http.Client
}

// NtfyOption configures an NtfyNotifier.
type NtfyOption func(*NtfyNotifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) NtfyOption {
	return func(n *NtfyNotifier) {
		n.client = c
	}
}

// NewNtfyNotifier creates a notifier publishing to baseURL/topic.
func NewNtfyNotifier(baseURL, topic string, opts ...NtfyOption) *NtfyNotifier {
	n := &NtfyNotifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		topic:   topic,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Publish sends one message to the topic.
func (n *NtfyNotifier) Publish(ctx context.Context, msg Message) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		n.baseURL+"/"+n.topic,
		strings.NewReader(msg.Body),
	)
	if err != nil {
		return fmt.Errorf("creating ntfy request: %w", err)
	}
	if msg.Title != "" {
		req.Header.Set("Title", msg.Title)
	}
	priority := msg.Priority
	if priority == "" {
		priority = PriorityDefault
	}
	req.Header.Set("Priority", priority)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending ntfy message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("ntfy returned %d (body unreadable)", resp.StatusCode)
		}
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}
