package studentapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"seatwatch/internal/metrics"
)

const defaultBaseURL = "https://api.princeton.edu:443/student-app/1.0.3"

// AppClient implements Client against the registrar's student-app API.
type AppClient struct {
	tokens      TokenProvider
	baseURL     string
	client      *http.Client
	rateLimiter *RateLimiter
}

// AppOption configures the AppClient.
type AppOption func(*AppClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) AppOption {
	return func(c *AppClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithAppHTTPClient overrides the default HTTP client.
func WithAppHTTPClient(hc *http.Client) AppOption {
	return func(c *AppClient) {
		c.client = hc
	}
}

// WithRateLimiter injects a rate limiter that controls per-second and daily
// API call budgets. When set, every request goes through Wait() first.
func WithRateLimiter(r *RateLimiter) AppOption {
	return func(c *AppClient) {
		c.rateLimiter = r
	}
}

// NewAppClient creates a registrar API client.
func NewAppClient(tokens TokenProvider, opts ...AppOption) *AppClient {
	c := &AppClient{
		tokens:  tokens,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type termsResponse struct {
	Terms []Term `json:"term"`
}

type catalogResponse struct {
	Terms []Catalog `json:"term"`
}

type seatsResponse struct {
	Courses []struct {
		CourseID Ident `json:"course_id"`
		Classes  []struct {
			ClassNumber Ident     `json:"class_number"`
			Status      string    `json:"pu_calc_status"`
			Capacity    seatCount `json:"capacity"`
			Enrollment  seatCount `json:"enrollment"`
		} `json:"classes"`
	} `json:"course"`
}

// Terms implements Client.Terms.
func (c *AppClient) Terms(ctx context.Context) ([]Term, error) {
	var resp termsResponse
	if err := c.get(ctx, "/courses/terms", url.Values{}, &resp); err != nil {
		return nil, err
	}
	return resp.Terms, nil
}

// Courses implements Client.Courses. The registrar expects a leading space
// on the catnum parameter; it is added here so callers don't have to know.
func (c *AppClient) Courses(ctx context.Context, q CourseQuery) (*Catalog, error) {
	params := url.Values{}
	params.Set("term", q.Term)
	if q.Subject != "" {
		params.Set("subject", q.Subject)
	}
	if q.CatNum != "" {
		catnum := q.CatNum
		if !strings.HasPrefix(catnum, " ") {
			catnum = " " + catnum
		}
		params.Set("catnum", catnum)
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}

	var resp catalogResponse
	if err := c.get(ctx, "/courses/courses", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Terms) == 0 {
		return &Catalog{}, nil
	}
	return &resp.Terms[0], nil
}

// Seats implements Client.Seats. All course IDs go into a single query; the
// response is flattened to one snapshot per class.
func (c *AppClient) Seats(
	ctx context.Context,
	term string,
	courseIDs []string,
) ([]SeatSnapshot, error) {
	params := url.Values{}
	params.Set("term", term)
	params.Set("course_ids", strings.Join(courseIDs, ","))

	var resp seatsResponse
	if err := c.get(ctx, "/courses/seats", params, &resp); err != nil {
		return nil, err
	}

	var snaps []SeatSnapshot
	for _, course := range resp.Courses {
		for _, cls := range course.Classes {
			snaps = append(snaps, SeatSnapshot{
				CourseID:   string(course.CourseID),
				ClassID:    string(cls.ClassNumber),
				Status:     cls.Status,
				Capacity:   int(cls.Capacity),
				Enrollment: int(cls.Enrollment),
			})
		}
	}
	return snaps, nil
}

func (c *AppClient) get(
	ctx context.Context,
	path string,
	params url.Values,
	out any,
) error {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			if errors.Is(err, ErrDailyLimitReached) {
				metrics.RegistrarDailyLimitHits.Inc()
			}
			return fmt.Errorf("rate limit: %w", err)
		}
		metrics.RegistrarDailyUsage.Set(float64(c.rateLimiter.DailyCount()))
	}

	params.Set("fmt", "json")
	u := c.baseURL + path + "?" + params.Encode()

	body, status, err := c.do(ctx, u)
	if err != nil {
		return err
	}

	// Stale token: drop it and retry once with a fresh one.
	if status == http.StatusUnauthorized {
		c.tokens.Invalidate()
		body, status, err = c.do(ctx, u)
		if err != nil {
			return err
		}
	}

	if status != http.StatusOK {
		return fmt.Errorf(
			"registrar API error (status %d): %s",
			status,
			strings.TrimSpace(string(body)),
		)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing %s response: %w", path, err)
	}
	return nil
}

func (c *AppClient) do(ctx context.Context, u string) ([]byte, int, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("getting auth token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	metrics.RegistrarAPICallsTotal.Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading response body: %w", err)
	}
	return body, resp.StatusCode, nil
}
