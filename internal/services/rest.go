package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/thumbx/internal/models"
	"github.com/desertthunder/thumbx/internal/shared"
)

const (
	restPath      = "/rest/v1"
	profilesTable = "profiles"
	jobsTable     = "video_jobs"
)

// RestClient reads project tables through PostgREST. It implements [ProfileSource] and [JobSource].
//
// Requests carry the anon key. Pass [SupabaseAuth.HTTPClient] as client to act as the signed-in user.
type RestClient struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewRestClient creates a PostgREST client for the project in conf.
func NewRestClient(conf shared.SupabaseConfig, client *http.Client) *RestClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &RestClient{
		baseURL:    strings.TrimRight(conf.URL, "/") + restPath,
		anonKey:    conf.AnonKey,
		httpClient: client,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs a GET request against table with the given PostgREST query.
func (c *RestClient) Get(ctx context.Context, table string, query url.Values) (*APIResponse, error) {
	fullURL := c.baseURL + "/" + table
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.anonKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, nil
}

// Profile fetches the profiles row whose id is userID.
func (c *RestClient) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}

	q := url.Values{}
	q.Set("id", "eq."+userID)
	q.Set("select", "id,credits,subscription_plan")
	q.Set("limit", "1")

	var rows []models.Profile
	if err := c.list(ctx, profilesTable, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrProfileNotFound, userID)
	}
	return &rows[0], nil
}

// LatestJob fetches the newest video_jobs row for userID.
func (c *RestClient) LatestJob(ctx context.Context, userID string) (*models.Job, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}

	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	q.Set("select", "id,user_id,status,created_at,result_url")
	q.Set("order", "created_at.desc")
	q.Set("limit", "1")

	var rows []models.Job
	if err := c.list(ctx, jobsTable, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: user %s", shared.ErrJobNotFound, userID)
	}
	return &rows[0], nil
}

func (c *RestClient) list(ctx context.Context, table string, q url.Values, out any) error {
	resp, err := c.Get(ctx, table, q)
	if err != nil {
		return err
	}

	if !resp.OK() {
		var body errorBody
		msg := strings.TrimSpace(string(resp.Body))
		if err := json.Unmarshal(resp.Body, &body); err == nil && body.text() != "" {
			msg = body.text()
		}
		return &APIError{StatusCode: resp.StatusCode, Message: shared.Truncate(msg, 200)}
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode %s rows: %w", table, err)
	}
	return nil
}
