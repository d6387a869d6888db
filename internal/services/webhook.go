package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/thumbx/internal/models"
	"github.com/desertthunder/thumbx/internal/shared"
)

// Attachment is an image sent with a webhook request.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// WebhookRequest describes a paid action.
type WebhookRequest struct {
	Kind   models.JobKind
	UserID string
	Email  string
	Prompt string
	Title  string
	Images []Attachment
	Fields map[string]string
}

// ResultKind tags a [WebhookResult].
type ResultKind int

const (
	ResultImages   ResultKind = iota // one or more image URLs
	ResultAnalysis                   // text feedback
	ResultAccepted                   // accepted for background processing
)

func (k ResultKind) String() string {
	switch k {
	case ResultImages:
		return "images"
	case ResultAnalysis:
		return "analysis"
	case ResultAccepted:
		return "accepted"
	}
	return "unknown"
}

func (k ResultKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// WebhookResult is the typed outcome of a webhook call. Only the fields for Kind are set.
type WebhookResult struct {
	Kind     ResultKind      `json:"kind"`
	Images   []string        `json:"images,omitempty"`
	Analysis string          `json:"analysis,omitempty"`
	JobID    string          `json:"job_id,omitempty"`
	Status   string          `json:"status,omitempty"`
	Raw      json.RawMessage `json:"-"`
}

// WebhookService posts paid-action requests to the configured n8n endpoints.
type WebhookService struct {
	urls        shared.WebhookConfig
	client      *http.Client
	videoClient *http.Client
	logger      *log.Logger
}

// NewWebhookService creates a webhook client. Video submissions use a client without a timeout.
func NewWebhookService(conf shared.WebhookConfig, transport http.RoundTripper, logger *log.Logger) *WebhookService {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	timeout := conf.Timeout.Duration
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &WebhookService{
		urls:        conf,
		client:      &http.Client{Transport: transport, Timeout: timeout},
		videoClient: &http.Client{Transport: transport},
		logger:      shared.WithLogger(logger, "service", "webhook"),
	}
}

// Endpoint returns the URL configured for kind.
func (w *WebhookService) Endpoint(kind models.JobKind) (string, error) {
	var u string
	switch kind {
	case models.KindThumbnail:
		u = w.urls.Thumbnail
	case models.KindAnalyze:
		u = w.urls.Analyze
	case models.KindABTest:
		u = w.urls.ABTest
	case models.KindVideo:
		u = w.urls.Video
	default:
		return "", fmt.Errorf("%w: job kind %q", shared.ErrInvalidArgument, kind)
	}
	if u == "" {
		return "", fmt.Errorf("%w: webhook url for %s", shared.ErrMissingConfig, kind)
	}
	return u, nil
}

// Submit posts req and parses the response.
//
// Requests with images are sent as multipart/form-data, everything else as JSON.
func (w *WebhookService) Submit(ctx context.Context, req WebhookRequest) (*WebhookResult, error) {
	endpoint, err := w.Endpoint(req.Kind)
	if err != nil {
		return nil, err
	}

	body, contentType, err := encodeWebhookRequest(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	requestID := shared.GenerateID()
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("X-Request-ID", requestID)

	client := w.client
	if req.Kind == models.KindVideo {
		client = w.videoClient
	}

	logger := shared.WithLogger(w.logger, "kind", req.Kind, "request", requestID)
	logger.Debug("submitting webhook", "images", len(req.Images))

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	result, parseErr := ParseWebhookResult(data)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if parseErr != nil && !isUnreadable(parseErr) {
			return nil, parseErr
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: shared.Truncate(strings.TrimSpace(string(data)), 200)}
	}
	if parseErr != nil {
		if isUnreadable(parseErr) {
			logger.Error("unreadable webhook response", "status", resp.StatusCode, "payload", string(data))
		}
		return nil, parseErr
	}

	logger.Info("webhook accepted", "result", result.Kind)
	return result, nil
}

func encodeWebhookRequest(req WebhookRequest) (io.Reader, string, error) {
	fields := map[string]string{"userId": req.UserID}
	if req.Email != "" {
		fields["email"] = req.Email
	}
	if req.Prompt != "" {
		fields["prompt"] = req.Prompt
	}
	if req.Title != "" {
		fields["title"] = req.Title
	}
	for k, v := range req.Fields {
		fields[k] = v
	}

	if len(req.Images) == 0 {
		data, err := json.Marshal(fields)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode request: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}

	for i, img := range req.Images {
		name := img.Name
		if name == "" {
			name = fmt.Sprintf("image_%d", i)
		}
		ct := img.ContentType
		if ct == "" {
			ct = http.DetectContentType(img.Data)
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image_%d"; filename=%q`, i, name))
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write image part: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

var (
	failedStatuses   = []string{"error", "failed", "failure"}
	acceptedStatuses = []string{"success", "accepted", "queued", "processing", "started", "ok"}
	imageKeys        = []string{"imageUrl", "image_url", "thumbnailUrl", "thumbnail_url", "url", "output"}
	imageListKeys    = []string{"images", "imageUrls", "image_urls", "thumbnails"}
	analysisKeys     = []string{"analysis", "feedback", "result", "text"}
	jobIDKeys        = []string{"jobId", "job_id", "id"}
	messageKeys      = []string{"message", "error", "detail"}
)

// ParseWebhookResult reads a webhook response body. Shapes are tried in this order:
//
//  1. a JSON array is unwrapped to its first element
//  2. status error/failed yields [shared.ErrWebhookFailed] with the message
//  3. image URL fields, then the same fields under "data"
//  4. analysis text fields
//  5. an accepted status, with an optional job id
//
// Anything else is [shared.ErrUnreadableResponse].
func ParseWebhookResult(body []byte) (*WebhookResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", shared.ErrUnreadableResponse)
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		if s := string(trimmed); isURL(s) {
			return &WebhookResult{Kind: ResultImages, Images: []string{s}, Raw: json.RawMessage(`null`)}, nil
		}
		return nil, fmt.Errorf("%w: %s", shared.ErrUnreadableResponse, shared.Truncate(string(trimmed), 120))
	}

	if arr, ok := v.([]any); ok {
		if urls := stringURLs(arr); len(urls) > 0 {
			return &WebhookResult{Kind: ResultImages, Images: urls, Raw: trimmed}, nil
		}
		if len(arr) == 0 {
			return nil, fmt.Errorf("%w: empty array", shared.ErrUnreadableResponse)
		}
		v = arr[0]
	}

	if s, ok := v.(string); ok && isURL(s) {
		return &WebhookResult{Kind: ResultImages, Images: []string{s}, Raw: trimmed}, nil
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnreadableResponse, shared.Truncate(string(trimmed), 120))
	}

	status := strings.ToLower(stringField(obj, "status"))
	if slices.Contains(failedStatuses, status) || obj["success"] == false {
		msg := firstString(obj, messageKeys)
		if msg == "" {
			msg = "webhook returned status " + status
		}
		return nil, fmt.Errorf("%w: %s", shared.ErrWebhookFailed, msg)
	}

	result := &WebhookResult{Status: status, Raw: trimmed}

	if imgs := imagesFrom(obj); len(imgs) > 0 {
		result.Kind, result.Images = ResultImages, imgs
		return result, nil
	}
	if data, ok := obj["data"].(map[string]any); ok {
		if imgs := imagesFrom(data); len(imgs) > 0 {
			result.Kind, result.Images = ResultImages, imgs
			return result, nil
		}
	}

	if text := analysisFrom(obj); text != "" {
		result.Kind, result.Analysis = ResultAnalysis, text
		return result, nil
	}

	if slices.Contains(acceptedStatuses, status) {
		result.Kind = ResultAccepted
		result.JobID = firstString(obj, jobIDKeys)
		return result, nil
	}

	return nil, fmt.Errorf("%w: %s", shared.ErrUnreadableResponse, shared.Truncate(string(trimmed), 120))
}

func imagesFrom(obj map[string]any) []string {
	for _, k := range imageKeys {
		switch val := obj[k].(type) {
		case string:
			if isURL(val) {
				return []string{val}
			}
		case []any:
			if urls := stringURLs(val); len(urls) > 0 {
				return urls
			}
		}
	}

	for _, k := range imageListKeys {
		list, ok := obj[k].([]any)
		if !ok {
			continue
		}
		var urls []string
		for _, item := range list {
			switch it := item.(type) {
			case string:
				if isURL(it) {
					urls = append(urls, it)
				}
			case map[string]any:
				if u := firstString(it, imageKeys); isURL(u) {
					urls = append(urls, u)
				}
			}
		}
		if len(urls) > 0 {
			return urls
		}
	}

	if s, ok := obj["result"].(string); ok && isURL(s) {
		return []string{s}
	}
	return nil
}

func analysisFrom(obj map[string]any) string {
	for _, k := range analysisKeys {
		switch val := obj[k].(type) {
		case string:
			if strings.TrimSpace(val) != "" {
				return val
			}
		case map[string]any, []any:
			data, err := json.MarshalIndent(val, "", "  ")
			if err == nil {
				return string(data)
			}
		}
	}
	return ""
}

func stringURLs(arr []any) []string {
	var urls []string
	for _, item := range arr {
		s, ok := item.(string)
		if !ok || !isURL(s) {
			return nil
		}
		urls = append(urls, s)
	}
	return urls
}

func stringField(obj map[string]any, key string) string {
	switch val := obj[key].(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%v", val)
	}
	return ""
}

func firstString(obj map[string]any, keys []string) string {
	for _, k := range keys {
		if s := stringField(obj, k); s != "" {
			return s
		}
	}
	return ""
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "data:image/")
}

func isUnreadable(err error) bool {
	return errors.Is(err, shared.ErrUnreadableResponse)
}
