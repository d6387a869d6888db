package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/thumbx/internal/models"
	"github.com/desertthunder/thumbx/internal/shared"
)

func TestParseWebhookResult(t *testing.T) {
	tc := []struct {
		name     string
		body     string
		kind     ResultKind
		images   []string
		analysis string
		jobID    string
	}{
		{name: "imageUrl", body: `{"status":"success","imageUrl":"https://cdn/a.png"}`, kind: ResultImages, images: []string{"https://cdn/a.png"}},
		{name: "snake case thumbnail", body: `{"thumbnail_url":"https://cdn/b.png"}`, kind: ResultImages, images: []string{"https://cdn/b.png"}},
		{name: "images list of objects", body: `{"images":[{"url":"https://cdn/1.png"},{"image_url":"https://cdn/2.png"}]}`, kind: ResultImages, images: []string{"https://cdn/1.png", "https://cdn/2.png"}},
		{name: "nested data", body: `{"status":"success","data":{"output":["https://cdn/x.png","https://cdn/y.png"]}}`, kind: ResultImages, images: []string{"https://cdn/x.png", "https://cdn/y.png"}},
		{name: "array wrapped", body: `[{"url":"https://cdn/first.png"},{"url":"https://cdn/second.png"}]`, kind: ResultImages, images: []string{"https://cdn/first.png"}},
		{name: "array of urls", body: `["https://cdn/1.png","https://cdn/2.png"]`, kind: ResultImages, images: []string{"https://cdn/1.png", "https://cdn/2.png"}},
		{name: "bare url body", body: `https://cdn/plain.png`, kind: ResultImages, images: []string{"https://cdn/plain.png"}},
		{name: "result url", body: `{"result":"https://cdn/r.png"}`, kind: ResultImages, images: []string{"https://cdn/r.png"}},
		{name: "images beat analysis", body: `{"url":"https://cdn/u.png","analysis":"nice"}`, kind: ResultImages, images: []string{"https://cdn/u.png"}},
		{name: "analysis", body: `{"status":"success","analysis":"Use bigger text."}`, kind: ResultAnalysis, analysis: "Use bigger text."},
		{name: "feedback", body: `{"feedback":"Faces work."}`, kind: ResultAnalysis, analysis: "Faces work."},
		{name: "result text", body: `{"result":"A wins"}`, kind: ResultAnalysis, analysis: "A wins"},
		{name: "accepted with job id", body: `{"status":"accepted","jobId":"j-9"}`, kind: ResultAccepted, jobID: "j-9"},
		{name: "success without fields", body: `{"status":"success"}`, kind: ResultAccepted},
		{name: "queued job_id", body: `[{"status":"queued","job_id":"j-2"}]`, kind: ResultAccepted, jobID: "j-2"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWebhookResult([]byte(tt.body))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got.Kind != tt.kind {
				t.Fatalf("expected kind %s, got %s", tt.kind, got.Kind)
			}
			if strings.Join(got.Images, ",") != strings.Join(tt.images, ",") {
				t.Errorf("expected images %v, got %v", tt.images, got.Images)
			}
			if got.Analysis != tt.analysis {
				t.Errorf("expected analysis %q, got %q", tt.analysis, got.Analysis)
			}
			if got.JobID != tt.jobID {
				t.Errorf("expected job id %q, got %q", tt.jobID, got.JobID)
			}
		})
	}

	t.Run("Structured Analysis", func(t *testing.T) {
		got, err := ParseWebhookResult([]byte(`{"analysis":{"score":8,"notes":["contrast"]}}`))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Kind != ResultAnalysis || !strings.Contains(got.Analysis, `"score": 8`) {
			t.Errorf("unexpected result %+v", got)
		}
	})

	t.Run("Failures", func(t *testing.T) {
		failures := []struct {
			name string
			body string
			want error
			msg  string
		}{
			{name: "status error", body: `{"status":"error","message":"Insufficient credits"}`, want: shared.ErrWebhookFailed, msg: "Insufficient credits"},
			{name: "status failed in array", body: `[{"status":"failed","error":"model offline"}]`, want: shared.ErrWebhookFailed, msg: "model offline"},
			{name: "error beats image", body: `{"status":"error","imageUrl":"https://cdn/a.png"}`, want: shared.ErrWebhookFailed},
			{name: "success false", body: `{"success":false,"message":"nope"}`, want: shared.ErrWebhookFailed, msg: "nope"},
			{name: "empty", body: `  `, want: shared.ErrUnreadableResponse},
			{name: "empty array", body: `[]`, want: shared.ErrUnreadableResponse},
			{name: "unknown object", body: `{"foo":"bar"}`, want: shared.ErrUnreadableResponse},
			{name: "not json", body: `<html>oops</html>`, want: shared.ErrUnreadableResponse},
			{name: "number", body: `42`, want: shared.ErrUnreadableResponse},
		}

		for _, tt := range failures {
			t.Run(tt.name, func(t *testing.T) {
				_, err := ParseWebhookResult([]byte(tt.body))
				if !errors.Is(err, tt.want) {
					t.Fatalf("expected %v, got %v", tt.want, err)
				}
				if tt.msg != "" && !strings.Contains(err.Error(), tt.msg) {
					t.Errorf("expected message %q in %v", tt.msg, err)
				}
			})
		}
	})
}

func TestWebhookService(t *testing.T) {
	newService := func(t *testing.T, handler http.HandlerFunc) *WebhookService {
		t.Helper()
		server := httptest.NewServer(handler)
		t.Cleanup(server.Close)
		conf := shared.WebhookConfig{
			Thumbnail: server.URL + "/thumbnail",
			Analyze:   server.URL + "/analyze",
			Video:     server.URL + "/video",
			Timeout:   shared.Duration{Duration: 5 * time.Second},
		}
		return NewWebhookService(conf, server.Client().Transport, shared.NewLogger(io.Discard))
	}

	t.Run("Endpoint", func(t *testing.T) {
		w := NewWebhookService(shared.WebhookConfig{Thumbnail: "http://x/t"}, nil, nil)

		if u, err := w.Endpoint(models.KindThumbnail); err != nil || u != "http://x/t" {
			t.Errorf("unexpected endpoint %q %v", u, err)
		}
		if _, err := w.Endpoint(models.KindABTest); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
		if _, err := w.Endpoint(models.JobKind("bogus")); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Timeouts", func(t *testing.T) {
		w := NewWebhookService(shared.WebhookConfig{}, nil, nil)
		if w.client.Timeout != 2*time.Minute {
			t.Errorf("expected default timeout 2m, got %v", w.client.Timeout)
		}
		if w.videoClient.Timeout != 0 {
			t.Errorf("video client should have no timeout, got %v", w.videoClient.Timeout)
		}
	})

	t.Run("Submit JSON", func(t *testing.T) {
		w := newService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/analyze" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("expected JSON, got %s", r.Header.Get("Content-Type"))
			}
			if r.Header.Get("X-Request-ID") == "" {
				t.Error("missing request id")
			}
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["userId"] != "u-1" || body["title"] != "My Video" || body["style"] != "bold" {
				t.Errorf("unexpected body %v", body)
			}
			w.Write([]byte(`{"status":"success","feedback":"Looks good"}`))
		})

		res, err := w.Submit(context.Background(), WebhookRequest{
			Kind:   models.KindAnalyze,
			UserID: "u-1",
			Title:  "My Video",
			Fields: map[string]string{"style": "bold"},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Kind != ResultAnalysis || res.Analysis != "Looks good" {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("Submit Multipart", func(t *testing.T) {
		w := newService(t, func(w http.ResponseWriter, r *http.Request) {
			mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "multipart/form-data" {
				t.Errorf("expected multipart, got %s", r.Header.Get("Content-Type"))
				return
			}

			mr := multipart.NewReader(r.Body, params["boundary"])
			fields := map[string]string{}
			files := 0
			for {
				part, err := mr.NextPart()
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Errorf("bad part: %v", err)
					return
				}
				data, _ := io.ReadAll(part)
				if part.FileName() != "" {
					files++
					continue
				}
				fields[part.FormName()] = string(data)
			}

			if files != 2 {
				t.Errorf("expected 2 files, got %d", files)
			}
			if fields["prompt"] != "neon" {
				t.Errorf("expected prompt field, got %v", fields)
			}
			w.Write([]byte(`{"imageUrl":"https://cdn/out.png"}`))
		})

		res, err := w.Submit(context.Background(), WebhookRequest{
			Kind:   models.KindThumbnail,
			UserID: "u-1",
			Prompt: "neon",
			Images: []Attachment{
				{Name: "a.png", ContentType: "image/png", Data: []byte("png")},
				{Data: []byte("raw")},
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Kind != ResultImages || res.Images[0] != "https://cdn/out.png" {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("Business Failure On Error Status", func(t *testing.T) {
		w := newService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			w.Write([]byte(`{"status":"error","message":"Insufficient credits"}`))
		})

		_, err := w.Submit(context.Background(), WebhookRequest{Kind: models.KindThumbnail, UserID: "u-1"})
		if !errors.Is(err, shared.ErrWebhookFailed) {
			t.Errorf("expected ErrWebhookFailed, got %v", err)
		}
	})

	t.Run("Server Error Without Body", func(t *testing.T) {
		w := newService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := w.Submit(context.Background(), WebhookRequest{Kind: models.KindVideo, UserID: "u-1"})
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected APIError 500, got %v", err)
		}
	})

	t.Run("Unreadable Response", func(t *testing.T) {
		w := newService(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"weird":true}`))
		})

		_, err := w.Submit(context.Background(), WebhookRequest{Kind: models.KindThumbnail, UserID: "u-1"})
		if !errors.Is(err, shared.ErrUnreadableResponse) {
			t.Errorf("expected ErrUnreadableResponse, got %v", err)
		}
	})
}
