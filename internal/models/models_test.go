package models

import (
	"encoding/json"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestPlan(t *testing.T) {
	tc := []struct {
		plan      Plan
		isPro     bool
		isPremium bool
	}{
		{PlanFree, false, false},
		{PlanPro, true, false},
		{PlanPre, true, true},
		{PlanPremium, true, true},
		{Plan("enterprise"), false, false},
		{Plan(""), false, false},
	}

	for _, tt := range tc {
		t.Run(tt.plan.String(), func(t *testing.T) {
			if got := tt.plan.IsPro(); got != tt.isPro {
				t.Errorf("IsPro() = %v, want %v", got, tt.isPro)
			}
			if got := tt.plan.IsPremium(); got != tt.isPremium {
				t.Errorf("IsPremium() = %v, want %v", got, tt.isPremium)
			}
		})
	}

	t.Run("ParsePlan normalizes case", func(t *testing.T) {
		if got := ParsePlan("  PreMium "); got != PlanPremium {
			t.Errorf("ParsePlan() = %q, want premium", got)
		}
	})
}

func TestProfile(t *testing.T) {
	t.Run("UnmarshalJSON", func(t *testing.T) {
		var p Profile
		if err := json.Unmarshal([]byte(`{"id":"u-1","credits":7,"subscription_plan":"PRO"}`), &p); err != nil {
			t.Fatalf("unmarshal error: %v", err)
		}
		if p.ID != "u-1" || p.Credits != 7 || p.SubscriptionPlan != PlanPro {
			t.Errorf("unexpected profile %+v", p)
		}
	})

	t.Run("UnmarshalJSON with nulls", func(t *testing.T) {
		var p Profile
		if err := json.Unmarshal([]byte(`{"id":"u-1","credits":null,"subscription_plan":null}`), &p); err != nil {
			t.Fatalf("unmarshal error: %v", err)
		}
		if p.Credits != 0 || p.SubscriptionPlan != PlanFree {
			t.Errorf("expected zero credits on free plan, got %+v", p)
		}
	})

	t.Run("WithCredits floors at zero", func(t *testing.T) {
		p := Profile{ID: "u-1", Credits: 0}
		if got := p.WithCredits(5).Credits; got != 0 {
			t.Errorf("expected 0 credits, got %d", got)
		}

		p.Credits = 3
		if got := p.WithCredits(1).Credits; got != 2 {
			t.Errorf("expected 2 credits, got %d", got)
		}
	})

	t.Run("DefaultProfile", func(t *testing.T) {
		p := DefaultProfile("u-9")
		if p.ID != "u-9" || p.Credits != 2 || p.SubscriptionPlan != PlanFree {
			t.Errorf("unexpected default profile %+v", p)
		}
	})
}

func TestJobStatus(t *testing.T) {
	tc := []struct {
		in       string
		want     JobStatus
		terminal bool
	}{
		{"pending", JobPending, false},
		{"Processing", JobProcessing, false},
		{"completed", JobCompleted, true},
		{"failed", JobFailed, true},
		{"queued", JobPending, false},
		{"error", JobFailed, true},
		{"", JobUnknown, false},
		{"mystery", JobUnknown, false},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseJobStatus(tt.in)
			if got != tt.want {
				t.Errorf("ParseJobStatus(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if got.IsTerminal() != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got.IsTerminal(), tt.terminal)
			}
		})
	}

	t.Run("decodes from job row", func(t *testing.T) {
		var job Job
		raw := `{"id":"j-1","user_id":"u-1","status":"COMPLETED","created_at":"2025-05-01T10:00:00.123456+00:00","result_url":"https://cdn/x.mp4"}`
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			t.Fatalf("unmarshal error: %v", err)
		}
		if job.Status != JobCompleted {
			t.Errorf("expected completed, got %q", job.Status)
		}
		if job.CreatedAt.IsZero() {
			t.Error("expected created_at to be parsed")
		}
	})
}

func TestSession(t *testing.T) {
	expiry := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := Session{
		User:         User{ID: "u-1", Email: "a@b.c"},
		AccessToken:  "old",
		RefreshToken: "r-old",
		ExpiresAt:    expiry,
	}

	t.Run("Token", func(t *testing.T) {
		tok := s.Token()
		if tok.TokenType != "bearer" || tok.AccessToken != "old" || !tok.Expiry.Equal(expiry) {
			t.Errorf("unexpected token %+v", tok)
		}
	})

	t.Run("WithToken keeps identity", func(t *testing.T) {
		next := s.WithToken(&oauth2.Token{AccessToken: "new", Expiry: expiry.Add(time.Hour)})
		if next.User.ID != "u-1" || next.User.Email != "a@b.c" {
			t.Errorf("identity changed: %+v", next.User)
		}
		if next.AccessToken != "new" || next.RefreshToken != "r-old" {
			t.Errorf("unexpected tokens %q %q", next.AccessToken, next.RefreshToken)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		if s.Expired(expiry.Add(-time.Minute)) {
			t.Error("should not be expired before expiry")
		}
		if !s.Expired(expiry) {
			t.Error("should be expired at expiry")
		}
	})

	t.Run("nil UserID", func(t *testing.T) {
		var none *Session
		if none.UserID() != "" {
			t.Error("nil session should have empty user id")
		}
	})
}

func TestJobRecord(t *testing.T) {
	t.Run("Validate", func(t *testing.T) {
		if err := NewJobRecord("", KindThumbnail, "").Validate(); err == nil {
			t.Error("expected error for missing user")
		}
		if err := NewJobRecord("u-1", JobKind("nope"), "").Validate(); err == nil {
			t.Error("expected error for unknown kind")
		}
		if err := NewJobRecord("u-1", KindVideo, "intro").Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("terminal status sticks", func(t *testing.T) {
		r := NewJobRecord("u-1", KindVideo, "")
		r.SetStatus(JobCompleted)
		r.SetStatus(JobProcessing)
		if r.Status() != JobCompleted {
			t.Errorf("expected completed, got %s", r.Status())
		}
	})

	t.Run("kinds", func(t *testing.T) {
		if !KindVideo.RequiresPro() || KindThumbnail.RequiresPro() {
			t.Error("only video should require pro")
		}
		if KindAnalyze.Cost() != 1 {
			t.Error("expected cost 1")
		}
	})
}
