package models

import (
	"encoding/json"
	"strings"
)

// Plan is a subscription plan name.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPro     Plan = "pro"
	PlanPre     Plan = "pre"
	PlanPremium Plan = "premium"
)

// DefaultCredits is granted to the fallback profile used when the real one cannot be read.
const DefaultCredits = 2

// ParsePlan normalizes s. Unrecognized names are returned lowercased and grant no tier.
func ParsePlan(s string) Plan {
	return Plan(strings.ToLower(strings.TrimSpace(s)))
}

// IsPro reports plan ∈ {pro, pre, premium}.
func (p Plan) IsPro() bool {
	switch p {
	case PlanPro, PlanPre, PlanPremium:
		return true
	}
	return false
}

// IsPremium reports plan ∈ {pre, premium}.
func (p Plan) IsPremium() bool {
	return p == PlanPre || p == PlanPremium
}

func (p Plan) String() string {
	if p == "" {
		return string(PlanFree)
	}
	return string(p)
}

// Profile is a user's billing record. ID equals the owning user's id.
type Profile struct {
	ID               string `json:"id"`
	Credits          int    `json:"credits"`
	SubscriptionPlan Plan   `json:"subscription_plan"`
}

// DefaultProfile is the safe shape used when a profile fetch fails and nothing is cached.
func DefaultProfile(userID string) *Profile {
	return &Profile{ID: userID, Credits: DefaultCredits, SubscriptionPlan: PlanFree}
}

// UnmarshalJSON accepts a null credits value and normalizes the plan name.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID               string  `json:"id"`
		Credits          *int    `json:"credits"`
		SubscriptionPlan *string `json:"subscription_plan"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.ID = raw.ID
	p.Credits = 0
	if raw.Credits != nil && *raw.Credits > 0 {
		p.Credits = *raw.Credits
	}
	p.SubscriptionPlan = PlanFree
	if raw.SubscriptionPlan != nil && *raw.SubscriptionPlan != "" {
		p.SubscriptionPlan = ParsePlan(*raw.SubscriptionPlan)
	}
	return nil
}

// WithCredits returns a copy with credits reduced by amount, floored at zero.
func (p Profile) WithCredits(amount int) Profile {
	p.Credits = max(p.Credits-amount, 0)
	return p
}
