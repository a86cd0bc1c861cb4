package entitlement

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/venturelab/compass/internal/errors"
)

// Tier represents the subscription level
type Tier string

const (
	// TierFree is the default tier with the core pipeline
	TierFree Tier = "free"
	// TierPro unlocks premium stages and cloud sync
	TierPro Tier = "pro"
	// TierEnterprise adds team features on top of pro
	TierEnterprise Tier = "enterprise"
)

// Paid reports whether the tier unlocks premium stages
func (t Tier) Paid() bool {
	return t == TierPro || t == TierEnterprise
}

// Entitlement is the locally cached subscription state
type Entitlement struct {
	Tier      Tier      `json:"tier"`
	Key       string    `json:"key,omitempty"`
	Email     string    `json:"email,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// FeatureGateError is returned when a feature requires a higher tier
type FeatureGateError struct {
	Feature      string
	RequiredTier Tier
	CurrentTier  Tier
}

func (e *FeatureGateError) Error() string {
	return fmt.Sprintf("feature '%s' requires %s tier (current: %s)",
		e.Feature, e.RequiredTier, e.CurrentTier)
}

// TierFeatures maps each tier to its available features
var TierFeatures = map[Tier][]string{
	TierFree: {
		"pipeline.discovery",
		"pipeline.validation",
		"synth.refresh",
		"store.local",
	},
	TierPro: {
		// All free features plus:
		"pipeline.mvp",
		"pipeline.launch",
		"store.remote",
		"export.full",
	},
	TierEnterprise: {
		// All Pro features plus:
		"team.shared-plans",
		"support.priority",
	},
}

const fileName = "entitlement.json"

// Default returns a free tier entitlement
func Default() *Entitlement {
	return &Entitlement{
		Tier:     TierFree,
		IssuedAt: time.Now(),
	}
}

// Load reads the entitlement from <dir>/entitlement.json. A missing
// file means free tier, not an error; an expired entitlement is an
// error so the caller can message and fall back explicitly.
func Load(dir string) (*Entitlement, error) {
	path := filepath.Join(dir, fileName)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading entitlement file: %w", err)
	}

	var ent Entitlement
	if err := json.Unmarshal(data, &ent); err != nil {
		return nil, errors.Wrap(errors.ErrCodeLicenseInvalid, "parsing entitlement file", err)
	}

	if !ent.ExpiresAt.IsZero() && time.Now().After(ent.ExpiresAt) {
		return nil, errors.NewLicenseExpiredError()
	}

	return &ent, nil
}

// Save writes the entitlement to <dir>/entitlement.json
func (e *Entitlement) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating workspace directory: %w", err)
	}

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling entitlement: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, fileName), data, 0644); err != nil {
		return fmt.Errorf("writing entitlement file: %w", err)
	}

	return nil
}

// HasFeature checks if the entitlement includes access to a feature.
// Higher tiers inherit everything below them.
func (e *Entitlement) HasFeature(feature string) bool {
	tiers := []Tier{TierFree}
	switch e.Tier {
	case TierPro:
		tiers = append(tiers, TierPro)
	case TierEnterprise:
		tiers = append(tiers, TierPro, TierEnterprise)
	}

	for _, tier := range tiers {
		for _, f := range TierFeatures[tier] {
			if f == feature {
				return true
			}
		}
	}
	return false
}

// RequireFeature returns a FeatureGateError when the feature is not
// available at the current tier.
func (e *Entitlement) RequireFeature(feature string, requiredTier Tier) error {
	if !e.HasFeature(feature) {
		return &FeatureGateError{
			Feature:      feature,
			RequiredTier: requiredTier,
			CurrentTier:  e.Tier,
		}
	}
	return nil
}

// CurrentTier loads the tier for a workspace, treating any load
// failure as free tier.
func CurrentTier(dir string) Tier {
	ent, err := Load(dir)
	if err != nil {
		return TierFree
	}
	return ent.Tier
}
