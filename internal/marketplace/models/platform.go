package models

import (
	"time"

	"agentmemory/pkg/domain"
	dErrors "agentmemory/pkg/domain-errors"
)

// MaxPlatformFeeBps caps the platform and referral cuts at 10% each.
const MaxPlatformFeeBps = 1000

// PlatformConfig is the process-wide fee configuration. Singleton: at most
// one instance ever exists, keyed by a fixed label. There is no mutator —
// changing fees means recreating the platform.
type PlatformConfig struct {
	Address        domain.Address `json:"address"`
	Authority      domain.Address `json:"authority"`
	Treasury       domain.Address `json:"treasury"`
	PlatformFeeBps uint16         `json:"platform_fee_bps"`
	ReferralFeeBps uint16         `json:"referral_fee_bps"`
	CreatedAt      time.Time      `json:"created_at"`
}

// NewPlatformConfig validates fee bounds and the treasury destination.
func NewPlatformConfig(authority, treasury domain.Address, platformFeeBps, referralFeeBps uint16, now time.Time) (*PlatformConfig, error) {
	if platformFeeBps > MaxPlatformFeeBps {
		return nil, dErrors.New(dErrors.CodeValidation, "platform fee cannot exceed 1000 basis points")
	}
	if referralFeeBps > MaxPlatformFeeBps {
		return nil, dErrors.New(dErrors.CodeValidation, "referral fee cannot exceed 1000 basis points")
	}
	if treasury.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "treasury address is required")
	}
	return &PlatformConfig{
		Address:        DerivePlatformAddress(),
		Authority:      authority,
		Treasury:       treasury,
		PlatformFeeBps: platformFeeBps,
		ReferralFeeBps: referralFeeBps,
		CreatedAt:      now,
	}, nil
}

// DerivePlatformAddress returns the fixed singleton key.
func DerivePlatformAddress() domain.Address {
	return domain.DeriveAddress(domain.LabelPlatform)
}
