package models

import (
	"time"

	"agentmemory/pkg/domain"
	dErrors "agentmemory/pkg/domain-errors"
)

const (
	// MaxModuleIDLen bounds module identifiers.
	MaxModuleIDLen = 64
	// MaxContentRefLen bounds the content reference (e.g. an IPFS CID).
	MaxContentRefLen = 128
	// MaxRoyaltyBps caps the declared royalty split at 100%.
	MaxRoyaltyBps = 10000
	// MinPrice is the anti-dust pricing floor in base units.
	MinPrice = 1_000_000
)

// Module is one published memory module in the marketplace.
//
// Invariants:
//   - Price >= MinPrice, RoyaltyBps <= 10000
//   - TotalSales and TotalRevenue are monotonically non-decreasing and are
//     never touched by repricing
//   - IsActive flips to false at most once; there is no reactivation
type Module struct {
	Address      domain.Address `json:"address"`
	ModuleID     string         `json:"module_id"`
	Creator      domain.Address `json:"creator"`
	Price        uint64         `json:"price"`
	RoyaltyBps   uint16         `json:"royalty_bps"`
	TotalSales   uint64         `json:"total_sales"`
	TotalRevenue uint64         `json:"total_revenue"`
	ContentRef   string         `json:"content_ref"`
	IsActive     bool           `json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Purchase is the proof-of-ownership record for one (agent, module) pair.
// Its derived key makes a re-purchase by the same agent a collision.
type Purchase struct {
	Address     domain.Address `json:"address"`
	Agent       domain.Address `json:"agent"`
	Module      domain.Address `json:"module"`
	PricePaid   uint64         `json:"price_paid"`
	PurchasedAt time.Time      `json:"purchased_at"`
}

// NewModule validates identifiers, pricing, and royalty bounds.
func NewModule(moduleID string, creator domain.Address, price uint64, royaltyBps uint16, contentRef string, now time.Time) (*Module, error) {
	if moduleID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "module id is required")
	}
	if len(moduleID) > MaxModuleIDLen {
		return nil, dErrors.New(dErrors.CodeValidation, "module id must be 64 characters or less")
	}
	if len(contentRef) > MaxContentRefLen {
		return nil, dErrors.New(dErrors.CodeValidation, "content reference must be 128 characters or less")
	}
	if err := ValidatePricing(price, royaltyBps); err != nil {
		return nil, err
	}
	return &Module{
		Address:    DeriveModuleAddress(moduleID),
		ModuleID:   moduleID,
		Creator:    creator,
		Price:      price,
		RoyaltyBps: royaltyBps,
		ContentRef: contentRef,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// ValidatePricing enforces the price floor and royalty ceiling shared by
// registration and repricing.
func ValidatePricing(price uint64, royaltyBps uint16) error {
	if price < MinPrice {
		return dErrors.New(dErrors.CodeValidation, "price below minimum floor")
	}
	if royaltyBps > MaxRoyaltyBps {
		return dErrors.New(dErrors.CodeValidation, "royalty cannot exceed 10000 basis points")
	}
	return nil
}

// DeriveModuleAddress computes the deterministic record key for a module id.
func DeriveModuleAddress(moduleID string) domain.Address {
	return domain.DeriveAddress(domain.LabelModule, []byte(moduleID))
}

// DerivePurchaseAddress keys a purchase by buyer agent and module.
func DerivePurchaseAddress(agent, module domain.Address) domain.Address {
	return domain.DeriveAddress(domain.LabelPurchase, agent.Bytes(), module.Bytes())
}

// RequireCreator gates creator-only operations.
func (m *Module) RequireCreator(caller domain.Address) error {
	if m.Creator != caller {
		return dErrors.New(dErrors.CodeForbidden, "caller is not the module creator")
	}
	return nil
}

// CanPurchase checks the activation flag.
func (m *Module) CanPurchase() error {
	if !m.IsActive {
		return dErrors.New(dErrors.CodeConflict, "module is not purchasable")
	}
	return nil
}

// ApplyPricing updates price and royalty intent. Counters are untouched.
// Validate with ValidatePricing first.
func (m *Module) ApplyPricing(price uint64, royaltyBps uint16, now time.Time) {
	m.Price = price
	m.RoyaltyBps = royaltyBps
	m.UpdatedAt = now
}

// CanDeactivate checks the one-way activation flag.
func (m *Module) CanDeactivate() error {
	if !m.IsActive {
		return dErrors.New(dErrors.CodeConflict, "module already deactivated")
	}
	return nil
}

// ApplyDeactivation removes the module from sale permanently.
func (m *Module) ApplyDeactivation(now time.Time) {
	m.IsActive = false
	m.UpdatedAt = now
}

// ApplySale records a completed purchase against the counters.
func (m *Module) ApplySale(price uint64, now time.Time) {
	m.TotalSales++
	m.TotalRevenue += price
	m.UpdatedAt = now
}
