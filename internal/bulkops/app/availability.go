package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/agrovane/golang_services/internal/bulkops/domain"
)

// TierAvailability is the per-tier slice of an estimate in tier-partitioned
// mode.
type TierAvailability struct {
	Required  int
	Available int
}

// AvailabilityEstimate is the advisory result of the pre-flight code pool
// check. It is a point-in-time count: nothing is reserved or locked, and a
// concurrent submission against the same pool may observe the same numbers.
type AvailabilityEstimate struct {
	RequiredUnits  int
	AvailableUnits int

	// PerTier is populated only in tier-partitioned mode.
	PerTier map[domain.Tier]TierAvailability
}

// checkAvailability verifies the pool can satisfy the rows before any
// durable state is created. With tier overrides present, requirement and
// availability are computed independently per tier and a shortfall in any
// single tier rejects the whole job. Without overrides, one pooled count is
// checked against the summed requirement.
func (s *BulkJobService) checkAvailability(
	ctx context.Context,
	rows []domain.RecipientRow,
	sponsorID uuid.UUID,
	purchaseID uuid.NullUUID,
) (*AvailabilityEstimate, error) {
	tiered := false
	for _, row := range rows {
		if row.Tier != "" {
			tiered = true
			break
		}
	}

	if !tiered {
		required := 0
		for _, row := range rows {
			required += row.Quantity
		}

		available, err := s.codePool.CountAvailable(ctx, domain.AvailableCodesQuery{
			SponsorID:  sponsorID,
			PurchaseID: purchaseID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to count available codes: %w", err)
		}

		s.logger.InfoContext(ctx, "Code availability checked",
			"sponsor_id", sponsorID, "required", required, "available", available)

		if available < required {
			return nil, newValidationError(fmt.Sprintf(
				"insufficient codes: required %d, available %d (short %d)",
				required, available, required-available))
		}
		return &AvailabilityEstimate{RequiredUnits: required, AvailableUnits: available}, nil
	}

	requirements := make(map[domain.Tier]int)
	for _, row := range rows {
		requirements[row.Tier] += row.Quantity
	}

	// Deterministic tier order for error messages and logs.
	tiers := make([]domain.Tier, 0, len(requirements))
	for tier := range requirements {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i] < tiers[j] })

	estimate := &AvailabilityEstimate{PerTier: make(map[domain.Tier]TierAvailability, len(tiers))}
	var shortfalls []string

	for _, tier := range tiers {
		required := requirements[tier]
		available, err := s.codePool.CountAvailable(ctx, domain.AvailableCodesQuery{
			SponsorID:  sponsorID,
			Tier:       tier,
			PurchaseID: purchaseID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to count available codes for tier %s: %w", tier, err)
		}

		estimate.PerTier[tier] = TierAvailability{Required: required, Available: available}
		estimate.RequiredUnits += required
		estimate.AvailableUnits += available

		if available < required {
			shortfalls = append(shortfalls, fmt.Sprintf(
				"tier %s: required %d, available %d (short %d)",
				tier, required, available, required-available))
		} else {
			s.logger.InfoContext(ctx, "Tier availability checked",
				"sponsor_id", sponsorID, "tier", tier, "required", required, "available", available)
		}
	}

	if len(shortfalls) > 0 {
		return nil, &ValidationError{Messages: append([]string{"insufficient codes"}, shortfalls...)}
	}
	return estimate, nil
}
