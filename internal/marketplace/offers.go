package marketplace

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/Pathfinder/internal/store"
)

// DefaultOffers is the launch catalogue of partner lenders.
func DefaultOffers() []store.Offer {
	return []store.Offer{
		{LenderName: "TrustAxis Finance", MinAPR: 9.5, MaxAPR: 14.2, MinAmount: 50000, MaxAmount: 1000000, MaxTenureMonths: 72, FundingDays: 3},
		{LenderName: "NavaCapital", MinAPR: 10.2, MaxAPR: 16.4, MinAmount: 25000, MaxAmount: 800000, MaxTenureMonths: 60, FundingDays: 2},
		{LenderName: "SaharaCredit Union", MinAPR: 8.9, MaxAPR: 13.8, MinAmount: 75000, MaxAmount: 1200000, MaxTenureMonths: 84, FundingDays: 5},
		{LenderName: "MetroLend", MinAPR: 11.1, MaxAPR: 17.9, MinAmount: 20000, MaxAmount: 500000, MaxTenureMonths: 48, FundingDays: 1},
		{LenderName: "HarborLine Bank", MinAPR: 9.8, MaxAPR: 15.0, MinAmount: 100000, MaxAmount: 1500000, MaxTenureMonths: 96, FundingDays: 4},
	}
}

// SeedDefaults stores DefaultOffers when the store has no offers at all and
// returns how many were written.
func SeedDefaults(ctx context.Context, s store.Store) (int, error) {
	existing, err := s.ListOffers(ctx, store.OfferFilter{})
	if err != nil {
		return 0, fmt.Errorf("list offers: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	offers := DefaultOffers()
	for i := range offers {
		if err := s.UpsertOffer(ctx, &offers[i]); err != nil {
			return i, fmt.Errorf("seed %s: %w", offers[i].LenderName, err)
		}
	}
	return len(offers), nil
}
