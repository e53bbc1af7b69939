package invoice

import "fmt"

const (
	basisPoints    = 10_000
	secondsPerHour = 3_600
	secondsPerDay  = 86_400
	daysPerYear    = 365

	// maxAuctionDiscountBps caps how deep a supplier may discount the face
	// value during a primary auction.
	maxAuctionDiscountBps = 5_000
)

// RateConfig holds the admin-set parameters read by every money computation.
// Rates are expressed in basis points.
type RateConfig struct {
	BaseInterestRateBps uint32
	PenaltyRateBps      uint32
	GracePeriodDays     uint32
	InsuranceCutBps     uint32

	// Auction defaults applied when a supplier starts a primary sale.
	DefaultAuctionDuration  int64
	DefaultPriceDropRateBps uint32
	DefaultMaxDiscountBps   uint32
}

// DefaultRateConfig returns the platform defaults: 10% base interest, 24%
// penalty, 30-day grace period, 5% insurance cut, 7-day auctions dropping
// 50bps per hour with a 15% discount cap.
func DefaultRateConfig() RateConfig {
	return RateConfig{
		BaseInterestRateBps:     1_000,
		PenaltyRateBps:          2_400,
		GracePeriodDays:         30,
		InsuranceCutBps:         500,
		DefaultAuctionDuration:  604_800,
		DefaultPriceDropRateBps: 50,
		DefaultMaxDiscountBps:   1_500,
	}
}

// Validate rejects configurations whose basis-point fields exceed 100%.
func (c RateConfig) Validate() error {
	if c.BaseInterestRateBps > basisPoints {
		return fmt.Errorf("base interest rate out of range: %d", c.BaseInterestRateBps)
	}
	if c.PenaltyRateBps > basisPoints {
		return fmt.Errorf("penalty rate out of range: %d", c.PenaltyRateBps)
	}
	if c.InsuranceCutBps > basisPoints {
		return fmt.Errorf("insurance cut out of range: %d", c.InsuranceCutBps)
	}
	if c.DefaultMaxDiscountBps > maxAuctionDiscountBps {
		return fmt.Errorf("default max discount out of range: %d", c.DefaultMaxDiscountBps)
	}
	if c.DefaultAuctionDuration <= 0 {
		return fmt.Errorf("default auction duration must be positive: %d", c.DefaultAuctionDuration)
	}
	return nil
}
