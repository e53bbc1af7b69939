package genesis

import (
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"invochain/core/state"
	"invochain/crypto"
	"invochain/native/invoice"
)

// Genesis describes the platform's initial state: the administrator, the
// vault, the payment asset, rate overrides, account allocations and the
// pre-approved investor allow-list. Addresses are bech32 "inv1..." strings
// and balances decimal strings of base units.
type Genesis struct {
	Network      string            `yaml:"network"`
	Admin        string            `yaml:"admin"`
	Vault        string            `yaml:"vault"`
	PaymentAsset string            `yaml:"payment_asset"`
	Rates        *Rates            `yaml:"rates,omitempty"`
	Alloc        map[string]string `yaml:"alloc,omitempty"`
	KYC          []string          `yaml:"kyc,omitempty"`
}

// Rates overrides individual platform rate parameters. Omitted fields keep
// the engine defaults.
type Rates struct {
	BaseInterestBps       *uint32 `yaml:"base_interest_bps,omitempty"`
	PenaltyBps            *uint32 `yaml:"penalty_bps,omitempty"`
	GracePeriodDays       *uint32 `yaml:"grace_period_days,omitempty"`
	InsuranceCutBps       *uint32 `yaml:"insurance_cut_bps,omitempty"`
	AuctionDurationSecs   *int64  `yaml:"auction_duration_secs,omitempty"`
	PriceDropRateBps      *uint32 `yaml:"price_drop_rate_bps,omitempty"`
	MaxAuctionDiscountBps *uint32 `yaml:"max_auction_discount_bps,omitempty"`
}

// LoadFile reads and validates a genesis document.
func LoadFile(path string) (*Genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genesis: read %s: %w", path, err)
	}
	g := &Genesis{}
	if err := yaml.Unmarshal(raw, g); err != nil {
		return nil, fmt.Errorf("genesis: parse %s: %w", path, err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks addresses and balances parse before any of them is applied.
func (g *Genesis) Validate() error {
	if _, err := g.AdminAddress(); err != nil {
		return err
	}
	if _, err := g.VaultAddress(); err != nil {
		return err
	}
	if strings.TrimSpace(g.PaymentAsset) == "" {
		return fmt.Errorf("genesis: payment_asset required")
	}
	for addr, balance := range g.Alloc {
		if _, err := crypto.DecodeAddress(addr); err != nil {
			return fmt.Errorf("genesis: alloc address %q: %w", addr, err)
		}
		if _, ok := new(big.Int).SetString(strings.TrimSpace(balance), 10); !ok {
			return fmt.Errorf("genesis: alloc balance %q for %s is not a decimal integer", balance, addr)
		}
	}
	for _, addr := range g.KYC {
		if _, err := crypto.DecodeAddress(addr); err != nil {
			return fmt.Errorf("genesis: kyc address %q: %w", addr, err)
		}
	}
	return nil
}

// AdminAddress returns the decoded platform administrator.
func (g *Genesis) AdminAddress() ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(g.Admin))
	if err != nil {
		return [20]byte{}, fmt.Errorf("genesis: admin: %w", err)
	}
	return addr.Bytes(), nil
}

// VaultAddress returns the decoded settlement vault.
func (g *Genesis) VaultAddress() ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(g.Vault))
	if err != nil {
		return [20]byte{}, fmt.Errorf("genesis: vault: %w", err)
	}
	return addr.Bytes(), nil
}

// RateConfig merges the overrides onto the engine defaults.
func (g *Genesis) RateConfig() invoice.RateConfig {
	cfg := invoice.DefaultRateConfig()
	r := g.Rates
	if r == nil {
		return cfg
	}
	if r.BaseInterestBps != nil {
		cfg.BaseInterestRateBps = *r.BaseInterestBps
	}
	if r.PenaltyBps != nil {
		cfg.PenaltyRateBps = *r.PenaltyBps
	}
	if r.GracePeriodDays != nil {
		cfg.GracePeriodDays = *r.GracePeriodDays
	}
	if r.InsuranceCutBps != nil {
		cfg.InsuranceCutBps = *r.InsuranceCutBps
	}
	if r.AuctionDurationSecs != nil {
		cfg.DefaultAuctionDuration = *r.AuctionDurationSecs
	}
	if r.PriceDropRateBps != nil {
		cfg.DefaultPriceDropRateBps = *r.PriceDropRateBps
	}
	if r.MaxAuctionDiscountBps != nil {
		cfg.DefaultMaxDiscountBps = *r.MaxAuctionDiscountBps
	}
	return cfg
}

// Apply initializes the platform from the genesis document. It is idempotent
// across restarts: once an administrator is stored, the document is assumed
// applied and nothing is touched.
func (g *Genesis) Apply(engine *invoice.Engine, mgr *state.Manager) error {
	if _, ok, err := mgr.AdminGet(); err != nil {
		return err
	} else if ok {
		return nil
	}
	if err := g.Validate(); err != nil {
		return err
	}

	admin, err := g.AdminAddress()
	if err != nil {
		return err
	}
	if err := engine.Initialize(admin, g.PaymentAsset, g.RateConfig()); err != nil {
		return err
	}

	// Deterministic application order for the allocation map.
	addrs := make([]string, 0, len(g.Alloc))
	for addr := range g.Alloc {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addrStr := range addrs {
		decoded, err := crypto.DecodeAddress(addrStr)
		if err != nil {
			return err
		}
		balance, _ := new(big.Int).SetString(strings.TrimSpace(g.Alloc[addrStr]), 10)
		if err := mgr.SetBalance(decoded.Bytes(), balance); err != nil {
			return err
		}
	}

	for _, addrStr := range g.KYC {
		decoded, err := crypto.DecodeAddress(addrStr)
		if err != nil {
			return err
		}
		if err := engine.SetInvestorKYC(admin, decoded.Bytes(), true); err != nil {
			return err
		}
	}
	return nil
}
