package invoice

import (
	"fmt"
	"math/big"
	"strings"
)

// InvoiceStatus represents the lifecycle states of a tokenized invoice.
type InvoiceStatus uint8

const (
	// StatusDraft: created by the supplier, awaiting buyer attestation.
	StatusDraft InvoiceStatus = iota
	// StatusVerified: attested by the buyer, tokens minted to the supplier.
	StatusVerified
	// StatusFunding: a primary-sale auction is running.
	StatusFunding
	// StatusFunded: all tokens sold to investors.
	StatusFunded
	// StatusOverdue: past the due date without repayment, penalty applies.
	StatusOverdue
	// StatusSettled: buyer paid, proceeds distributed. Terminal.
	StatusSettled
	// StatusDefaulted: past the grace period without payment. Terminal for
	// the lifecycle; insurance claims remain possible.
	StatusDefaulted
	// StatusDisputed: the buyer raised a dispute, invoice frozen.
	StatusDisputed
	// StatusRevoked: stale invoice withdrawn by the supplier. Terminal.
	StatusRevoked
	// StatusClawedBack: a valid dispute ruling seized all holdings. Terminal.
	StatusClawedBack
)

var statusNames = map[InvoiceStatus]string{
	StatusDraft:      "draft",
	StatusVerified:   "verified",
	StatusFunding:    "funding",
	StatusFunded:     "funded",
	StatusOverdue:    "overdue",
	StatusSettled:    "settled",
	StatusDefaulted:  "defaulted",
	StatusDisputed:   "disputed",
	StatusRevoked:    "revoked",
	StatusClawedBack: "clawed_back",
}

func (s InvoiceStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Valid reports whether the status value is within the supported range.
func (s InvoiceStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Terminal reports whether the status permits no further transitions.
func (s InvoiceStatus) Terminal() bool {
	switch s {
	case StatusSettled, StatusDefaulted, StatusRevoked, StatusClawedBack:
		return true
	default:
		return false
	}
}

// Invoice captures one originated receivable and its full lifecycle state.
// Token amounts are base units of the payment asset; total tokens are minted
// 1:1 with the face amount at verification.
type Invoice struct {
	ID       [32]byte
	Supplier [20]byte
	Buyer    [20]byte

	Amount   *big.Int
	Currency string

	CreatedAt     int64
	DueDate       int64
	VerifiedAt    int64
	SettledAt     int64
	BuyerSignedAt int64

	Status InvoiceStatus

	TokenSymbol     string
	TotalTokens     *big.Int
	TokensSold      *big.Int
	TokensRemaining *big.Int

	Description   string
	PurchaseOrder string
	DocumentHash  string

	RepaymentReceived *big.Int

	AuctionStart     int64
	AuctionEnd       int64
	StartPrice       *big.Int
	MinPrice         *big.Int
	PriceDropRateBps uint32
}

// Clone returns a deep copy so callers can safely mutate the copy without
// affecting the stored instance.
func (inv *Invoice) Clone() *Invoice {
	if inv == nil {
		return nil
	}
	clone := *inv
	clone.Amount = cloneBigInt(inv.Amount)
	clone.TotalTokens = cloneBigInt(inv.TotalTokens)
	clone.TokensSold = cloneBigInt(inv.TokensSold)
	clone.TokensRemaining = cloneBigInt(inv.TokensRemaining)
	clone.RepaymentReceived = cloneBigInt(inv.RepaymentReceived)
	clone.StartPrice = cloneBigInt(inv.StartPrice)
	clone.MinPrice = cloneBigInt(inv.MinPrice)
	return &clone
}

// TokenHolding records the balance one holder carries against an invoice.
// AcquiredPrice accumulates what the holder paid across primary investments
// and is the basis for insurance claims.
type TokenHolding struct {
	InvoiceID     [32]byte
	Holder        [20]byte
	Amount        *big.Int
	AcquiredAt    int64
	AcquiredPrice *big.Int
}

// Clone returns a deep copy of the holding.
func (h *TokenHolding) Clone() *TokenHolding {
	if h == nil {
		return nil
	}
	clone := *h
	clone.Amount = cloneBigInt(h.Amount)
	clone.AcquiredPrice = cloneBigInt(h.AcquiredPrice)
	return &clone
}

// DisputeResolution enumerates admin rulings on a dispute.
type DisputeResolution uint8

const (
	ResolutionPending DisputeResolution = iota
	ResolutionValid
	ResolutionInvalid
)

func (r DisputeResolution) String() string {
	switch r {
	case ResolutionPending:
		return "pending"
	case ResolutionValid:
		return "valid"
	case ResolutionInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("resolution(%d)", uint8(r))
	}
}

// Dispute records a buyer's challenge against an invoice and the eventual
// ruling. Disputes are never deleted.
type Dispute struct {
	InvoiceID  [32]byte
	RaisedBy   [20]byte
	Reason     string
	RaisedAt   int64
	Resolution DisputeResolution
	ResolvedAt int64
}

// Clone returns a copy of the dispute record.
func (d *Dispute) Clone() *Dispute {
	if d == nil {
		return nil
	}
	clone := *d
	return &clone
}

// OrderStatus enumerates the states of a secondary-market sell order.
type OrderStatus uint8

const (
	OrderStatusOpen OrderStatus = iota
	OrderStatusPartiallyFilled
	OrderStatusFilled
	OrderStatusCancelled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusOpen:
		return "open"
	case OrderStatusPartiallyFilled:
		return "partially_filled"
	case OrderStatusFilled:
		return "filled"
	case OrderStatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("order(%d)", uint8(s))
	}
}

// Active reports whether the order can still be filled.
func (s OrderStatus) Active() bool {
	return s == OrderStatusOpen || s == OrderStatusPartiallyFilled
}

// SellOrder is a resale listing on the secondary market. A listing reserves
// intent, not tokens: the seller's holding is checked at listing time but not
// locked, and fills re-validate the live balance.
type SellOrder struct {
	ID              [32]byte
	InvoiceID       [32]byte
	Seller          [20]byte
	TokenAmount     *big.Int
	PricePerToken   *big.Int
	TokensRemaining *big.Int
	CreatedAt       int64
	Status          OrderStatus
}

// Clone returns a deep copy of the order.
func (o *SellOrder) Clone() *SellOrder {
	if o == nil {
		return nil
	}
	clone := *o
	clone.TokenAmount = cloneBigInt(o.TokenAmount)
	clone.PricePerToken = cloneBigInt(o.PricePerToken)
	clone.TokensRemaining = cloneBigInt(o.TokensRemaining)
	return &clone
}

// NormalizeCurrency upper-cases and trims a currency tag. Tags are free-form
// but canonicalized so event payloads and queries compare equal.
func NormalizeCurrency(tag string) string {
	return strings.ToUpper(strings.TrimSpace(tag))
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
