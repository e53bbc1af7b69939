package invoice

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"invochain/core/types"
	"invochain/crypto"
)

const (
	TypeInvoiceCreated         = "invoice.created"
	TypeInvoiceVerified        = "invoice.verified"
	TypeAuctionStarted         = "invoice.auction.started"
	TypeAuctionEnded           = "invoice.auction.ended"
	TypeInvestmentMade         = "invoice.investment"
	TypeTokensTransferred      = "invoice.tokens.transferred"
	TypeInvoiceSettled         = "invoice.settled"
	TypeSettlementDistributed  = "invoice.settlement.distributed"
	TypeInvoiceOverdue         = "invoice.overdue"
	TypeInvoiceDefaulted       = "invoice.defaulted"
	TypeInvoiceRevoked         = "invoice.revoked"
	TypeDisputeRaised          = "invoice.dispute.raised"
	TypeDisputeResolved        = "invoice.dispute.resolved"
	TypeClawbackExecuted       = "invoice.clawback"
	TypeInsuranceClaimed       = "invoice.insurance.claimed"
	TypeOrderCreated           = "invoice.order.created"
	TypeOrderFilled            = "invoice.order.filled"
	TypeOrderCancelled         = "invoice.order.cancelled"
	TypeKYCUpdated             = "invoice.kyc.updated"
)

func idAttr(id [32]byte) string {
	return hex.EncodeToString(id[:])
}

func addrAttr(addr [20]byte) string {
	return crypto.NewAddress(addr).String()
}

func amountAttr(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// InvoiceCreated is emitted when a supplier originates a draft.
type InvoiceCreated struct {
	ID       [32]byte
	Supplier [20]byte
	Buyer    [20]byte
	Amount   *big.Int
	DueDate  int64
}

func (InvoiceCreated) EventType() string { return TypeInvoiceCreated }

func (e InvoiceCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeInvoiceCreated,
		Attributes: map[string]string{
			"id":       idAttr(e.ID),
			"supplier": addrAttr(e.Supplier),
			"buyer":    addrAttr(e.Buyer),
			"amount":   amountAttr(e.Amount),
			"dueDate":  strconv.FormatInt(e.DueDate, 10),
		},
	}
}

// InvoiceVerified is emitted when the buyer attests the invoice and tokens
// are minted.
type InvoiceVerified struct {
	ID          [32]byte
	Buyer       [20]byte
	TotalTokens *big.Int
}

func (InvoiceVerified) EventType() string { return TypeInvoiceVerified }

func (e InvoiceVerified) Event() *types.Event {
	return &types.Event{
		Type: TypeInvoiceVerified,
		Attributes: map[string]string{
			"id":          idAttr(e.ID),
			"buyer":       addrAttr(e.Buyer),
			"totalTokens": amountAttr(e.TotalTokens),
		},
	}
}

// AuctionStarted is emitted when the primary sale opens.
type AuctionStarted struct {
	ID         [32]byte
	AuctionEnd int64
	StartPrice *big.Int
	MinPrice   *big.Int
}

func (AuctionStarted) EventType() string { return TypeAuctionStarted }

func (e AuctionStarted) Event() *types.Event {
	return &types.Event{
		Type: TypeAuctionStarted,
		Attributes: map[string]string{
			"id":         idAttr(e.ID),
			"auctionEnd": strconv.FormatInt(e.AuctionEnd, 10),
			"startPrice": amountAttr(e.StartPrice),
			"minPrice":   amountAttr(e.MinPrice),
		},
	}
}

// AuctionEnded is emitted once the last token sells.
type AuctionEnded struct {
	ID           [32]byte
	ClosingPrice *big.Int
}

func (AuctionEnded) EventType() string { return TypeAuctionEnded }

func (e AuctionEnded) Event() *types.Event {
	return &types.Event{
		Type: TypeAuctionEnded,
		Attributes: map[string]string{
			"id":           idAttr(e.ID),
			"closingPrice": amountAttr(e.ClosingPrice),
		},
	}
}

// InvestmentMade is emitted for every primary-sale purchase.
type InvestmentMade struct {
	ID           [32]byte
	Investor     [20]byte
	TokenAmount  *big.Int
	Payment      *big.Int
	InsuranceCut *big.Int
}

func (InvestmentMade) EventType() string { return TypeInvestmentMade }

func (e InvestmentMade) Event() *types.Event {
	return &types.Event{
		Type: TypeInvestmentMade,
		Attributes: map[string]string{
			"id":           idAttr(e.ID),
			"investor":     addrAttr(e.Investor),
			"tokenAmount":  amountAttr(e.TokenAmount),
			"payment":      amountAttr(e.Payment),
			"insuranceCut": amountAttr(e.InsuranceCut),
		},
	}
}

// TokensTransferred is emitted on direct holder-to-holder transfers.
type TokensTransferred struct {
	ID     [32]byte
	From   [20]byte
	To     [20]byte
	Amount *big.Int
}

func (TokensTransferred) EventType() string { return TypeTokensTransferred }

func (e TokensTransferred) Event() *types.Event {
	return &types.Event{
		Type: TypeTokensTransferred,
		Attributes: map[string]string{
			"id":     idAttr(e.ID),
			"from":   addrAttr(e.From),
			"to":     addrAttr(e.To),
			"amount": amountAttr(e.Amount),
		},
	}
}

// InvoiceSettled is emitted when the buyer repays.
type InvoiceSettled struct {
	ID      [32]byte
	Payment *big.Int
}

func (InvoiceSettled) EventType() string { return TypeInvoiceSettled }

func (e InvoiceSettled) Event() *types.Event {
	return &types.Event{
		Type: TypeInvoiceSettled,
		Attributes: map[string]string{
			"id":      idAttr(e.ID),
			"payment": amountAttr(e.Payment),
		},
	}
}

// SettlementDistributed is emitted per holder paid during settlement.
type SettlementDistributed struct {
	ID     [32]byte
	Holder [20]byte
	Share  *big.Int
}

func (SettlementDistributed) EventType() string { return TypeSettlementDistributed }

func (e SettlementDistributed) Event() *types.Event {
	return &types.Event{
		Type: TypeSettlementDistributed,
		Attributes: map[string]string{
			"id":     idAttr(e.ID),
			"holder": addrAttr(e.Holder),
			"share":  amountAttr(e.Share),
		},
	}
}

// InvoiceOverdue is emitted when the due date passes without repayment.
type InvoiceOverdue struct {
	ID [32]byte
}

func (InvoiceOverdue) EventType() string { return TypeInvoiceOverdue }

func (e InvoiceOverdue) Event() *types.Event {
	return &types.Event{
		Type:       TypeInvoiceOverdue,
		Attributes: map[string]string{"id": idAttr(e.ID)},
	}
}

// InvoiceDefaulted is emitted when the grace period lapses.
type InvoiceDefaulted struct {
	ID [32]byte
}

func (InvoiceDefaulted) EventType() string { return TypeInvoiceDefaulted }

func (e InvoiceDefaulted) Event() *types.Event {
	return &types.Event{
		Type:       TypeInvoiceDefaulted,
		Attributes: map[string]string{"id": idAttr(e.ID)},
	}
}

// InvoiceRevoked is emitted when the supplier withdraws a stale invoice.
type InvoiceRevoked struct {
	ID [32]byte
}

func (InvoiceRevoked) EventType() string { return TypeInvoiceRevoked }

func (e InvoiceRevoked) Event() *types.Event {
	return &types.Event{
		Type:       TypeInvoiceRevoked,
		Attributes: map[string]string{"id": idAttr(e.ID)},
	}
}

// DisputeRaised is emitted when the buyer freezes the invoice.
type DisputeRaised struct {
	ID       [32]byte
	RaisedBy [20]byte
}

func (DisputeRaised) EventType() string { return TypeDisputeRaised }

func (e DisputeRaised) Event() *types.Event {
	return &types.Event{
		Type: TypeDisputeRaised,
		Attributes: map[string]string{
			"id":       idAttr(e.ID),
			"raisedBy": addrAttr(e.RaisedBy),
		},
	}
}

// DisputeResolved is emitted with the admin's ruling.
type DisputeResolved struct {
	ID    [32]byte
	Valid bool
}

func (DisputeResolved) EventType() string { return TypeDisputeResolved }

func (e DisputeResolved) Event() *types.Event {
	return &types.Event{
		Type: TypeDisputeResolved,
		Attributes: map[string]string{
			"id":    idAttr(e.ID),
			"valid": strconv.FormatBool(e.Valid),
		},
	}
}

// ClawbackExecuted is emitted per seized holding on a valid ruling.
type ClawbackExecuted struct {
	ID     [32]byte
	Holder [20]byte
	Amount *big.Int
}

func (ClawbackExecuted) EventType() string { return TypeClawbackExecuted }

func (e ClawbackExecuted) Event() *types.Event {
	return &types.Event{
		Type: TypeClawbackExecuted,
		Attributes: map[string]string{
			"id":     idAttr(e.ID),
			"holder": addrAttr(e.Holder),
			"amount": amountAttr(e.Amount),
		},
	}
}

// InsuranceClaimed is emitted on a successful default claim.
type InsuranceClaimed struct {
	ID       [32]byte
	Investor [20]byte
	Payout   *big.Int
}

func (InsuranceClaimed) EventType() string { return TypeInsuranceClaimed }

func (e InsuranceClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeInsuranceClaimed,
		Attributes: map[string]string{
			"id":       idAttr(e.ID),
			"investor": addrAttr(e.Investor),
			"payout":   amountAttr(e.Payout),
		},
	}
}

// OrderCreated is emitted for new secondary-market listings.
type OrderCreated struct {
	OrderID       [32]byte
	InvoiceID     [32]byte
	Seller        [20]byte
	TokenAmount   *big.Int
	PricePerToken *big.Int
}

func (OrderCreated) EventType() string { return TypeOrderCreated }

func (e OrderCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeOrderCreated,
		Attributes: map[string]string{
			"orderId":       idAttr(e.OrderID),
			"invoiceId":     idAttr(e.InvoiceID),
			"seller":        addrAttr(e.Seller),
			"tokenAmount":   amountAttr(e.TokenAmount),
			"pricePerToken": amountAttr(e.PricePerToken),
		},
	}
}

// OrderFilled is emitted per fill, partial or final.
type OrderFilled struct {
	OrderID     [32]byte
	Buyer       [20]byte
	TokenAmount *big.Int
	Payment     *big.Int
}

func (OrderFilled) EventType() string { return TypeOrderFilled }

func (e OrderFilled) Event() *types.Event {
	return &types.Event{
		Type: TypeOrderFilled,
		Attributes: map[string]string{
			"orderId":     idAttr(e.OrderID),
			"buyer":       addrAttr(e.Buyer),
			"tokenAmount": amountAttr(e.TokenAmount),
			"payment":     amountAttr(e.Payment),
		},
	}
}

// OrderCancelled is emitted when a seller withdraws a listing.
type OrderCancelled struct {
	OrderID [32]byte
}

func (OrderCancelled) EventType() string { return TypeOrderCancelled }

func (e OrderCancelled) Event() *types.Event {
	return &types.Event{
		Type:       TypeOrderCancelled,
		Attributes: map[string]string{"orderId": idAttr(e.OrderID)},
	}
}

// KYCUpdated is emitted when the admin flips an investor's allow-list flag.
type KYCUpdated struct {
	Investor [20]byte
	Approved bool
}

func (KYCUpdated) EventType() string { return TypeKYCUpdated }

func (e KYCUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeKYCUpdated,
		Attributes: map[string]string{
			"investor": addrAttr(e.Investor),
			"approved": strconv.FormatBool(e.Approved),
		},
	}
}
