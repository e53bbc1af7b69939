package invoice

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"invochain/core/events"
)

// engineState is the narrow view of persistent state the engine depends on.
// Implementations must keep the per-invoice holder set and order index in
// sync with holding and order writes.
type engineState interface {
	InvoicePut(*Invoice) error
	InvoiceGet(id [32]byte) (*Invoice, bool, error)

	HoldingPut(*TokenHolding) error
	HoldingGet(id [32]byte, holder [20]byte) (*TokenHolding, bool, error)
	HoldingDelete(id [32]byte, holder [20]byte) error
	HolderList(id [32]byte) ([][20]byte, error)

	DisputePut(*Dispute) error
	DisputeGet(id [32]byte) (*Dispute, bool, error)

	OrderPut(*SellOrder) error
	OrderGet(id [32]byte) (*SellOrder, bool, error)
	OrderIDsByInvoice(id [32]byte) ([][32]byte, error)
	OrderIndexAppend(invoiceID, orderID [32]byte) error

	KYCApproved(addr [20]byte) (bool, error)
	KYCSet(addr [20]byte, approved bool) error

	InsurancePool() (*big.Int, error)
	InsurancePoolSet(*big.Int) error
	InsuranceClaimed(id [32]byte, holder [20]byte) (bool, error)
	InsuranceClaimMark(id [32]byte, holder [20]byte) error

	RateConfigGet() (RateConfig, bool, error)
	RateConfigPut(RateConfig) error
	AdminGet() ([20]byte, bool, error)
	AdminSet([20]byte) error
	PaymentAssetGet() (string, bool, error)
	PaymentAssetSet(string) error
}

// PaymentLedger is the external fungible-value store the platform settles
// against. A failed transfer must leave both balances untouched and aborts
// the surrounding operation.
type PaymentLedger interface {
	Transfer(from, to [20]byte, amount *big.Int) error
}

// Engine wires the invoice lifecycle business logic with external state, the
// payment ledger and event emitters. Operations run one at a time against
// serialized state; the engine performs all guards and external transfers
// before writing, so a failed call leaves no partial mutation behind.
type Engine struct {
	state    engineState
	payments PaymentLedger
	emitter  events.Emitter
	vault    [20]byte
	nowFn    func() int64
}

// NewEngine creates an invoice engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPayments configures the payment-asset ledger collaborator.
func (e *Engine) SetPayments(ledger PaymentLedger) { e.payments = ledger }

// SetVault configures the address holding in-flight settlement money and the
// insurance pool backing funds.
func (e *Engine) SetVault(addr [20]byte) { e.vault = addr }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) loadInvoice(id [32]byte) (*Invoice, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	inv, ok, err := e.state.InvoiceGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	return inv, nil
}

func (e *Engine) storeInvoice(inv *Invoice) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return e.state.InvoicePut(inv)
}

func (e *Engine) rateConfig() (RateConfig, error) {
	if e == nil || e.state == nil {
		return RateConfig{}, errNilState
	}
	cfg, ok, err := e.state.RateConfigGet()
	if err != nil {
		return RateConfig{}, err
	}
	if !ok {
		return DefaultRateConfig(), nil
	}
	return cfg, nil
}

func (e *Engine) transferFunds(from, to [20]byte, amount *big.Int) error {
	if e == nil || e.payments == nil {
		return errNilPayments
	}
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return ErrInvalidAmount
	}
	return e.payments.Transfer(from, to, amt)
}

// InvoiceID derives the deterministic identifier for an invoice from its
// parties, document hash and a caller-supplied nonce. No counter state is
// consulted, so identical definitions map to the same id.
func InvoiceID(supplier, buyer [20]byte, documentHash string, nonce uint64) [32]byte {
	var nonceBuf [8]byte
	binary.BigEndian.PutUint64(nonceBuf[:], nonce)
	return ethcrypto.Keccak256Hash(supplier[:], buyer[:], []byte(documentHash), nonceBuf[:])
}

// OrderID derives the deterministic identifier for a sell order.
func OrderID(invoiceID [32]byte, seller [20]byte, nonce uint64) [32]byte {
	var nonceBuf [8]byte
	binary.BigEndian.PutUint64(nonceBuf[:], nonce)
	return ethcrypto.Keccak256Hash(invoiceID[:], seller[:], nonceBuf[:])
}

func tokenSymbol(id [32]byte) string {
	return fmt.Sprintf("INV-%X", id[:2])
}

// Initialize stores the platform administrator and rate configuration. It
// may only run once.
func (e *Engine) Initialize(admin [20]byte, paymentAsset string, cfg RateConfig) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if _, ok, err := e.state.AdminGet(); err != nil {
		return err
	} else if ok {
		return ErrAlreadyInitialized
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAuctionParams, err)
	}
	if err := e.state.AdminSet(admin); err != nil {
		return err
	}
	if err := e.state.PaymentAssetSet(NormalizeCurrency(paymentAsset)); err != nil {
		return err
	}
	return e.state.RateConfigPut(cfg)
}

func (e *Engine) requireAdmin(caller [20]byte) error {
	admin, ok, err := e.state.AdminGet()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotInitialized
	}
	if admin != caller {
		return ErrUnauthorized
	}
	return nil
}

// MintDraft originates an invoice in Draft with all token fields zero. The
// caller is the supplier; the nonce disambiguates otherwise identical
// definitions.
func (e *Engine) MintDraft(supplier, buyer [20]byte, amount *big.Int, currency string, dueDate int64, description, purchaseOrder, documentHash string, nonce uint64) ([32]byte, error) {
	if e == nil || e.state == nil {
		return [32]byte{}, errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return [32]byte{}, ErrInvalidAmount
	}
	id := InvoiceID(supplier, buyer, documentHash, nonce)
	if _, ok, err := e.state.InvoiceGet(id); err != nil {
		return [32]byte{}, err
	} else if ok {
		return [32]byte{}, ErrInvoiceExists
	}
	now := e.now()
	inv := &Invoice{
		ID:                id,
		Supplier:          supplier,
		Buyer:             buyer,
		Amount:            amt,
		Currency:          NormalizeCurrency(currency),
		CreatedAt:         now,
		DueDate:           dueDate,
		Status:            StatusDraft,
		TotalTokens:       big.NewInt(0),
		TokensSold:        big.NewInt(0),
		TokensRemaining:   big.NewInt(0),
		Description:       description,
		PurchaseOrder:     purchaseOrder,
		DocumentHash:      documentHash,
		RepaymentReceived: big.NewInt(0),
	}
	if err := e.storeInvoice(inv); err != nil {
		return [32]byte{}, err
	}
	e.emit(InvoiceCreated{ID: id, Supplier: supplier, Buyer: buyer, Amount: amt, DueDate: dueDate})
	return id, nil
}

// Approve records the buyer's attestation: the invoice becomes Verified,
// tokens are minted 1:1 with the face amount and the supplier holds the full
// mint.
func (e *Engine) Approve(id [32]byte, caller [20]byte) error {
	inv, err := e.loadInvoice(id)
	if err != nil {
		return err
	}
	if inv.Buyer != caller {
		return ErrUnauthorized
	}
	if err := guardStatus(opApprove, inv.Status); err != nil {
		return err
	}
	now := e.now()
	inv.Status = StatusVerified
	inv.VerifiedAt = now
	inv.BuyerSignedAt = now
	inv.TokenSymbol = tokenSymbol(id)
	inv.TotalTokens = cloneBigInt(inv.Amount)
	inv.TokensSold = big.NewInt(0)
	inv.TokensRemaining = cloneBigInt(inv.Amount)
	holding := &TokenHolding{
		InvoiceID:     id,
		Holder:        inv.Supplier,
		Amount:        cloneBigInt(inv.TotalTokens),
		AcquiredAt:    now,
		AcquiredPrice: cloneBigInt(inv.Amount),
	}
	if err := e.state.HoldingPut(holding); err != nil {
		return err
	}
	if err := e.storeInvoice(inv); err != nil {
		return err
	}
	e.emit(InvoiceVerified{ID: id, Buyer: caller, TotalTokens: inv.TotalTokens})
	return nil
}

// CheckStatus advances overdue and defaulted invoices based on the current
// time. It is idempotent and callable by anyone; the platform has no timers,
// so default detection relies on this being polled.
func (e *Engine) CheckStatus(id [32]byte) (InvoiceStatus, error) {
	inv, err := e.loadInvoice(id)
	if err != nil {
		return 0, err
	}
	if guardStatus(opCheckStatus, inv.Status) != nil {
		return inv.Status, nil
	}
	if inv.RepaymentReceived != nil && inv.RepaymentReceived.Sign() > 0 {
		return inv.Status, nil
	}
	cfg, err := e.rateConfig()
	if err != nil {
		return 0, err
	}
	now := e.now()
	gracePeriod := int64(cfg.GracePeriodDays) * secondsPerDay
	switch {
	case now > inv.DueDate+gracePeriod:
		inv.Status = StatusDefaulted
		if err := e.storeInvoice(inv); err != nil {
			return 0, err
		}
		e.emit(InvoiceDefaulted{ID: id})
	case now > inv.DueDate && inv.Status != StatusOverdue:
		inv.Status = StatusOverdue
		if err := e.storeInvoice(inv); err != nil {
			return 0, err
		}
		e.emit(InvoiceOverdue{ID: id})
	}
	return inv.Status, nil
}

// Revoke withdraws a stale invoice. Permitted from Draft at any time, and
// from Verified once the due date has passed. All holdings are cleared.
func (e *Engine) Revoke(id [32]byte, caller [20]byte) error {
	inv, err := e.loadInvoice(id)
	if err != nil {
		return err
	}
	if inv.Supplier != caller {
		return ErrUnauthorized
	}
	if !canRevoke(inv.Status, e.now(), inv.DueDate) {
		return ErrCannotRevoke
	}
	if err := e.clearHoldings(id, nil); err != nil {
		return err
	}
	inv.Status = StatusRevoked
	if err := e.storeInvoice(inv); err != nil {
		return err
	}
	e.emit(InvoiceRevoked{ID: id})
	return nil
}

// clearHoldings deletes every holding for the invoice. When onRemove is
// non-nil it runs for each holding before deletion.
func (e *Engine) clearHoldings(id [32]byte, onRemove func(*TokenHolding) error) error {
	holders, err := e.state.HolderList(id)
	if err != nil {
		return err
	}
	for _, holder := range holders {
		holding, ok, err := e.state.HoldingGet(id, holder)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if onRemove != nil {
			if err := onRemove(holding); err != nil {
				return err
			}
		}
		if err := e.state.HoldingDelete(id, holder); err != nil {
			return err
		}
	}
	return nil
}

// SetInvestorKYC flips an investor's allow-list flag. Admin only.
func (e *Engine) SetInvestorKYC(caller, investor [20]byte, approved bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.state.KYCSet(investor, approved); err != nil {
		return err
	}
	e.emit(KYCUpdated{Investor: investor, Approved: approved})
	return nil
}

// IsKYCApproved reports whether the investor is on the allow-list.
func (e *Engine) IsKYCApproved(investor [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.state.KYCApproved(investor)
}

// Invoice returns a copy of the stored invoice.
func (e *Engine) Invoice(id [32]byte) (*Invoice, error) {
	inv, err := e.loadInvoice(id)
	if err != nil {
		return nil, err
	}
	return inv.Clone(), nil
}

// Holding returns a copy of the holding for the (invoice, holder) pair.
func (e *Engine) Holding(id [32]byte, holder [20]byte) (*TokenHolding, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	holding, ok, err := e.state.HoldingGet(id, holder)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHoldingNotFound
	}
	return holding.Clone(), nil
}

// AvailableTokens returns the unsold token balance of the invoice.
func (e *Engine) AvailableTokens(id [32]byte) (*big.Int, error) {
	inv, err := e.loadInvoice(id)
	if err != nil {
		return nil, err
	}
	return cloneBigInt(inv.TokensRemaining), nil
}

// VerifyDocument reports whether the supplied hash matches the invoice's
// stored document hash.
func (e *Engine) VerifyDocument(id [32]byte, documentHash string) bool {
	inv, err := e.loadInvoice(id)
	if err != nil {
		return false
	}
	return inv.DocumentHash == documentHash
}
