package invoice

import "errors"

var (
	errNilState    = errors.New("invoice engine: state not configured")
	errNilPayments = errors.New("invoice engine: payment ledger not configured")

	// ErrAlreadyInitialized is returned when initialize is called twice.
	ErrAlreadyInitialized = errors.New("invoice: already initialized")
	// ErrNotInitialized is returned when an operation runs before initialize.
	ErrNotInitialized = errors.New("invoice: not initialized")
	// ErrUnauthorized is returned when the caller may not perform the action.
	ErrUnauthorized = errors.New("invoice: unauthorized caller")
	// ErrInvoiceNotFound is returned when no invoice exists for the id.
	ErrInvoiceNotFound = errors.New("invoice: not found")
	// ErrInvoiceExists is returned when minting collides with a stored invoice.
	ErrInvoiceExists = errors.New("invoice: identifier already exists")
	// ErrInvalidStatus is returned when the lifecycle guard rejects the
	// operation for the invoice's current status.
	ErrInvalidStatus = errors.New("invoice: invalid status for operation")
	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("invoice: amount must be positive")
	// ErrSelfTransfer is returned when a token transfer or order fill names
	// the same party on both sides.
	ErrSelfTransfer = errors.New("invoice: cannot transfer to self")
	// ErrInvalidAuctionParams is returned for malformed auction inputs.
	ErrInvalidAuctionParams = errors.New("invoice: invalid auction parameters")
	// ErrInsufficientTokens is returned when a holding cannot cover a debit.
	ErrInsufficientTokens = errors.New("invoice: insufficient tokens")
	// ErrInsufficientPayment is returned when a settlement payment is below
	// the required principal plus interest.
	ErrInsufficientPayment = errors.New("invoice: insufficient payment")
	// ErrInsufficientFunds is returned when the payment ledger cannot cover a
	// transfer.
	ErrInsufficientFunds = errors.New("invoice: insufficient funds")
	// ErrInsufficientInsurancePool is returned when a default claim would pay
	// out nothing.
	ErrInsufficientInsurancePool = errors.New("invoice: insufficient insurance pool")
	// ErrKYCRequired is returned when an investor is not on the allow-list.
	ErrKYCRequired = errors.New("invoice: investor KYC not approved")
	// ErrInvoiceDisputed is returned when settlement is attempted on a frozen
	// invoice.
	ErrInvoiceDisputed = errors.New("invoice: currently disputed")
	// ErrCannotRevoke is returned when revocation is not permitted in the
	// current state.
	ErrCannotRevoke = errors.New("invoice: cannot revoke in current state")
	// ErrDisputeNotFound is returned when no dispute exists for the invoice.
	ErrDisputeNotFound = errors.New("invoice: dispute not found")
	// ErrHoldingNotFound is returned when no holding exists for the pair.
	ErrHoldingNotFound = errors.New("invoice: holding not found")
	// ErrAuctionNotStarted is returned when price is queried before an
	// auction has begun.
	ErrAuctionNotStarted = errors.New("invoice: auction not started")
	// ErrNotDefaulted is returned when an insurance claim targets an invoice
	// that has not defaulted.
	ErrNotDefaulted = errors.New("invoice: not defaulted")
	// ErrAlreadyClaimed is returned on a repeat insurance claim.
	ErrAlreadyClaimed = errors.New("invoice: insurance already claimed")
	// ErrOrderNotFound is returned when no sell order exists for the id.
	ErrOrderNotFound = errors.New("invoice: order not found")
	// ErrOrderNotActive is returned when filling a cancelled or filled order.
	ErrOrderNotActive = errors.New("invoice: order not active")
	// ErrOrderAlreadyFilled is returned when cancelling a filled order.
	ErrOrderAlreadyFilled = errors.New("invoice: order already filled")
)
