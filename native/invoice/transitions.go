package invoice

// operation identifies a guarded lifecycle action. Status guards live in one
// transition table instead of being re-derived inside every handler, so the
// allowed-status sets cannot drift between operations.
type operation uint8

const (
	opApprove operation = iota
	opStartAuction
	opInvest
	opTransferTokens
	opSettle
	opRaiseDispute
	opResolveDispute
	opCheckStatus
)

var allowedStatuses = map[operation][]InvoiceStatus{
	opApprove:        {StatusDraft},
	opStartAuction:   {StatusVerified},
	opInvest:         {StatusVerified, StatusFunding},
	opTransferTokens: {StatusVerified, StatusFunding, StatusFunded},
	opSettle:         {StatusVerified, StatusFunding, StatusFunded, StatusOverdue},
	opRaiseDispute:   {StatusVerified, StatusFunding, StatusFunded, StatusOverdue},
	opResolveDispute: {StatusDisputed},
	opCheckStatus:    {StatusVerified, StatusFunding, StatusFunded, StatusOverdue},
}

// guardStatus validates the invoice's current status against the transition
// table. Settlement against a disputed invoice reports the freeze
// explicitly; every other mismatch is an InvalidStatus failure.
func guardStatus(op operation, status InvoiceStatus) error {
	for _, allowed := range allowedStatuses[op] {
		if status == allowed {
			return nil
		}
	}
	if op == opSettle && status == StatusDisputed {
		return ErrInvoiceDisputed
	}
	return ErrInvalidStatus
}

// canRevoke reports whether a supplier may withdraw the invoice: always from
// Draft, and from Verified only once the due date has passed.
func canRevoke(status InvoiceStatus, now, dueDate int64) bool {
	switch status {
	case StatusDraft:
		return true
	case StatusVerified:
		return now > dueDate
	default:
		return false
	}
}
