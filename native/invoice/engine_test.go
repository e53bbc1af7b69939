package invoice_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"invochain/native/invoice"
)

func TestInitializeOnce(t *testing.T) {
	f := newBareFixture(t)
	require.NoError(t, f.engine.Initialize(adminAddr, "usd", invoice.DefaultRateConfig()))
	err := f.engine.Initialize(adminAddr, "usd", invoice.DefaultRateConfig())
	require.ErrorIs(t, err, invoice.ErrAlreadyInitialized)
}

func TestInitializeRejectsBadConfig(t *testing.T) {
	f := newBareFixture(t)
	cfg := invoice.DefaultRateConfig()
	cfg.InsuranceCutBps = 20_000
	err := f.engine.Initialize(adminAddr, "usd", cfg)
	require.ErrorIs(t, err, invoice.ErrInvalidAuctionParams)
}

func TestKYCRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	err := f.engine.SetInvestorKYC(outsider, investorA, true)
	require.ErrorIs(t, err, invoice.ErrUnauthorized)

	f.approveKYC(investorA)
	approved, err := f.engine.IsKYCApproved(investorA)
	require.NoError(t, err)
	require.True(t, approved)

	require.NoError(t, f.engine.SetInvestorKYC(adminAddr, investorA, false))
	approved, err = f.engine.IsKYCApproved(investorA)
	require.NoError(t, err)
	require.False(t, approved)
}

func TestMintDraft(t *testing.T) {
	f := newFixture(t)
	dueDate := baseTime + 90*day
	id, err := f.engine.MintDraft(supplierAddr, buyerAddr, big.NewInt(1_000_000), "usd", dueDate, "Q3 parts shipment", "PO-1187", "8f4e1c", 1)
	require.NoError(t, err)
	require.Equal(t, invoice.InvoiceID(supplierAddr, buyerAddr, "8f4e1c", 1), id)

	inv := f.invoice(id)
	require.Equal(t, invoice.StatusDraft, inv.Status)
	require.Equal(t, "USD", inv.Currency)
	require.Equal(t, baseTime, inv.CreatedAt)
	require.Zero(t, inv.TotalTokens.Sign())
	require.Zero(t, inv.TokensSold.Sign())
	require.Zero(t, inv.TokensRemaining.Sign())

	// Same definition, same id: the collision is rejected.
	_, err = f.engine.MintDraft(supplierAddr, buyerAddr, big.NewInt(1_000_000), "usd", dueDate, "Q3 parts shipment", "PO-1187", "8f4e1c", 1)
	require.ErrorIs(t, err, invoice.ErrInvoiceExists)

	// A different nonce disambiguates otherwise identical invoices.
	id2, err := f.engine.MintDraft(supplierAddr, buyerAddr, big.NewInt(1_000_000), "usd", dueDate, "Q3 parts shipment", "PO-1187", "8f4e1c", 2)
	require.NoError(t, err)
	require.NotEqual(t, id, id2)

	_, err = f.engine.MintDraft(supplierAddr, buyerAddr, big.NewInt(0), "usd", dueDate, "", "", "8f4e1c", 3)
	require.ErrorIs(t, err, invoice.ErrInvalidAmount)
}

func TestApproveMintsTokens(t *testing.T) {
	f := newFixture(t)
	dueDate := baseTime + 90*day
	id, err := f.engine.MintDraft(supplierAddr, buyerAddr, big.NewInt(1_000_000), "usd", dueDate, "", "", "8f4e1c", 1)
	require.NoError(t, err)

	require.ErrorIs(t, f.engine.Approve(id, supplierAddr), invoice.ErrUnauthorized)

	require.NoError(t, f.engine.Approve(id, buyerAddr))
	inv := f.invoice(id)
	require.Equal(t, invoice.StatusVerified, inv.Status)
	require.Equal(t, int64(1_000_000), inv.TotalTokens.Int64())
	require.Equal(t, int64(1_000_000), inv.TokensRemaining.Int64())
	require.NotEmpty(t, inv.TokenSymbol)

	holding, err := f.engine.Holding(id, supplierAddr)
	require.NoError(t, err)
	require.Equal(t, int64(1_000_000), holding.Amount.Int64())
	require.Equal(t, int64(1_000_000), holding.AcquiredPrice.Int64())

	available, err := f.engine.AvailableTokens(id)
	require.NoError(t, err)
	require.Equal(t, int64(1_000_000), available.Int64())

	require.ErrorIs(t, f.engine.Approve(id, buyerAddr), invoice.ErrInvalidStatus)
}

func TestVerifyDocument(t *testing.T) {
	f := newFixture(t)
	id := f.mintVerified(baseTime + 90*day)
	require.True(t, f.engine.VerifyDocument(id, "8f4e1c"))
	require.False(t, f.engine.VerifyDocument(id, "deadbeef"))
	require.False(t, f.engine.VerifyDocument([32]byte{0xff}, "8f4e1c"))
}

func TestRevoke(t *testing.T) {
	f := newFixture(t)
	dueDate := baseTime + 90*day

	t.Run("draft revocable immediately", func(t *testing.T) {
		id, err := f.engine.MintDraft(supplierAddr, buyerAddr, big.NewInt(5_000), "usd", dueDate, "", "", "aa01", 1)
		require.NoError(t, err)
		require.ErrorIs(t, f.engine.Revoke(id, buyerAddr), invoice.ErrUnauthorized)
		require.NoError(t, f.engine.Revoke(id, supplierAddr))
		require.Equal(t, invoice.StatusRevoked, f.invoice(id).Status)
	})

	t.Run("verified only after due date", func(t *testing.T) {
		id := f.mintVerified(dueDate)
		require.ErrorIs(t, f.engine.Revoke(id, supplierAddr), invoice.ErrCannotRevoke)

		f.advance(91 * day)
		require.NoError(t, f.engine.Revoke(id, supplierAddr))
		require.Equal(t, invoice.StatusRevoked, f.invoice(id).Status)
		_, err := f.engine.Holding(id, supplierAddr)
		require.ErrorIs(t, err, invoice.ErrHoldingNotFound)
	})
}

func TestCheckStatusLifecycle(t *testing.T) {
	f := newFixture(t)
	id := f.fundedInvoice() // due at baseTime+90d, grace 30d

	status, err := f.engine.CheckStatus(id)
	require.NoError(t, err)
	require.Equal(t, invoice.StatusFunded, status)

	f.now = baseTime + 91*day
	status, err = f.engine.CheckStatus(id)
	require.NoError(t, err)
	require.Equal(t, invoice.StatusOverdue, status)

	// Idempotent while overdue.
	status, err = f.engine.CheckStatus(id)
	require.NoError(t, err)
	require.Equal(t, invoice.StatusOverdue, status)

	f.now = baseTime + 121*day
	status, err = f.engine.CheckStatus(id)
	require.NoError(t, err)
	require.Equal(t, invoice.StatusDefaulted, status)

	// Terminal states are left alone.
	status, err = f.engine.CheckStatus(id)
	require.NoError(t, err)
	require.Equal(t, invoice.StatusDefaulted, status)
}

func TestCheckStatusIgnoresDrafts(t *testing.T) {
	f := newFixture(t)
	id, err := f.engine.MintDraft(supplierAddr, buyerAddr, big.NewInt(5_000), "usd", baseTime+day, "", "", "aa02", 1)
	require.NoError(t, err)

	f.now = baseTime + 400*day
	status, err := f.engine.CheckStatus(id)
	require.NoError(t, err)
	require.Equal(t, invoice.StatusDraft, status)
}
