package invoice_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"invochain/native/invoice"
)

func TestSettlementAmountAccruesSimpleInterest(t *testing.T) {
	f := newFixture(t)
	id := f.fundedInvoice() // created at baseTime, due at +90d

	// 60 days at the 10% base rate: 1,000,000 * 1000 * 60 / (10000*365).
	f.now = baseTime + 60*day
	required, err := f.engine.SettlementAmount(id)
	require.NoError(t, err)
	require.Equal(t, int64(1_016_438), required.Int64())

	// Past due the 24% penalty rate replaces the base rate for the whole
	// accrual, not just the overdue stretch.
	f.now = baseTime + 100*day
	required, err = f.engine.SettlementAmount(id)
	require.NoError(t, err)
	require.Equal(t, int64(1_065_753), required.Int64())
}

func TestSettleDistributesProRata(t *testing.T) {
	f := newFixture(t)
	id := f.fundedInvoice()
	f.fund(buyerAddr, 2_000_000)
	f.now = baseTime + 60*day

	require.ErrorIs(t, f.engine.Settle(id, supplierAddr, big.NewInt(1_016_438)), invoice.ErrUnauthorized)
	require.ErrorIs(t, f.engine.Settle(id, buyerAddr, big.NewInt(1_016_437)), invoice.ErrInsufficientPayment)

	balanceABefore := f.balance(investorA)
	balanceBBefore := f.balance(investorB)

	require.NoError(t, f.engine.Settle(id, buyerAddr, big.NewInt(1_016_438)))

	inv := f.invoice(id)
	require.Equal(t, invoice.StatusSettled, inv.Status)
	require.Equal(t, int64(1_016_438), inv.RepaymentReceived.Int64())
	require.Equal(t, f.now, inv.SettledAt)

	// floor(300,000 * 1,016,438 / 1,000,000) and the 700,000 counterpart.
	require.Equal(t, balanceABefore+304_931, f.balance(investorA))
	require.Equal(t, balanceBBefore+711_506, f.balance(investorB))
	require.Equal(t, int64(2_000_000-1_016_438), f.balance(buyerAddr))

	// One unit of rounding dust stays in the vault on top of the withheld
	// insurance cuts (14,925 + 34,825).
	require.Equal(t, int64(49_751), f.balance(vaultAddr))

	// Holdings are burned as they are paid out.
	_, err := f.engine.Holding(id, investorA)
	require.ErrorIs(t, err, invoice.ErrHoldingNotFound)
	_, err = f.engine.Holding(id, investorB)
	require.ErrorIs(t, err, invoice.ErrHoldingNotFound)

	// Settled is terminal.
	require.ErrorIs(t, f.engine.Settle(id, buyerAddr, big.NewInt(2_000_000)), invoice.ErrInvalidStatus)
}

func TestSettleRejectsUnderfundedBuyer(t *testing.T) {
	f := newFixture(t)
	id := f.fundedInvoice()
	f.fund(buyerAddr, 100)
	f.now = baseTime + 60*day

	err := f.engine.Settle(id, buyerAddr, big.NewInt(1_016_438))
	require.ErrorIs(t, err, invoice.ErrInsufficientFunds)
	require.Equal(t, invoice.StatusFunded, f.invoice(id).Status)
}

func TestDisputeFreezesSettlement(t *testing.T) {
	f := newFixture(t)
	id := f.fundedInvoice()
	f.fund(buyerAddr, 2_000_000)

	require.ErrorIs(t, f.engine.RaiseDispute(id, supplierAddr, "goods never arrived"), invoice.ErrUnauthorized)
	require.NoError(t, f.engine.RaiseDispute(id, buyerAddr, "goods never arrived"))
	require.Equal(t, invoice.StatusDisputed, f.invoice(id).Status)

	dispute, err := f.engine.Dispute(id)
	require.NoError(t, err)
	require.Equal(t, buyerAddr, dispute.RaisedBy)
	require.Equal(t, invoice.ResolutionPending, dispute.Resolution)

	require.ErrorIs(t, f.engine.Settle(id, buyerAddr, big.NewInt(2_000_000)), invoice.ErrInvoiceDisputed)
	require.ErrorIs(t, f.engine.Invest(id, investorA, big.NewInt(1)), invoice.ErrInvalidStatus)
	require.ErrorIs(t, f.engine.RaiseDispute(id, buyerAddr, "again"), invoice.ErrInvalidStatus)
}

func TestResolveDisputeInvalidUnfreezes(t *testing.T) {
	f := newFixture(t)
	id := f.fundedInvoice()
	require.NoError(t, f.engine.RaiseDispute(id, buyerAddr, "short shipment"))

	require.ErrorIs(t, f.engine.ResolveDispute(id, buyerAddr, false), invoice.ErrUnauthorized)

	require.NoError(t, f.engine.ResolveDispute(id, adminAddr, false))
	require.Equal(t, invoice.StatusFunded, f.invoice(id).Status)

	dispute, err := f.engine.Dispute(id)
	require.NoError(t, err)
	require.Equal(t, invoice.ResolutionInvalid, dispute.Resolution)
	require.Equal(t, f.now, dispute.ResolvedAt)

	// Holdings survived the ruling.
	holding, err := f.engine.Holding(id, investorA)
	require.NoError(t, err)
	require.Equal(t, int64(300_000), holding.Amount.Int64())

	require.ErrorIs(t, f.engine.ResolveDispute(id, adminAddr, false), invoice.ErrInvalidStatus)
}

func TestResolveDisputeValidExecutesClawback(t *testing.T) {
	f := newFixture(t)
	id := f.fundedInvoice()
	require.NoError(t, f.engine.RaiseDispute(id, buyerAddr, "forged invoice"))

	balanceA := f.balance(investorA)
	balanceB := f.balance(investorB)
	pool, err := f.engine.InsurancePoolBalance()
	require.NoError(t, err)

	require.NoError(t, f.engine.ResolveDispute(id, adminAddr, true))
	require.Equal(t, invoice.StatusClawedBack, f.invoice(id).Status)

	// Seizure is uncompensated: no payouts, pool untouched.
	require.Equal(t, balanceA, f.balance(investorA))
	require.Equal(t, balanceB, f.balance(investorB))
	poolAfter, err := f.engine.InsurancePoolBalance()
	require.NoError(t, err)
	require.Equal(t, pool.Int64(), poolAfter.Int64())

	_, err = f.engine.Holding(id, investorA)
	require.ErrorIs(t, err, invoice.ErrHoldingNotFound)
	_, err = f.engine.Holding(id, investorB)
	require.ErrorIs(t, err, invoice.ErrHoldingNotFound)

	clawbacks := 0
	for _, evt := range f.emitter.Events() {
		if evt.EventType() == invoice.TypeClawbackExecuted {
			clawbacks++
		}
	}
	require.Equal(t, 2, clawbacks)
}

func defaultInvoice(f *fixture) [32]byte {
	f.t.Helper()
	id := f.fundedInvoice()
	f.now = baseTime + 121*day
	status, err := f.engine.CheckStatus(id)
	require.NoError(f.t, err)
	require.Equal(f.t, invoice.StatusDefaulted, status)
	return id
}

func TestClaimInsurance(t *testing.T) {
	f := newFixture(t)

	t.Run("requires default", func(t *testing.T) {
		id := f.mintVerified(baseTime + 90*day)
		_, err := f.engine.ClaimInsurance(id, investorA)
		require.ErrorIs(t, err, invoice.ErrNotDefaulted)
	})

	id := defaultInvoice(f)

	t.Run("requires a holding", func(t *testing.T) {
		_, err := f.engine.ClaimInsurance(id, outsider)
		require.ErrorIs(t, err, invoice.ErrHoldingNotFound)
	})

	t.Run("half of cost basis capped at the pool", func(t *testing.T) {
		// investorA paid 298,500, so the claim is 149,250, but the pool
		// only holds the two withheld cuts: 14,925 + 34,825 = 49,750.
		before := f.balance(investorA)
		payout, err := f.engine.ClaimInsurance(id, investorA)
		require.NoError(t, err)
		require.Equal(t, int64(49_750), payout.Int64())
		require.Equal(t, before+49_750, f.balance(investorA))

		pool, err := f.engine.InsurancePoolBalance()
		require.NoError(t, err)
		require.Zero(t, pool.Sign())
	})

	t.Run("one claim per holder", func(t *testing.T) {
		_, err := f.engine.ClaimInsurance(id, investorA)
		require.ErrorIs(t, err, invoice.ErrAlreadyClaimed)
	})

	t.Run("empty pool pays nothing", func(t *testing.T) {
		_, err := f.engine.ClaimInsurance(id, investorB)
		require.ErrorIs(t, err, invoice.ErrInsufficientInsurancePool)
	})
}

func TestClaimInsuranceFullClaimWhenPoolCovers(t *testing.T) {
	f := newFixture(t)
	id := defaultInvoice(f)

	// Top the pool up past investorA's claim of 149,250 and back it with
	// vault funds so the payout can actually move.
	require.NoError(t, f.state.InsurancePoolSet(big.NewInt(500_000)))
	f.fund(vaultAddr, 500_000)

	payout, err := f.engine.ClaimInsurance(id, investorA)
	require.NoError(t, err)
	require.Equal(t, int64(149_250), payout.Int64())

	pool, err := f.engine.InsurancePoolBalance()
	require.NoError(t, err)
	require.Equal(t, int64(350_750), pool.Int64())
}

func TestClaimInsuranceVaultShortfallLeavesPoolIntact(t *testing.T) {
	f := newFixture(t)
	id := defaultInvoice(f)

	// Drain the vault so the payout transfer cannot move.
	f.fund(vaultAddr, 0)

	_, err := f.engine.ClaimInsurance(id, investorA)
	require.ErrorIs(t, err, invoice.ErrInsufficientFunds)

	// The failed payout debits nothing and consumes no claim.
	pool, err := f.engine.InsurancePoolBalance()
	require.NoError(t, err)
	require.Equal(t, int64(49_750), pool.Int64())

	f.fund(vaultAddr, 49_750)
	payout, err := f.engine.ClaimInsurance(id, investorA)
	require.NoError(t, err)
	require.Equal(t, int64(49_750), payout.Int64())
}
