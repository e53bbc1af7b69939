package invoice_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"invochain/native/invoice"
)

func TestTransferTokens(t *testing.T) {
	f := newFixture(t)
	id := f.fundedInvoice()

	require.ErrorIs(t, f.engine.TransferTokens(id, investorA, investorB, big.NewInt(0)), invoice.ErrInvalidAmount)
	require.ErrorIs(t, f.engine.TransferTokens(id, investorA, investorB, big.NewInt(300_001)), invoice.ErrInsufficientTokens)
	require.ErrorIs(t, f.engine.TransferTokens(id, outsider, investorB, big.NewInt(1)), invoice.ErrInsufficientTokens)

	require.NoError(t, f.engine.TransferTokens(id, investorA, investorB, big.NewInt(120_000)))

	a, err := f.engine.Holding(id, investorA)
	require.NoError(t, err)
	require.Equal(t, int64(180_000), a.Amount.Int64())
	b, err := f.engine.Holding(id, investorB)
	require.NoError(t, err)
	require.Equal(t, int64(820_000), b.Amount.Int64())

	// Draining a holding removes it entirely.
	require.NoError(t, f.engine.TransferTokens(id, investorA, investorB, big.NewInt(180_000)))
	_, err = f.engine.Holding(id, investorA)
	require.ErrorIs(t, err, invoice.ErrHoldingNotFound)
}

func TestTransferTokensRejectsSelfTransfer(t *testing.T) {
	f := newFixture(t)
	id := f.fundedInvoice()

	err := f.engine.TransferTokens(id, investorA, investorA, big.NewInt(100_000))
	require.ErrorIs(t, err, invoice.ErrSelfTransfer)

	// A self-transfer must never mint: the holding is exactly as before.
	a, err := f.engine.Holding(id, investorA)
	require.NoError(t, err)
	require.Equal(t, int64(300_000), a.Amount.Int64())
}

func TestTransferTokensToNewHolderInheritsCostBasis(t *testing.T) {
	f := newFixture(t)
	id := f.fundedInvoice()

	require.NoError(t, f.engine.TransferTokens(id, investorA, outsider, big.NewInt(50_000)))
	h, err := f.engine.Holding(id, outsider)
	require.NoError(t, err)
	require.Equal(t, int64(50_000), h.Amount.Int64())
	// New holdings carry over the source's accumulated acquisition price.
	require.Equal(t, int64(298_500), h.AcquiredPrice.Int64())
}

func TestTransferTokensRespectsLifecycle(t *testing.T) {
	f := newFixture(t)
	id := f.fundedInvoice()
	f.fund(buyerAddr, 2_000_000)
	f.now = baseTime + 60*day
	require.NoError(t, f.engine.Settle(id, buyerAddr, big.NewInt(1_100_000)))

	err := f.engine.TransferTokens(id, investorA, investorB, big.NewInt(1))
	require.ErrorIs(t, err, invoice.ErrInvalidStatus)
}

func TestCreateSellOrder(t *testing.T) {
	f := newFixture(t)
	id := f.fundedInvoice()

	_, err := f.engine.CreateSellOrder(id, investorA, big.NewInt(0), big.NewInt(1), 1)
	require.ErrorIs(t, err, invoice.ErrInvalidAmount)
	_, err = f.engine.CreateSellOrder(id, investorA, big.NewInt(100), big.NewInt(0), 1)
	require.ErrorIs(t, err, invoice.ErrInvalidAmount)
	_, err = f.engine.CreateSellOrder(id, outsider, big.NewInt(100), big.NewInt(1), 1)
	require.ErrorIs(t, err, invoice.ErrHoldingNotFound)
	_, err = f.engine.CreateSellOrder(id, investorA, big.NewInt(300_001), big.NewInt(1), 1)
	require.ErrorIs(t, err, invoice.ErrInsufficientTokens)

	orderID, err := f.engine.CreateSellOrder(id, investorA, big.NewInt(100_000), big.NewInt(1), 1)
	require.NoError(t, err)
	require.Equal(t, invoice.OrderID(id, investorA, 1), orderID)

	order, err := f.engine.Order(orderID)
	require.NoError(t, err)
	require.Equal(t, invoice.OrderStatusOpen, order.Status)
	require.Equal(t, int64(100_000), order.TokensRemaining.Int64())

	// Reusing the nonce collides with the stored order.
	_, err = f.engine.CreateSellOrder(id, investorA, big.NewInt(50_000), big.NewInt(1), 1)
	require.ErrorIs(t, err, invoice.ErrOrderNotActive)

	open, err := f.engine.OpenOrders(id)
	require.NoError(t, err)
	require.Len(t, open, 1)
}

func TestFillOrder(t *testing.T) {
	f := newFixture(t)
	id := f.fundedInvoice()
	orderID, err := f.engine.CreateSellOrder(id, investorA, big.NewInt(100_000), big.NewInt(1), 1)
	require.NoError(t, err)

	require.ErrorIs(t, f.engine.FillOrder(orderID, outsider, big.NewInt(10_000)), invoice.ErrKYCRequired)
	require.ErrorIs(t, f.engine.FillOrder([32]byte{0xff}, investorB, big.NewInt(10_000)), invoice.ErrOrderNotFound)
	require.ErrorIs(t, f.engine.FillOrder(orderID, investorB, big.NewInt(100_001)), invoice.ErrInsufficientTokens)

	sellerBefore := f.balance(investorA)
	buyerBefore := f.balance(investorB)

	// Partial fill: payment flows straight from buyer to seller.
	require.NoError(t, f.engine.FillOrder(orderID, investorB, big.NewInt(40_000)))
	require.Equal(t, sellerBefore+40_000, f.balance(investorA))
	require.Equal(t, buyerBefore-40_000, f.balance(investorB))

	order, err := f.engine.Order(orderID)
	require.NoError(t, err)
	require.Equal(t, invoice.OrderStatusPartiallyFilled, order.Status)
	require.Equal(t, int64(60_000), order.TokensRemaining.Int64())

	a, err := f.engine.Holding(id, investorA)
	require.NoError(t, err)
	require.Equal(t, int64(260_000), a.Amount.Int64())
	b, err := f.engine.Holding(id, investorB)
	require.NoError(t, err)
	require.Equal(t, int64(740_000), b.Amount.Int64())

	// Completing the order closes it.
	require.NoError(t, f.engine.FillOrder(orderID, investorB, big.NewInt(60_000)))
	order, err = f.engine.Order(orderID)
	require.NoError(t, err)
	require.Equal(t, invoice.OrderStatusFilled, order.Status)

	require.ErrorIs(t, f.engine.FillOrder(orderID, investorB, big.NewInt(1)), invoice.ErrOrderNotActive)
	require.ErrorIs(t, f.engine.CancelOrder(orderID, investorA), invoice.ErrOrderAlreadyFilled)

	open, err := f.engine.OpenOrders(id)
	require.NoError(t, err)
	require.Empty(t, open)
}

func TestFillOrderRevalidatesSellerHolding(t *testing.T) {
	f := newFixture(t)
	id := f.fundedInvoice()
	orderID, err := f.engine.CreateSellOrder(id, investorA, big.NewInt(200_000), big.NewInt(1), 1)
	require.NoError(t, err)

	// The listing reserved intent, not tokens: the seller moves most of the
	// holding away after listing.
	require.NoError(t, f.engine.TransferTokens(id, investorA, investorB, big.NewInt(290_000)))

	err = f.engine.FillOrder(orderID, investorB, big.NewInt(50_000))
	require.ErrorIs(t, err, invoice.ErrInsufficientTokens)

	// A fill the live balance still covers goes through.
	require.NoError(t, f.engine.FillOrder(orderID, investorB, big.NewInt(10_000)))
}

func TestFillOrderRejectsSelfFill(t *testing.T) {
	f := newFixture(t)
	id := f.fundedInvoice()
	orderID, err := f.engine.CreateSellOrder(id, investorA, big.NewInt(200_000), big.NewInt(1), 1)
	require.NoError(t, err)

	balanceBefore := f.balance(investorA)
	require.ErrorIs(t, f.engine.FillOrder(orderID, investorA, big.NewInt(200_000)), invoice.ErrSelfTransfer)

	// Buying your own listing moves nothing: holding, balance and the order
	// are all untouched.
	a, err := f.engine.Holding(id, investorA)
	require.NoError(t, err)
	require.Equal(t, int64(300_000), a.Amount.Int64())
	require.Equal(t, balanceBefore, f.balance(investorA))

	order, err := f.engine.Order(orderID)
	require.NoError(t, err)
	require.Equal(t, invoice.OrderStatusOpen, order.Status)
	require.Equal(t, int64(200_000), order.TokensRemaining.Int64())
}

func TestTokenSupplyConservedAcrossSecondaryMarket(t *testing.T) {
	f := newFixture(t)
	id := f.fundedInvoice()

	require.NoError(t, f.engine.TransferTokens(id, investorA, investorB, big.NewInt(120_000)))

	orderID, err := f.engine.CreateSellOrder(id, investorB, big.NewInt(500_000), big.NewInt(2), 1)
	require.NoError(t, err)
	f.approveKYC(outsider)
	f.fund(outsider, 1_000_000)
	require.NoError(t, f.engine.FillOrder(orderID, outsider, big.NewInt(200_000)))
	require.NoError(t, f.engine.FillOrder(orderID, investorA, big.NewInt(100_000)))

	// However tokens move on the secondary market, the holdings always sum
	// back to the minted supply.
	inv := f.invoice(id)
	holders, err := f.state.HolderList(id)
	require.NoError(t, err)
	require.Len(t, holders, 3)
	total := new(big.Int)
	for _, holder := range holders {
		h, ok, err := f.state.HoldingGet(id, holder)
		require.NoError(t, err)
		require.True(t, ok)
		total.Add(total, h.Amount)
	}
	require.Equal(t, inv.TotalTokens.Int64(), total.Int64())
	require.Equal(t, inv.TokensSold.Int64(), total.Int64())
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t)
	id := f.fundedInvoice()
	orderID, err := f.engine.CreateSellOrder(id, investorA, big.NewInt(100_000), big.NewInt(2), 7)
	require.NoError(t, err)

	require.ErrorIs(t, f.engine.CancelOrder([32]byte{0xff}, investorA), invoice.ErrOrderNotFound)
	require.ErrorIs(t, f.engine.CancelOrder(orderID, investorB), invoice.ErrUnauthorized)

	require.NoError(t, f.engine.CancelOrder(orderID, investorA))
	order, err := f.engine.Order(orderID)
	require.NoError(t, err)
	require.Equal(t, invoice.OrderStatusCancelled, order.Status)

	require.ErrorIs(t, f.engine.FillOrder(orderID, investorB, big.NewInt(1)), invoice.ErrOrderNotActive)

	// Partially filled orders can still be cancelled; prior fills stand.
	orderID2, err := f.engine.CreateSellOrder(id, investorA, big.NewInt(100_000), big.NewInt(1), 8)
	require.NoError(t, err)
	require.NoError(t, f.engine.FillOrder(orderID2, investorB, big.NewInt(30_000)))
	require.NoError(t, f.engine.CancelOrder(orderID2, investorA))

	b, err := f.engine.Holding(id, investorB)
	require.NoError(t, err)
	require.Equal(t, int64(730_000), b.Amount.Int64())
}

func TestOpenOrdersFiltersInactive(t *testing.T) {
	f := newFixture(t)
	id := f.fundedInvoice()

	o1, err := f.engine.CreateSellOrder(id, investorA, big.NewInt(10_000), big.NewInt(1), 1)
	require.NoError(t, err)
	o2, err := f.engine.CreateSellOrder(id, investorA, big.NewInt(20_000), big.NewInt(1), 2)
	require.NoError(t, err)
	o3, err := f.engine.CreateSellOrder(id, investorB, big.NewInt(30_000), big.NewInt(1), 1)
	require.NoError(t, err)

	require.NoError(t, f.engine.CancelOrder(o2, investorA))
	require.NoError(t, f.engine.FillOrder(o3, investorA, big.NewInt(30_000)))

	open, err := f.engine.OpenOrders(id)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, o1, open[0].ID)
}
