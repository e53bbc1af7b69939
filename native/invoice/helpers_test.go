package invoice_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"invochain/core/events"
	"invochain/core/state"
	"invochain/native/invoice"
	"invochain/storage"
)

const (
	baseTime = int64(1_700_000_000)
	hour     = int64(3_600)
	day      = int64(86_400)
)

var (
	adminAddr    = testAddr(0x01)
	supplierAddr = testAddr(0x02)
	buyerAddr    = testAddr(0x03)
	investorA    = testAddr(0x04)
	investorB    = testAddr(0x05)
	outsider     = testAddr(0x06)
	vaultAddr    = testAddr(0xfe)
)

func testAddr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

type fixture struct {
	t       *testing.T
	engine  *invoice.Engine
	state   *state.Manager
	emitter *events.MemoryEmitter
	now     int64
	nonce   uint64
}

// newBareFixture wires an engine against fresh in-memory state without
// initializing the platform.
func newBareFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, now: baseTime}
	f.state = state.NewManager(storage.NewMemDB())
	f.emitter = events.NewMemoryEmitter(0)
	f.engine = invoice.NewEngine()
	f.engine.SetState(f.state)
	f.engine.SetPayments(f.state)
	f.engine.SetVault(vaultAddr)
	f.engine.SetEmitter(f.emitter)
	f.engine.SetNowFunc(func() int64 { return f.now })
	return f
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := newBareFixture(t)
	require.NoError(t, f.engine.Initialize(adminAddr, "usd", invoice.DefaultRateConfig()))
	return f
}

func (f *fixture) advance(seconds int64) { f.now += seconds }

func (f *fixture) fund(addr [20]byte, amount int64) {
	f.t.Helper()
	require.NoError(f.t, f.state.SetBalance(addr, big.NewInt(amount)))
}

func (f *fixture) balance(addr [20]byte) int64 {
	f.t.Helper()
	bal, err := f.state.Balance(addr)
	require.NoError(f.t, err)
	return bal.Int64()
}

func (f *fixture) approveKYC(addr [20]byte) {
	f.t.Helper()
	require.NoError(f.t, f.engine.SetInvestorKYC(adminAddr, addr, true))
}

func (f *fixture) invoice(id [32]byte) *invoice.Invoice {
	f.t.Helper()
	inv, err := f.engine.Invoice(id)
	require.NoError(f.t, err)
	return inv
}

// mintVerified originates a 1,000,000 face-value invoice and has the buyer
// attest it. Each call uses a fresh nonce so ids never collide within a test.
func (f *fixture) mintVerified(dueDate int64) [32]byte {
	f.t.Helper()
	f.nonce++
	id, err := f.engine.MintDraft(supplierAddr, buyerAddr, big.NewInt(1_000_000), "USD", dueDate, "Q3 parts shipment", "PO-1187", "8f4e1c", f.nonce)
	require.NoError(f.t, err)
	require.NoError(f.t, f.engine.Approve(id, buyerAddr))
	return id
}

// fundedInvoice drives an invoice due at baseTime+90d through a 24h auction
// with a 10% discount cap until fully funded:
//
//	t+1h, unit price 995,000 of face 1,000,000
//	investorA buys 300,000 tokens, payment 298,500, insurance cut 14,925
//	investorB buys 700,000 tokens, payment 696,500, insurance cut 34,825
//
// Both investors start with 1,000,000 of the payment asset. The pool holds
// 49,750 afterwards and the clock sits at baseTime+1h.
func (f *fixture) fundedInvoice() [32]byte {
	f.t.Helper()
	id := f.mintVerified(baseTime + 90*day)
	require.NoError(f.t, f.engine.StartAuction(id, supplierAddr, 24, 1_000))
	f.approveKYC(investorA)
	f.approveKYC(investorB)
	f.fund(investorA, 1_000_000)
	f.fund(investorB, 1_000_000)
	f.advance(hour)
	require.NoError(f.t, f.engine.Invest(id, investorA, big.NewInt(300_000)))
	require.NoError(f.t, f.engine.Invest(id, investorB, big.NewInt(700_000)))
	return id
}
