package state

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"invochain/core/types"
	"invochain/native/invoice"
	"invochain/storage"
)

// Key layout. Everything is namespaced by a short prefix so a raw dump of the
// store stays readable.
const (
	prefixInvoice        = "invoice/"
	prefixHolding        = "holding/"
	prefixHolders        = "holders/"
	prefixDispute        = "dispute/"
	prefixOrder          = "order/"
	prefixOrdersByInv    = "orders/"
	prefixKYC            = "kyc/"
	prefixInsuranceClaim = "insclaim/"
	prefixAccount        = "acct/"

	keyInsurancePool = "insurance/pool"
	keyRateConfig    = "config/rates"
	keyAdmin         = "config/admin"
	keyPaymentAsset  = "config/asset"
)

var errNilRecord = errors.New("state: nil record")

// Manager persists platform state in a key-value store using JSON-encoded
// records. It implements both the invoice engine's state backend and its
// payment ledger; a single mutex serializes mutations, matching the engine's
// one-operation-at-a-time model.
type Manager struct {
	mu sync.Mutex
	db storage.Database
}

// NewManager wraps the given database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func invoiceKey(id [32]byte) []byte {
	return []byte(prefixInvoice + hex.EncodeToString(id[:]))
}

func holdingKey(id [32]byte, holder [20]byte) []byte {
	return []byte(prefixHolding + hex.EncodeToString(id[:]) + "/" + hex.EncodeToString(holder[:]))
}

func holdersKey(id [32]byte) []byte {
	return []byte(prefixHolders + hex.EncodeToString(id[:]))
}

func disputeKey(id [32]byte) []byte {
	return []byte(prefixDispute + hex.EncodeToString(id[:]))
}

func orderKey(id [32]byte) []byte {
	return []byte(prefixOrder + hex.EncodeToString(id[:]))
}

func ordersByInvoiceKey(id [32]byte) []byte {
	return []byte(prefixOrdersByInv + hex.EncodeToString(id[:]))
}

func kycKey(addr [20]byte) []byte {
	return []byte(prefixKYC + hex.EncodeToString(addr[:]))
}

func insuranceClaimKey(id [32]byte, holder [20]byte) []byte {
	return []byte(prefixInsuranceClaim + hex.EncodeToString(id[:]) + "/" + hex.EncodeToString(holder[:]))
}

func accountKey(addr [20]byte) []byte {
	return []byte(prefixAccount + hex.EncodeToString(addr[:]))
}

func (m *Manager) getJSON(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

func (m *Manager) putJSON(key []byte, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.db.Put(key, raw)
}

// --- invoices ---

func (m *Manager) InvoicePut(inv *invoice.Invoice) error {
	if inv == nil {
		return errNilRecord
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON(invoiceKey(inv.ID), inv)
}

func (m *Manager) InvoiceGet(id [32]byte) (*invoice.Invoice, bool, error) {
	inv := new(invoice.Invoice)
	ok, err := m.getJSON(invoiceKey(id), inv)
	if err != nil || !ok {
		return nil, false, err
	}
	return inv, true, nil
}

// --- holdings and the holder index ---

func (m *Manager) HoldingPut(h *invoice.TokenHolding) error {
	if h == nil {
		return errNilRecord
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.putJSON(holdingKey(h.InvoiceID, h.Holder), h); err != nil {
		return err
	}
	return m.holderIndexAdd(h.InvoiceID, h.Holder)
}

func (m *Manager) HoldingGet(id [32]byte, holder [20]byte) (*invoice.TokenHolding, bool, error) {
	h := new(invoice.TokenHolding)
	ok, err := m.getJSON(holdingKey(id, holder), h)
	if err != nil || !ok {
		return nil, false, err
	}
	return h, true, nil
}

func (m *Manager) HoldingDelete(id [32]byte, holder [20]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.db.Delete(holdingKey(id, holder)); err != nil {
		return err
	}
	return m.holderIndexRemove(id, holder)
}

// HolderList returns the invoice's holders sorted by address bytes. The index
// is maintained on every holding write so iteration order is deterministic.
func (m *Manager) HolderList(id [32]byte) ([][20]byte, error) {
	hexes, err := m.holderIndex(id)
	if err != nil {
		return nil, err
	}
	out := make([][20]byte, 0, len(hexes))
	for _, h := range hexes {
		raw, err := hex.DecodeString(h)
		if err != nil || len(raw) != 20 {
			return nil, fmt.Errorf("state: corrupt holder index entry %q", h)
		}
		var addr [20]byte
		copy(addr[:], raw)
		out = append(out, addr)
	}
	return out, nil
}

func (m *Manager) holderIndex(id [32]byte) ([]string, error) {
	var hexes []string
	if _, err := m.getJSON(holdersKey(id), &hexes); err != nil {
		return nil, err
	}
	return hexes, nil
}

func (m *Manager) holderIndexAdd(id [32]byte, holder [20]byte) error {
	hexes, err := m.holderIndex(id)
	if err != nil {
		return err
	}
	entry := hex.EncodeToString(holder[:])
	i := sort.SearchStrings(hexes, entry)
	if i < len(hexes) && hexes[i] == entry {
		return nil
	}
	hexes = append(hexes, "")
	copy(hexes[i+1:], hexes[i:])
	hexes[i] = entry
	return m.putJSON(holdersKey(id), hexes)
}

func (m *Manager) holderIndexRemove(id [32]byte, holder [20]byte) error {
	hexes, err := m.holderIndex(id)
	if err != nil {
		return err
	}
	entry := hex.EncodeToString(holder[:])
	i := sort.SearchStrings(hexes, entry)
	if i >= len(hexes) || hexes[i] != entry {
		return nil
	}
	hexes = append(hexes[:i], hexes[i+1:]...)
	if len(hexes) == 0 {
		return m.db.Delete(holdersKey(id))
	}
	return m.putJSON(holdersKey(id), hexes)
}

// --- disputes ---

func (m *Manager) DisputePut(d *invoice.Dispute) error {
	if d == nil {
		return errNilRecord
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON(disputeKey(d.InvoiceID), d)
}

func (m *Manager) DisputeGet(id [32]byte) (*invoice.Dispute, bool, error) {
	d := new(invoice.Dispute)
	ok, err := m.getJSON(disputeKey(id), d)
	if err != nil || !ok {
		return nil, false, err
	}
	return d, true, nil
}

// --- sell orders and the per-invoice order index ---

func (m *Manager) OrderPut(o *invoice.SellOrder) error {
	if o == nil {
		return errNilRecord
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON(orderKey(o.ID), o)
}

func (m *Manager) OrderGet(id [32]byte) (*invoice.SellOrder, bool, error) {
	o := new(invoice.SellOrder)
	ok, err := m.getJSON(orderKey(id), o)
	if err != nil || !ok {
		return nil, false, err
	}
	return o, true, nil
}

func (m *Manager) OrderIDsByInvoice(id [32]byte) ([][32]byte, error) {
	var hexes []string
	if _, err := m.getJSON(ordersByInvoiceKey(id), &hexes); err != nil {
		return nil, err
	}
	out := make([][32]byte, 0, len(hexes))
	for _, h := range hexes {
		raw, err := hex.DecodeString(h)
		if err != nil || len(raw) != 32 {
			return nil, fmt.Errorf("state: corrupt order index entry %q", h)
		}
		var oid [32]byte
		copy(oid[:], raw)
		out = append(out, oid)
	}
	return out, nil
}

// OrderIndexAppend records a new order id against its invoice. Entries keep
// creation order; the index is append-only because orders are never deleted.
func (m *Manager) OrderIndexAppend(invoiceID, orderID [32]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var hexes []string
	if _, err := m.getJSON(ordersByInvoiceKey(invoiceID), &hexes); err != nil {
		return err
	}
	entry := hex.EncodeToString(orderID[:])
	for _, existing := range hexes {
		if existing == entry {
			return nil
		}
	}
	hexes = append(hexes, entry)
	return m.putJSON(ordersByInvoiceKey(invoiceID), hexes)
}

// --- KYC allow-list ---

func (m *Manager) KYCApproved(addr [20]byte) (bool, error) {
	return m.db.Has(kycKey(addr))
}

func (m *Manager) KYCSet(addr [20]byte, approved bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if approved {
		return m.db.Put(kycKey(addr), []byte{1})
	}
	return m.db.Delete(kycKey(addr))
}

// --- insurance pool ---

func (m *Manager) InsurancePool() (*big.Int, error) {
	raw, err := m.db.Get([]byte(keyInsurancePool))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	pool, ok := new(big.Int).SetString(string(raw), 10)
	if !ok {
		return nil, fmt.Errorf("state: corrupt insurance pool value %q", raw)
	}
	return pool, nil
}

func (m *Manager) InsurancePoolSet(v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return fmt.Errorf("state: invalid insurance pool value")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Put([]byte(keyInsurancePool), []byte(v.String()))
}

func (m *Manager) InsuranceClaimed(id [32]byte, holder [20]byte) (bool, error) {
	return m.db.Has(insuranceClaimKey(id, holder))
}

func (m *Manager) InsuranceClaimMark(id [32]byte, holder [20]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Put(insuranceClaimKey(id, holder), []byte{1})
}

// --- platform configuration ---

func (m *Manager) RateConfigGet() (invoice.RateConfig, bool, error) {
	var cfg invoice.RateConfig
	ok, err := m.getJSON([]byte(keyRateConfig), &cfg)
	if err != nil || !ok {
		return invoice.RateConfig{}, false, err
	}
	return cfg, true, nil
}

func (m *Manager) RateConfigPut(cfg invoice.RateConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON([]byte(keyRateConfig), cfg)
}

func (m *Manager) AdminGet() ([20]byte, bool, error) {
	raw, err := m.db.Get([]byte(keyAdmin))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return [20]byte{}, false, nil
		}
		return [20]byte{}, false, err
	}
	if len(raw) != 20 {
		return [20]byte{}, false, fmt.Errorf("state: corrupt admin record")
	}
	var addr [20]byte
	copy(addr[:], raw)
	return addr, true, nil
}

func (m *Manager) AdminSet(addr [20]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Put([]byte(keyAdmin), append([]byte(nil), addr[:]...))
}

func (m *Manager) PaymentAssetGet() (string, bool, error) {
	raw, err := m.db.Get([]byte(keyPaymentAsset))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(raw), true, nil
}

func (m *Manager) PaymentAssetSet(asset string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Put([]byte(keyPaymentAsset), []byte(asset))
}

// --- payment-asset accounts ---

func (m *Manager) account(addr [20]byte) (*types.Account, error) {
	acc := new(types.Account)
	ok, err := m.getJSON(accountKey(addr), acc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.EnsureAccount(nil), nil
	}
	return types.EnsureAccount(acc), nil
}

// Balance returns the payment-asset balance of the address. Unknown addresses
// hold zero.
func (m *Manager) Balance(addr [20]byte) (*big.Int, error) {
	acc, err := m.account(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.Balance), nil
}

// SetBalance overwrites the balance of the address. Used only for genesis
// allocations.
func (m *Manager) SetBalance(addr [20]byte, balance *big.Int) error {
	if balance == nil || balance.Sign() < 0 {
		return fmt.Errorf("state: invalid balance")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON(accountKey(addr), &types.Account{Balance: new(big.Int).Set(balance)})
}

// Transfer moves the payment asset between accounts. A short source balance
// fails the whole call with no partial debit, which is what the engine relies
// on to keep operations atomic.
func (m *Manager) Transfer(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: invalid transfer amount")
	}
	if amount.Sign() == 0 || bytes.Equal(from[:], to[:]) {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	src, err := m.account(from)
	if err != nil {
		return err
	}
	if src.Balance.Cmp(amount) < 0 {
		return invoice.ErrInsufficientFunds
	}
	dst, err := m.account(to)
	if err != nil {
		return err
	}
	src.Balance = new(big.Int).Sub(src.Balance, amount)
	dst.Balance = new(big.Int).Add(dst.Balance, amount)
	if err := m.putJSON(accountKey(from), src); err != nil {
		return err
	}
	return m.putJSON(accountKey(to), dst)
}
