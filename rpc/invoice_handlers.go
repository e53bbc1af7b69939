package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"invochain/core/types"
	"invochain/crypto"
	"invochain/native/invoice"
)

func (s *Server) routes() map[string]methodSpec {
	return map[string]methodSpec{
		"invoice_mintDraft":       {handler: s.handleMintDraft, requiresAuth: true},
		"invoice_approve":         {handler: s.handleApprove, requiresAuth: true},
		"invoice_startAuction":    {handler: s.handleStartAuction, requiresAuth: true},
		"invoice_invest":          {handler: s.handleInvest, requiresAuth: true},
		"invoice_transferTokens":  {handler: s.handleTransferTokens, requiresAuth: true},
		"invoice_createSellOrder": {handler: s.handleCreateSellOrder, requiresAuth: true},
		"invoice_fillOrder":       {handler: s.handleFillOrder, requiresAuth: true},
		"invoice_cancelOrder":     {handler: s.handleCancelOrder, requiresAuth: true},
		"invoice_settle":          {handler: s.handleSettle, requiresAuth: true},
		"invoice_raiseDispute":    {handler: s.handleRaiseDispute, requiresAuth: true},
		"invoice_resolveDispute":  {handler: s.handleResolveDispute, requiresAuth: true},
		"invoice_revoke":          {handler: s.handleRevoke, requiresAuth: true},
		"invoice_claimInsurance":  {handler: s.handleClaimInsurance, requiresAuth: true},
		"invoice_setInvestorKYC":  {handler: s.handleSetInvestorKYC, requiresAuth: true},

		"invoice_get":                 {handler: s.handleGet},
		"invoice_getCurrentPrice":     {handler: s.handleGetCurrentPrice},
		"invoice_getSettlementAmount": {handler: s.handleGetSettlementAmount},
		"invoice_getHolding":          {handler: s.handleGetHolding},
		"invoice_getAvailableTokens":  {handler: s.handleGetAvailableTokens},
		"invoice_getDispute":          {handler: s.handleGetDispute},
		"invoice_getOrder":            {handler: s.handleGetOrder},
		"invoice_getOpenOrders":       {handler: s.handleGetOpenOrders},
		"invoice_getInsurancePool":    {handler: s.handleGetInsurancePool},
		"invoice_isKYCApproved":       {handler: s.handleIsKYCApproved},
		"invoice_verifyDocument":      {handler: s.handleVerifyDocument},
		"invoice_checkStatus":         {handler: s.handleCheckStatus},
		"invoice_getBalance":          {handler: s.handleGetBalance},
		"invoice_getRecentEvents":     {handler: s.handleGetRecentEvents},
	}
}

// --- parameter plumbing ---

func decodeParams(params []json.RawMessage, out interface{}) *RPCError {
	if len(params) != 1 {
		return invalidParams("exactly one parameter object expected")
	}
	if err := json.Unmarshal(params[0], out); err != nil {
		return invalidParams(err.Error())
	}
	return nil
}

func parseAddressParam(value, field string) ([20]byte, *RPCError) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, invalidParams(fmt.Sprintf("%s: %v", field, err))
	}
	return addr.Bytes(), nil
}

func parseIDParam(value, field string) ([32]byte, *RPCError) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil || len(raw) != 32 {
		return [32]byte{}, invalidParams(fmt.Sprintf("%s must be a 32-byte hex identifier", field))
	}
	var id [32]byte
	copy(id[:], raw)
	return id, nil
}

func parseAmountParam(value, field string) (*big.Int, *RPCError) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, invalidParams(fmt.Sprintf("%s must be a decimal integer", field))
	}
	if amount.Sign() <= 0 {
		return nil, invalidParams(fmt.Sprintf("%s must be positive", field))
	}
	return amount, nil
}

func formatID(id [32]byte) string {
	return hex.EncodeToString(id[:])
}

func formatAddress(addr [20]byte) string {
	return crypto.NewAddress(addr).String()
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// --- JSON views ---

type auctionJSON struct {
	Start            int64  `json:"start"`
	End              int64  `json:"end"`
	StartPrice       string `json:"startPrice"`
	MinPrice         string `json:"minPrice"`
	PriceDropRateBps uint32 `json:"priceDropRateBps"`
}

type invoiceJSON struct {
	ID                string       `json:"id"`
	Supplier          string       `json:"supplier"`
	Buyer             string       `json:"buyer"`
	Amount            string       `json:"amount"`
	Currency          string       `json:"currency"`
	CreatedAt         int64        `json:"createdAt"`
	DueDate           int64        `json:"dueDate"`
	VerifiedAt        int64        `json:"verifiedAt,omitempty"`
	SettledAt         int64        `json:"settledAt,omitempty"`
	Status            string       `json:"status"`
	TokenSymbol       string       `json:"tokenSymbol,omitempty"`
	TotalTokens       string       `json:"totalTokens"`
	TokensSold        string       `json:"tokensSold"`
	TokensRemaining   string       `json:"tokensRemaining"`
	Description       string       `json:"description,omitempty"`
	PurchaseOrder     string       `json:"purchaseOrder,omitempty"`
	DocumentHash      string       `json:"documentHash,omitempty"`
	RepaymentReceived string       `json:"repaymentReceived"`
	Auction           *auctionJSON `json:"auction,omitempty"`
}

func invoiceView(inv *invoice.Invoice) invoiceJSON {
	view := invoiceJSON{
		ID:                formatID(inv.ID),
		Supplier:          formatAddress(inv.Supplier),
		Buyer:             formatAddress(inv.Buyer),
		Amount:            formatAmount(inv.Amount),
		Currency:          inv.Currency,
		CreatedAt:         inv.CreatedAt,
		DueDate:           inv.DueDate,
		VerifiedAt:        inv.VerifiedAt,
		SettledAt:         inv.SettledAt,
		Status:            inv.Status.String(),
		TokenSymbol:       inv.TokenSymbol,
		TotalTokens:       formatAmount(inv.TotalTokens),
		TokensSold:        formatAmount(inv.TokensSold),
		TokensRemaining:   formatAmount(inv.TokensRemaining),
		Description:       inv.Description,
		PurchaseOrder:     inv.PurchaseOrder,
		DocumentHash:      inv.DocumentHash,
		RepaymentReceived: formatAmount(inv.RepaymentReceived),
	}
	if inv.AuctionStart != 0 {
		view.Auction = &auctionJSON{
			Start:            inv.AuctionStart,
			End:              inv.AuctionEnd,
			StartPrice:       formatAmount(inv.StartPrice),
			MinPrice:         formatAmount(inv.MinPrice),
			PriceDropRateBps: inv.PriceDropRateBps,
		}
	}
	return view
}

type holdingJSON struct {
	InvoiceID     string `json:"invoiceId"`
	Holder        string `json:"holder"`
	Amount        string `json:"amount"`
	AcquiredAt    int64  `json:"acquiredAt"`
	AcquiredPrice string `json:"acquiredPrice"`
}

func holdingView(h *invoice.TokenHolding) holdingJSON {
	return holdingJSON{
		InvoiceID:     formatID(h.InvoiceID),
		Holder:        formatAddress(h.Holder),
		Amount:        formatAmount(h.Amount),
		AcquiredAt:    h.AcquiredAt,
		AcquiredPrice: formatAmount(h.AcquiredPrice),
	}
}

type disputeJSON struct {
	InvoiceID  string `json:"invoiceId"`
	RaisedBy   string `json:"raisedBy"`
	Reason     string `json:"reason"`
	RaisedAt   int64  `json:"raisedAt"`
	Resolution string `json:"resolution"`
	ResolvedAt int64  `json:"resolvedAt,omitempty"`
}

func disputeView(d *invoice.Dispute) disputeJSON {
	return disputeJSON{
		InvoiceID:  formatID(d.InvoiceID),
		RaisedBy:   formatAddress(d.RaisedBy),
		Reason:     d.Reason,
		RaisedAt:   d.RaisedAt,
		Resolution: d.Resolution.String(),
		ResolvedAt: d.ResolvedAt,
	}
}

type orderJSON struct {
	ID              string `json:"id"`
	InvoiceID       string `json:"invoiceId"`
	Seller          string `json:"seller"`
	TokenAmount     string `json:"tokenAmount"`
	PricePerToken   string `json:"pricePerToken"`
	TokensRemaining string `json:"tokensRemaining"`
	CreatedAt       int64  `json:"createdAt"`
	Status          string `json:"status"`
}

func orderView(o *invoice.SellOrder) orderJSON {
	return orderJSON{
		ID:              formatID(o.ID),
		InvoiceID:       formatID(o.InvoiceID),
		Seller:          formatAddress(o.Seller),
		TokenAmount:     formatAmount(o.TokenAmount),
		PricePerToken:   formatAmount(o.PricePerToken),
		TokensRemaining: formatAmount(o.TokensRemaining),
		CreatedAt:       o.CreatedAt,
		Status:          o.Status.String(),
	}
}

// --- mutating handlers ---

type mintDraftParams struct {
	Supplier      string `json:"supplier"`
	Buyer         string `json:"buyer"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	DueDate       int64  `json:"dueDate"`
	Description   string `json:"description,omitempty"`
	PurchaseOrder string `json:"purchaseOrder,omitempty"`
	DocumentHash  string `json:"documentHash"`
	Nonce         uint64 `json:"nonce"`
}

func (s *Server) handleMintDraft(params []json.RawMessage) (interface{}, *RPCError) {
	var p mintDraftParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	supplier, rpcErr := parseAddressParam(p.Supplier, "supplier")
	if rpcErr != nil {
		return nil, rpcErr
	}
	buyer, rpcErr := parseAddressParam(p.Buyer, "buyer")
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmountParam(p.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, err := s.engine.MintDraft(supplier, buyer, amount, p.Currency, p.DueDate, p.Description, p.PurchaseOrder, p.DocumentHash, p.Nonce)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]string{"id": formatID(id)}, nil
}

type invoiceCallerParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
}

func (s *Server) callerAction(params []json.RawMessage, action func(id [32]byte, caller [20]byte) error) (interface{}, *RPCError) {
	var p invoiceCallerParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseIDParam(p.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddressParam(p.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := action(id, caller); err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) handleApprove(params []json.RawMessage) (interface{}, *RPCError) {
	return s.callerAction(params, s.engine.Approve)
}

func (s *Server) handleRevoke(params []json.RawMessage) (interface{}, *RPCError) {
	return s.callerAction(params, s.engine.Revoke)
}

type startAuctionParams struct {
	ID             string `json:"id"`
	Caller         string `json:"caller"`
	DurationHours  uint64 `json:"durationHours"`
	MaxDiscountBps uint32 `json:"maxDiscountBps"`
}

func (s *Server) handleStartAuction(params []json.RawMessage) (interface{}, *RPCError) {
	var p startAuctionParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseIDParam(p.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddressParam(p.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.StartAuction(id, caller, p.DurationHours, p.MaxDiscountBps); err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"ok": true}, nil
}

type investParams struct {
	ID          string `json:"id"`
	Investor    string `json:"investor"`
	TokenAmount string `json:"tokenAmount"`
}

func (s *Server) handleInvest(params []json.RawMessage) (interface{}, *RPCError) {
	var p investParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseIDParam(p.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	investor, rpcErr := parseAddressParam(p.Investor, "investor")
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmountParam(p.TokenAmount, "tokenAmount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.Invest(id, investor, amount); err != nil {
		return nil, errorToRPC(err)
	}
	holding, err := s.engine.Holding(id, investor)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return holdingView(holding), nil
}

type transferTokensParams struct {
	ID     string `json:"id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) handleTransferTokens(params []json.RawMessage) (interface{}, *RPCError) {
	var p transferTokensParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseIDParam(p.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	from, rpcErr := parseAddressParam(p.From, "from")
	if rpcErr != nil {
		return nil, rpcErr
	}
	to, rpcErr := parseAddressParam(p.To, "to")
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmountParam(p.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.TransferTokens(id, from, to, amount); err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"ok": true}, nil
}

type createSellOrderParams struct {
	InvoiceID     string `json:"invoiceId"`
	Seller        string `json:"seller"`
	TokenAmount   string `json:"tokenAmount"`
	PricePerToken string `json:"pricePerToken"`
	Nonce         uint64 `json:"nonce"`
}

func (s *Server) handleCreateSellOrder(params []json.RawMessage) (interface{}, *RPCError) {
	var p createSellOrderParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	invoiceID, rpcErr := parseIDParam(p.InvoiceID, "invoiceId")
	if rpcErr != nil {
		return nil, rpcErr
	}
	seller, rpcErr := parseAddressParam(p.Seller, "seller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmountParam(p.TokenAmount, "tokenAmount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	price, rpcErr := parseAmountParam(p.PricePerToken, "pricePerToken")
	if rpcErr != nil {
		return nil, rpcErr
	}
	orderID, err := s.engine.CreateSellOrder(invoiceID, seller, amount, price, p.Nonce)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]string{"orderId": formatID(orderID)}, nil
}

type fillOrderParams struct {
	OrderID     string `json:"orderId"`
	Buyer       string `json:"buyer"`
	TokenAmount string `json:"tokenAmount"`
}

func (s *Server) handleFillOrder(params []json.RawMessage) (interface{}, *RPCError) {
	var p fillOrderParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	orderID, rpcErr := parseIDParam(p.OrderID, "orderId")
	if rpcErr != nil {
		return nil, rpcErr
	}
	buyer, rpcErr := parseAddressParam(p.Buyer, "buyer")
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmountParam(p.TokenAmount, "tokenAmount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.FillOrder(orderID, buyer, amount); err != nil {
		return nil, errorToRPC(err)
	}
	order, err := s.engine.Order(orderID)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return orderView(order), nil
}

type cancelOrderParams struct {
	OrderID string `json:"orderId"`
	Caller  string `json:"caller"`
}

func (s *Server) handleCancelOrder(params []json.RawMessage) (interface{}, *RPCError) {
	var p cancelOrderParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	orderID, rpcErr := parseIDParam(p.OrderID, "orderId")
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddressParam(p.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.CancelOrder(orderID, caller); err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"ok": true}, nil
}

type settleParams struct {
	ID      string `json:"id"`
	Caller  string `json:"caller"`
	Payment string `json:"payment"`
}

func (s *Server) handleSettle(params []json.RawMessage) (interface{}, *RPCError) {
	var p settleParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseIDParam(p.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddressParam(p.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	payment, rpcErr := parseAmountParam(p.Payment, "payment")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.Settle(id, caller, payment); err != nil {
		return nil, errorToRPC(err)
	}
	inv, err := s.engine.Invoice(id)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return invoiceView(inv), nil
}

type raiseDisputeParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
	Reason string `json:"reason"`
}

func (s *Server) handleRaiseDispute(params []json.RawMessage) (interface{}, *RPCError) {
	var p raiseDisputeParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseIDParam(p.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddressParam(p.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.RaiseDispute(id, caller, p.Reason); err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"ok": true}, nil
}

type resolveDisputeParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
	Valid  bool   `json:"valid"`
}

func (s *Server) handleResolveDispute(params []json.RawMessage) (interface{}, *RPCError) {
	var p resolveDisputeParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseIDParam(p.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddressParam(p.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.ResolveDispute(id, caller, p.Valid); err != nil {
		return nil, errorToRPC(err)
	}
	inv, err := s.engine.Invoice(id)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return invoiceView(inv), nil
}

type claimInsuranceParams struct {
	ID       string `json:"id"`
	Investor string `json:"investor"`
}

func (s *Server) handleClaimInsurance(params []json.RawMessage) (interface{}, *RPCError) {
	var p claimInsuranceParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseIDParam(p.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	investor, rpcErr := parseAddressParam(p.Investor, "investor")
	if rpcErr != nil {
		return nil, rpcErr
	}
	payout, err := s.engine.ClaimInsurance(id, investor)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]string{"payout": formatAmount(payout)}, nil
}

type setInvestorKYCParams struct {
	Caller   string `json:"caller"`
	Investor string `json:"investor"`
	Approved bool   `json:"approved"`
}

func (s *Server) handleSetInvestorKYC(params []json.RawMessage) (interface{}, *RPCError) {
	var p setInvestorKYCParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddressParam(p.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	investor, rpcErr := parseAddressParam(p.Investor, "investor")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.SetInvestorKYC(caller, investor, p.Approved); err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"ok": true}, nil
}

// --- read handlers ---

type invoiceIDParams struct {
	ID string `json:"id"`
}

func (s *Server) invoiceIDFrom(params []json.RawMessage) ([32]byte, *RPCError) {
	var p invoiceIDParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return [32]byte{}, rpcErr
	}
	return parseIDParam(p.ID, "id")
}

func (s *Server) handleGet(params []json.RawMessage) (interface{}, *RPCError) {
	id, rpcErr := s.invoiceIDFrom(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	inv, err := s.engine.Invoice(id)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return invoiceView(inv), nil
}

func (s *Server) handleGetCurrentPrice(params []json.RawMessage) (interface{}, *RPCError) {
	id, rpcErr := s.invoiceIDFrom(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	price, err := s.engine.CurrentPrice(id)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]string{"price": formatAmount(price)}, nil
}

func (s *Server) handleGetSettlementAmount(params []json.RawMessage) (interface{}, *RPCError) {
	id, rpcErr := s.invoiceIDFrom(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, err := s.engine.SettlementAmount(id)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]string{"amount": formatAmount(amount)}, nil
}

func (s *Server) handleGetAvailableTokens(params []json.RawMessage) (interface{}, *RPCError) {
	id, rpcErr := s.invoiceIDFrom(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	available, err := s.engine.AvailableTokens(id)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]string{"availableTokens": formatAmount(available)}, nil
}

func (s *Server) handleGetDispute(params []json.RawMessage) (interface{}, *RPCError) {
	id, rpcErr := s.invoiceIDFrom(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	dispute, err := s.engine.Dispute(id)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return disputeView(dispute), nil
}

func (s *Server) handleCheckStatus(params []json.RawMessage) (interface{}, *RPCError) {
	id, rpcErr := s.invoiceIDFrom(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	status, err := s.engine.CheckStatus(id)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]string{"status": status.String()}, nil
}

type holdingParams struct {
	ID     string `json:"id"`
	Holder string `json:"holder"`
}

func (s *Server) handleGetHolding(params []json.RawMessage) (interface{}, *RPCError) {
	var p holdingParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseIDParam(p.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	holder, rpcErr := parseAddressParam(p.Holder, "holder")
	if rpcErr != nil {
		return nil, rpcErr
	}
	holding, err := s.engine.Holding(id, holder)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return holdingView(holding), nil
}

type orderIDParams struct {
	OrderID string `json:"orderId"`
}

func (s *Server) handleGetOrder(params []json.RawMessage) (interface{}, *RPCError) {
	var p orderIDParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	orderID, rpcErr := parseIDParam(p.OrderID, "orderId")
	if rpcErr != nil {
		return nil, rpcErr
	}
	order, err := s.engine.Order(orderID)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return orderView(order), nil
}

type openOrdersParams struct {
	InvoiceID string `json:"invoiceId"`
}

func (s *Server) handleGetOpenOrders(params []json.RawMessage) (interface{}, *RPCError) {
	var p openOrdersParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	invoiceID, rpcErr := parseIDParam(p.InvoiceID, "invoiceId")
	if rpcErr != nil {
		return nil, rpcErr
	}
	orders, err := s.engine.OpenOrders(invoiceID)
	if err != nil {
		return nil, errorToRPC(err)
	}
	views := make([]orderJSON, 0, len(orders))
	for _, order := range orders {
		views = append(views, orderView(order))
	}
	return views, nil
}

func (s *Server) handleGetInsurancePool(params []json.RawMessage) (interface{}, *RPCError) {
	if len(params) != 0 {
		return nil, invalidParams("no parameters expected")
	}
	pool, err := s.engine.InsurancePoolBalance()
	if err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]string{"balance": formatAmount(pool)}, nil
}

type addressParams struct {
	Address string `json:"address"`
}

func (s *Server) handleIsKYCApproved(params []json.RawMessage) (interface{}, *RPCError) {
	var p addressParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddressParam(p.Address, "address")
	if rpcErr != nil {
		return nil, rpcErr
	}
	approved, err := s.engine.IsKYCApproved(addr)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"approved": approved}, nil
}

func (s *Server) handleGetBalance(params []json.RawMessage) (interface{}, *RPCError) {
	var p addressParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddressParam(p.Address, "address")
	if rpcErr != nil {
		return nil, rpcErr
	}
	balance, err := s.ledger.Balance(addr)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]string{"address": formatAddress(addr), "balance": formatAmount(balance)}, nil
}

type verifyDocumentParams struct {
	ID           string `json:"id"`
	DocumentHash string `json:"documentHash"`
}

func (s *Server) handleVerifyDocument(params []json.RawMessage) (interface{}, *RPCError) {
	var p verifyDocumentParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseIDParam(p.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return map[string]bool{"matches": s.engine.VerifyDocument(id, p.DocumentHash)}, nil
}

type eventJSON struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// handleGetRecentEvents drains the retained notification log. Requires the
// server to be wired with a memory emitter.
func (s *Server) handleGetRecentEvents(params []json.RawMessage) (interface{}, *RPCError) {
	if len(params) != 0 {
		return nil, invalidParams("no parameters expected")
	}
	if s.emitter == nil {
		return []eventJSON{}, nil
	}
	retained := s.emitter.Events()
	views := make([]eventJSON, 0, len(retained))
	for _, evt := range retained {
		payload, ok := evt.(interface{ Event() *types.Event })
		if !ok {
			continue
		}
		rendered := payload.Event()
		views = append(views, eventJSON{Type: rendered.Type, Attributes: rendered.Attributes})
	}
	return views, nil
}
