package invoice

import "math/big"

// StartAuction opens the primary sale as a Dutch auction. The start price is
// the face amount, the floor is the face amount less the supplier's discount
// cap, and the hourly drop rate comes from the rate configuration.
func (e *Engine) StartAuction(id [32]byte, caller [20]byte, durationHours uint64, maxDiscountBps uint32) error {
	inv, err := e.loadInvoice(id)
	if err != nil {
		return err
	}
	if inv.Supplier != caller {
		return ErrUnauthorized
	}
	if err := guardStatus(opStartAuction, inv.Status); err != nil {
		return err
	}
	if durationHours == 0 || maxDiscountBps > maxAuctionDiscountBps {
		return ErrInvalidAuctionParams
	}
	cfg, err := e.rateConfig()
	if err != nil {
		return err
	}
	now := e.now()
	discount := new(big.Int).Mul(inv.Amount, big.NewInt(int64(maxDiscountBps)))
	discount.Quo(discount, big.NewInt(basisPoints))

	inv.AuctionStart = now
	inv.AuctionEnd = now + int64(durationHours)*secondsPerHour
	inv.StartPrice = cloneBigInt(inv.Amount)
	inv.MinPrice = new(big.Int).Sub(inv.Amount, discount)
	inv.PriceDropRateBps = cfg.DefaultPriceDropRateBps
	inv.Status = StatusFunding
	if err := e.storeInvoice(inv); err != nil {
		return err
	}
	e.emit(AuctionStarted{ID: id, AuctionEnd: inv.AuctionEnd, StartPrice: inv.StartPrice, MinPrice: inv.MinPrice})
	return nil
}

// CurrentPrice returns the time-decayed unit price of the invoice's tokens.
// The decay is linear per whole elapsed hour and clamps to the floor once
// reached or once the auction window closes. Monotonic non-increasing in
// time.
func (e *Engine) CurrentPrice(id [32]byte) (*big.Int, error) {
	inv, err := e.loadInvoice(id)
	if err != nil {
		return nil, err
	}
	return auctionPrice(inv, e.now())
}

func auctionPrice(inv *Invoice, now int64) (*big.Int, error) {
	if inv.AuctionStart == 0 {
		return nil, ErrAuctionNotStarted
	}
	if now >= inv.AuctionEnd {
		return cloneBigInt(inv.MinPrice), nil
	}
	hoursElapsed := (now - inv.AuctionStart) / secondsPerHour
	totalDrop := new(big.Int).Mul(inv.StartPrice, big.NewInt(int64(inv.PriceDropRateBps)))
	totalDrop.Mul(totalDrop, big.NewInt(hoursElapsed))
	totalDrop.Quo(totalDrop, big.NewInt(basisPoints))
	price := new(big.Int).Sub(inv.StartPrice, totalDrop)
	if price.Cmp(inv.MinPrice) < 0 {
		return cloneBigInt(inv.MinPrice), nil
	}
	return price, nil
}
