// Demo run of the matching core against the in-memory store: a resting
// sell and a crossing buy from another party auto-match on placement, then
// a market buy walks what is left of the book.
package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jelloshooter848/webcash-bitcoin-exchange/internal/engine"
	"github.com/jelloshooter848/webcash-bitcoin-exchange/internal/store"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	st := store.NewMemory()
	eng := engine.New(st, logger)

	// Maker: alice asks 600 WC/sat for 1000 WC.
	sell, err := eng.PlaceLimit(ctx, "alice", engine.SideSell, 1000, 600)
	if err != nil {
		logger.Fatal("place sell", zap.Error(err))
	}
	fmt.Printf("sell resting: %s (matched=%v)\n", sell.OrderID, sell.Match.Matched)

	// Taker: bob bids 800 WC/sat for 500 WC; crosses and auto-matches on placement.
	buy, err := eng.PlaceLimit(ctx, "bob", engine.SideBuy, 500, 800)
	if err != nil {
		logger.Fatal("place buy", zap.Error(err))
	}
	fmt.Printf("buy placed:   %s (matched=%v, fills=%d, %.0f WC for %.10f BTC)\n",
		buy.OrderID, buy.Match.Matched, buy.Match.Fills, buy.Match.TotalWC, buy.Match.TotalBTC)

	// Market order: carol buys 200 WC from the remaining ask.
	mkt, err := eng.ExecuteMarket(ctx, "carol", engine.SideBuy, 200)
	if err != nil {
		logger.Fatal("market buy", zap.Error(err))
	}
	fmt.Printf("market buy:   200 WC across %d fill(s) for %.10f BTC\n", len(mkt.Fills), mkt.TotalBTC)

	if price, err := eng.CurrentPrice(ctx); err == nil {
		display, _ := engine.ToDisplayPrice(price)
		fmt.Printf("reference:    %.0f WC/sat\n", display)
	} else {
		fmt.Println("reference:    no liquidity")
	}

	trades, _ := st.RecentTrades(ctx, 10)
	for _, t := range trades {
		fmt.Printf("trade %s: %s -> %s, %s WC for %s BTC\n",
			t.ID, t.SellerID, t.BuyerID, t.AmountWC.String(), t.TotalBTC.String())
	}
}
