package engine

import "sort"

// bookView is a transient split of fetched orders into sides. It filters
// out anything that is not open or has nothing left to trade; the fetched
// records themselves are never mutated during a pass.
type bookView struct {
	buys  []Order
	sells []Order
}

func newBookView(orders []Order) bookView {
	var b bookView
	for _, o := range orders {
		if o.Status != StatusOpen || o.Quantity <= 0 {
			continue
		}
		switch o.Side {
		case SideBuy:
			b.buys = append(b.buys, o)
		case SideSell:
			b.sells = append(b.sells, o)
		}
	}
	return b
}

func (b *bookView) sortBestFirst() {
	sortBuysBest(b.buys)
	sortSellsBest(b.sells)
}

// bestBuyDisplay is the highest display price among open buys: the buyer
// offering the most WC per satoshi.
func (b *bookView) bestBuyDisplay() (float64, bool) {
	if len(b.buys) == 0 {
		return 0, false
	}
	best := b.buys[0].DisplayPrice()
	for _, o := range b.buys[1:] {
		if d := o.DisplayPrice(); d > best {
			best = d
		}
	}
	return best, true
}

// bestSellDisplay is the lowest display price among open sells: the
// cheapest ask.
func (b *bookView) bestSellDisplay() (float64, bool) {
	if len(b.sells) == 0 {
		return 0, false
	}
	best := b.sells[0].DisplayPrice()
	for _, o := range b.sells[1:] {
		if d := o.DisplayPrice(); d < best {
			best = d
		}
	}
	return best, true
}

// sortBuysBest orders buys best-first: highest display price, ties broken
// by earliest placement (first come, first served).
func sortBuysBest(orders []Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		di, dj := orders[i].DisplayPrice(), orders[j].DisplayPrice()
		if di != dj {
			return di > dj
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}

// sortSellsBest orders sells best-first: lowest display price, ties broken
// by earliest placement.
func sortSellsBest(orders []Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		di, dj := orders[i].DisplayPrice(), orders[j].DisplayPrice()
		if di != dj {
			return di < dj
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}
