package oracle

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"
)

// ErrNoQuote is returned by a feed that has not yet observed a price.
var ErrNoQuote = errors.New("oracle: no quote available")

// Quote is a single price observation from a feed. Price is an unsigned
// integer scaled by the feed's decimal count (8 for all supported feeds).
type Quote struct {
	Price     *big.Int
	UpdatedAt time.Time
}

// PriceFeed is the raw price feed capability for one asset. Implementations
// return the most recent observation; freshness enforcement is layered on
// top by StalenessGuard.
type PriceFeed interface {
	LatestQuote(ctx context.Context) (Quote, error)
}

// StaticFeed is a settable in-memory feed, used in tests and local setups.
type StaticFeed struct {
	mu    sync.RWMutex
	quote Quote
	set   bool
}

func NewStaticFeed(price *big.Int, updatedAt time.Time) *StaticFeed {
	return &StaticFeed{
		quote: Quote{Price: new(big.Int).Set(price), UpdatedAt: updatedAt},
		set:   true,
	}
}

// Set replaces the feed's current quote.
func (f *StaticFeed) Set(price *big.Int, updatedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quote = Quote{Price: new(big.Int).Set(price), UpdatedAt: updatedAt}
	f.set = true
}

func (f *StaticFeed) LatestQuote(ctx context.Context) (Quote, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.set {
		return Quote{}, ErrNoQuote
	}
	return Quote{Price: new(big.Int).Set(f.quote.Price), UpdatedAt: f.quote.UpdatedAt}, nil
}
