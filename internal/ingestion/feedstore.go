package ingestion

import (
	"fmt"

	"SynthLedger/internal/oracle"
)

// FeedStore holds one settable feed per approved symbol. The engine's
// staleness guards read from these feeds; the NATS subscriber writes to
// them. Updates for symbols that were not registered up front are
// rejected.
type FeedStore struct {
	feeds map[string]*oracle.StaticFeed
}

// NewFeedStore registers a feed per symbol. Feeds start empty and report
// no quote until the first update arrives.
func NewFeedStore(symbols []string) *FeedStore {
	feeds := make(map[string]*oracle.StaticFeed, len(symbols))
	for _, sym := range symbols {
		feeds[sym] = &oracle.StaticFeed{}
	}
	return &FeedStore{feeds: feeds}
}

// Feed returns the feed for one symbol, in registration order suitable
// for wiring into the engine.
func (fs *FeedStore) Feed(symbol string) (oracle.PriceFeed, bool) {
	f, ok := fs.feeds[symbol]
	return f, ok
}

// Feeds returns the feeds for the given symbols, failing on any symbol
// without a registered feed.
func (fs *FeedStore) Feeds(symbols []string) ([]oracle.PriceFeed, error) {
	out := make([]oracle.PriceFeed, 0, len(symbols))
	for _, sym := range symbols {
		f, ok := fs.feeds[sym]
		if !ok {
			return nil, fmt.Errorf("ingestion: no feed registered for %s", sym)
		}
		out = append(out, f)
	}
	return out, nil
}

// Apply stores a validated price update. Unknown symbols are reported so
// the subscriber can count drops.
func (fs *FeedStore) Apply(update PriceUpdate) error {
	f, ok := fs.feeds[update.Symbol]
	if !ok {
		return fmt.Errorf("ingestion: unknown symbol %s", update.Symbol)
	}
	f.Set(update.Price, update.UpdatedAt)
	return nil
}
