package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// StalenessTimeout is the maximum age of a quote before it is unusable.
const StalenessTimeout = 3 * time.Hour

// ErrStalePrice marks a quote older than StalenessTimeout. Staleness is a
// hard stop: the caller's entire operation aborts, with no retry and no
// fallback price.
var ErrStalePrice = errors.New("oracle: stale price")

// StalenessGuard wraps a raw PriceFeed and rejects stale quotes. Each call
// re-fetches from the underlying feed; nothing is cached across calls.
type StalenessGuard struct {
	feed    PriceFeed
	timeout time.Duration
	now     func() time.Time
}

// NewStalenessGuard wraps feed with the default StalenessTimeout.
func NewStalenessGuard(feed PriceFeed) *StalenessGuard {
	return &StalenessGuard{feed: feed, timeout: StalenessTimeout, now: time.Now}
}

// NewStalenessGuardWithClock allows tests to control the clock and timeout.
func NewStalenessGuardWithClock(feed PriceFeed, timeout time.Duration, now func() time.Time) *StalenessGuard {
	return &StalenessGuard{feed: feed, timeout: timeout, now: now}
}

// FreshPrice fetches the latest quote and returns its price, failing with
// ErrStalePrice if the quote is older than the staleness timeout.
func (g *StalenessGuard) FreshPrice(ctx context.Context) (*big.Int, error) {
	quote, err := g.feed.LatestQuote(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch quote: %w", err)
	}

	if age := g.now().Sub(quote.UpdatedAt); age > g.timeout {
		return nil, fmt.Errorf("%w: quote is %s old (limit %s)", ErrStalePrice, age, g.timeout)
	}

	return quote.Price, nil
}
