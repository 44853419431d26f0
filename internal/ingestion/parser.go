// Package ingestion connects the engine to NATS: inbound price updates
// from oracle publishers and outbound notifications of committed
// operations.
package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"
)

var (
	ErrMissingSymbol   = errors.New("ingestion: price update missing symbol")
	ErrInvalidPrice    = errors.New("ingestion: price must be positive")
	ErrMissingUpdateTs = errors.New("ingestion: price update missing timestamp")
)

// PriceUpdate is one validated oracle observation. Price carries 8
// decimals, matching the feed convention.
type PriceUpdate struct {
	Symbol    string
	Price     *big.Int
	UpdatedAt time.Time
}

// priceUpdateJSON is the wire format published by oracle relays.
// Field names use snake_case to match upstream producers.
type priceUpdateJSON struct {
	Symbol      string `json:"symbol"`
	Price       int64  `json:"price"`
	TimestampUs int64  `json:"timestamp_us"`
}

// ParsePriceUpdate validates and converts a raw NATS payload.
func ParsePriceUpdate(data []byte) (PriceUpdate, error) {
	var j priceUpdateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return PriceUpdate{}, fmt.Errorf("parse price update: %w", err)
	}

	if j.Symbol == "" {
		return PriceUpdate{}, ErrMissingSymbol
	}
	if j.Price <= 0 {
		return PriceUpdate{}, fmt.Errorf("%w: %d", ErrInvalidPrice, j.Price)
	}
	if j.TimestampUs <= 0 {
		return PriceUpdate{}, ErrMissingUpdateTs
	}

	return PriceUpdate{
		Symbol:    j.Symbol,
		Price:     big.NewInt(j.Price),
		UpdatedAt: time.UnixMicro(j.TimestampUs),
	}, nil
}
