// Package stream consumes the marketplace's order event websocket.
package stream

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	json "github.com/goccy/go-json"
)

// EventType names an order book event.
type EventType string

const (
	EventItemListed        EventType = "item_listed"
	EventItemReceivedOffer EventType = "item_received_offer"
	EventItemCancelled     EventType = "item_cancelled"
	EventItemSold          EventType = "item_sold"
)

// Event is one order book change for a subscribed collection.
type Event struct {
	Type         EventType `json:"event_type"`
	Collection   string    `json:"collection"`
	OrderHash    string    `json:"order_hash"`
	Maker        string    `json:"maker"`
	Taker        string    `json:"taker,omitempty"`
	AssetAddress string    `json:"asset_contract_address"`
	TokenID      string    `json:"token_id"`
	BasePrice    string    `json:"base_price"`
	PaymentToken string    `json:"payment_token"`
	SentAt       int64     `json:"sent_at"`
}

// Hash returns the order hash the event refers to.
func (e *Event) Hash() (common.Hash, error) {
	b, err := hexutil.Decode(e.OrderHash)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid order hash %q", e.OrderHash)
	}
	return common.BytesToHash(b), nil
}

// Price parses BasePrice as a base-unit integer.
func (e *Event) Price() (*big.Int, error) {
	v, ok := new(big.Int).SetString(e.BasePrice, 10)
	if !ok {
		return nil, fmt.Errorf("invalid base price %q", e.BasePrice)
	}
	return v, nil
}

// Closes reports whether the event takes its order off the book.
func (e *Event) Closes() bool {
	return e.Type == EventItemCancelled || e.Type == EventItemSold
}

// parseFrame decodes a frame that may carry one event or an array of them.
// Heartbeats and control frames yield no events.
func parseFrame(data []byte) ([]Event, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("[]")) {
		return nil, nil
	}

	if data[0] == '[' {
		var events []Event
		err := json.Unmarshal(data, &events)
		if err != nil {
			return nil, fmt.Errorf("unmarshal event array: %w", err)
		}
		return events, nil
	}

	var ev Event
	err := json.Unmarshal(data, &ev)
	if err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	if ev.Type == "" {
		return nil, nil
	}
	return []Event{ev}, nil
}
