package types

import (
	"fmt"
	"strconv"
)

// Side is the order side. Wire value: 0 = buy, 1 = sell.
type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

// String returns the side name.
func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "side(" + strconv.Itoa(int(s)) + ")"
	}
}

// Wire returns the integer used on the wire and in the order hash.
func (s Side) Wire() uint8 { return uint8(s) }

// Opposite returns the counter side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// ParseSide maps a wire integer back to a Side.
func ParseSide(v uint8) (Side, error) {
	switch Side(v) {
	case SideBuy, SideSell:
		return Side(v), nil
	default:
		return 0, fmt.Errorf("unknown side %d", v)
	}
}

// SaleKind selects fixed price or time-decaying pricing. Wire value: 0 = fixed, 1 = dutch.
type SaleKind uint8

const (
	SaleKindFixedPrice SaleKind = iota
	SaleKindDutchAuction
)

// String returns the sale kind name.
func (k SaleKind) String() string {
	switch k {
	case SaleKindFixedPrice:
		return "fixed-price"
	case SaleKindDutchAuction:
		return "dutch-auction"
	default:
		return "sale-kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Wire returns the integer used on the wire and in the order hash.
func (k SaleKind) Wire() uint8 { return uint8(k) }

// ParseSaleKind maps a wire integer back to a SaleKind.
func ParseSaleKind(v uint8) (SaleKind, error) {
	switch SaleKind(v) {
	case SaleKindFixedPrice, SaleKindDutchAuction:
		return SaleKind(v), nil
	default:
		return 0, fmt.Errorf("unknown sale kind %d", v)
	}
}

// FeeMethod selects how the exchange charges fees. Wire value: 0 = protocol fee, 1 = split fee.
type FeeMethod uint8

const (
	FeeMethodProtocolFee FeeMethod = iota
	FeeMethodSplitFee
)

// String returns the fee method name.
func (m FeeMethod) String() string {
	switch m {
	case FeeMethodProtocolFee:
		return "protocol-fee"
	case FeeMethodSplitFee:
		return "split-fee"
	default:
		return "fee-method(" + strconv.Itoa(int(m)) + ")"
	}
}

// Wire returns the integer used on the wire and in the order hash.
func (m FeeMethod) Wire() uint8 { return uint8(m) }

// ParseFeeMethod maps a wire integer back to a FeeMethod.
func ParseFeeMethod(v uint8) (FeeMethod, error) {
	switch FeeMethod(v) {
	case FeeMethodProtocolFee, FeeMethodSplitFee:
		return FeeMethod(v), nil
	default:
		return 0, fmt.Errorf("unknown fee method %d", v)
	}
}

// HowToCall is the proxy call type. Wire value: 0 = call, 1 = delegatecall.
type HowToCall uint8

const (
	HowToCallCall HowToCall = iota
	HowToCallDelegateCall
)

// String returns the call type name.
func (h HowToCall) String() string {
	switch h {
	case HowToCallCall:
		return "call"
	case HowToCallDelegateCall:
		return "delegatecall"
	default:
		return "how-to-call(" + strconv.Itoa(int(h)) + ")"
	}
}

// Wire returns the integer used on the wire and in the order hash.
func (h HowToCall) Wire() uint8 { return uint8(h) }

// ParseHowToCall maps a wire integer back to a HowToCall.
func ParseHowToCall(v uint8) (HowToCall, error) {
	switch HowToCall(v) {
	case HowToCallCall, HowToCallDelegateCall:
		return HowToCall(v), nil
	default:
		return 0, fmt.Errorf("unknown howToCall %d", v)
	}
}
