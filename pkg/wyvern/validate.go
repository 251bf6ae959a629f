package wyvern

import (
	"fmt"

	"github.com/mselser95/nft-orders/pkg/types"
)

// ValidateStructure checks that every hashed field is present on a wire order
// before any decoding happens. It only checks shape, not semantics.
func ValidateStructure(w *WireOrder) error {
	if w == nil {
		return fmt.Errorf("order: %w", types.ErrMissingField)
	}

	required := []struct {
		name  string
		value string
	}{
		{"exchange", w.Exchange},
		{"maker", w.Maker},
		{"taker", w.Taker},
		{"makerRelayerFee", w.MakerRelayerFee},
		{"takerRelayerFee", w.TakerRelayerFee},
		{"makerProtocolFee", w.MakerProtocolFee},
		{"takerProtocolFee", w.TakerProtocolFee},
		{"makerReferrerFee", w.MakerReferrerFee},
		{"feeRecipient", w.FeeRecipient},
		{"target", w.Target},
		{"calldata", w.Calldata},
		{"replacementPattern", w.ReplacementPattern},
		{"staticTarget", w.StaticTarget},
		{"staticExtradata", w.StaticExtradata},
		{"paymentToken", w.PaymentToken},
		{"basePrice", w.BasePrice},
		{"extra", w.Extra},
		{"listingTime", w.ListingTime},
		{"expirationTime", w.ExpirationTime},
		{"salt", w.Salt},
	}

	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%s: %w", f.name, types.ErrMissingField)
		}
	}

	hasV, hasR, hasS := w.V != nil, w.R != "", w.S != ""
	if hasV != hasR || hasR != hasS {
		return fmt.Errorf("signature must carry v, r and s together: %w", types.ErrMissingField)
	}

	return nil
}
