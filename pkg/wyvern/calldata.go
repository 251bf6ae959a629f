package wyvern

import (
	"bytes"
	"context"
	"fmt"
)

// GuardedArrayReplace overwrites the bits of array selected by mask with the
// corresponding bits of desired. All three slices must have the same length.
func GuardedArrayReplace(array, desired, mask []byte) error {
	if len(array) != len(desired) || len(array) != len(mask) {
		return fmt.Errorf("guarded replace: length mismatch (array %d, desired %d, mask %d)",
			len(array), len(desired), len(mask))
	}
	for i := range array {
		array[i] = (array[i] &^ mask[i]) | (desired[i] & mask[i])
	}
	return nil
}

// OrderCalldataCanMatch applies each side's replacement pattern with the other
// side's calldata and reports whether the results are byte-identical. Inputs
// are not modified.
func OrderCalldataCanMatch(buyCalldata, buyPattern, sellCalldata, sellPattern []byte) bool {
	buy := bytes.Clone(buyCalldata)
	sell := bytes.Clone(sellCalldata)

	if len(buyPattern) > 0 {
		if GuardedArrayReplace(buy, sell, buyPattern) != nil {
			return false
		}
	}
	if len(sellPattern) > 0 {
		if GuardedArrayReplace(sell, buy, sellPattern) != nil {
			return false
		}
	}
	return bytes.Equal(buy, sell)
}

// LocalCalldataMatcher evaluates calldata compatibility without a chain call.
type LocalCalldataMatcher struct{}

// CalldataCanMatch implements the matcher contract used by the match validator.
func (LocalCalldataMatcher) CalldataCanMatch(_ context.Context, buyCalldata, buyPattern, sellCalldata, sellPattern []byte) (bool, error) {
	return OrderCalldataCanMatch(buyCalldata, buyPattern, sellCalldata, sellPattern), nil
}
