package matching

import "errors"

// Match rule violations, in evaluation order. Messages are relied on by callers.
var (
	ErrSameSide          = errors.New("Must be opposite-side")
	ErrFeeMethodMismatch = errors.New("Must use same fee method")
	ErrPaymentToken      = errors.New("Must use same payment token")
	ErrSellTaker         = errors.New("Sell taker must be null or matching buy maker")
	ErrBuyTaker          = errors.New("Buy taker must be null or matching sell maker")
	ErrFeeRecipient      = errors.New("One order must be maker and the other must be taker")
	ErrTarget            = errors.New("Must match target")
	ErrHowToCall         = errors.New("Must match howToCall")
	ErrBuyNotSettleable  = errors.New("Buy-side order is set in the future or expired")
	ErrSellNotSettleable = errors.New("Sell-side order is set in the future or expired")
	ErrCalldata          = errors.New("Unable to match offer data with auction data.")
	ErrUnmatchable       = errors.New("Unable to match offer with auction")
)

// Rule names used in MatchError and the rejection metric.
const (
	RuleSide         = "side"
	RuleFeeMethod    = "fee-method"
	RulePaymentToken = "payment-token"
	RuleSellTaker    = "sell-taker"
	RuleBuyTaker     = "buy-taker"
	RuleFeeRecipient = "fee-recipient"
	RuleTarget       = "target"
	RuleHowToCall    = "how-to-call"
	RuleBuyTime      = "buy-time"
	RuleSellTime     = "sell-time"
	RuleCalldata     = "calldata"
	RuleSaleKind     = "sale-kind"
)

// MatchError reports the first rule a buy/sell pair violates.
type MatchError struct {
	Rule string
	Err  error
}

func (e *MatchError) Error() string {
	return e.Err.Error()
}

func (e *MatchError) Unwrap() error {
	return e.Err
}

func reject(rule string, err error) *MatchError {
	MatchRejectionsTotal.WithLabelValues(rule).Inc()
	return &MatchError{Rule: rule, Err: err}
}
