// Package suspicion implements heuristic risk scoring for postback payloads.
//
// The scorer sits behind the payload validator: every shape failure is
// scored, and semantic signals stack on top. A negative spend amount would
// otherwise turn a debit into a credit.
//
// Scoring is additive, capped at 100, with deduplicated reasons:
//   - parse failure:                         +30  parse_failed
//   - negative amount:                       +50  negative_amount
//   - amount above the absolute ceiling:     +40  amount_extremely_high
//   - amount high but not above the ceiling: +20  amount_very_high
//   - amount-like field of the wrong type:   +25  invalid_type
//
// Any non-zero score rejects the request as a suspicious incident.
package suspicion

import (
	"github.com/dragonfall-gg/dragonfall/internal/domain"
)

// ─── Constants ──────────────────────────────────────────────────────────────

const (
	// MaxReasonableAmount is the absolute ceiling: no legitimate postback
	// carries more Drogons than this.
	MaxReasonableAmount = 1_000_000

	// HighAmountThreshold marks amounts that are plausible but rare enough
	// to raise the score without rejecting on their own.
	HighAmountThreshold = 100_000

	// MaxScore is the clamp ceiling for the final score.
	MaxScore = 100

	scoreParseFailed    = 30
	scoreNegativeAmount = 50
	scoreExtremelyHigh  = 40
	scoreVeryHigh       = 20
	scoreInvalidType    = 25
)

// Reason tags one contributing signal in an assessment.
type Reason string

const (
	ReasonParseFailed         Reason = "parse_failed"
	ReasonNegativeAmount      Reason = "negative_amount"
	ReasonInvalidType         Reason = "invalid_type"
	ReasonAmountExtremelyHigh Reason = "amount_extremely_high"
	ReasonAmountVeryHigh      Reason = "amount_very_high"
)

// ─── Types ──────────────────────────────────────────────────────────────────

// Input carries the signals available when scoring a request.
type Input struct {
	ParseFailed       bool
	Amount            *float64 // parsed or peeked amount, nil when absent
	HasNegativeAmount bool
}

// Assessment is the transient result of scoring one request. It is never
// persisted on its own; a rejecting handler embeds it in an audit event.
type Assessment struct {
	Score   int      `json:"score"`
	Reasons []Reason `json:"reasons"`
}

// Triggered reports whether the assessment rejects the request.
// Any non-zero score is an incident.
func (a Assessment) Triggered() bool { return a.Score > 0 }

// ReasonStrings returns the reasons as plain strings for logging payloads.
func (a Assessment) ReasonStrings() []string {
	out := make([]string, len(a.Reasons))
	for i, r := range a.Reasons {
		out[i] = string(r)
	}
	return out
}

// ─── Scoring ────────────────────────────────────────────────────────────────

// Score computes the 0–100 suspicion score for one postback request.
// rawBody is the decoded JSON object (nil when the body was not an object);
// it is only consulted for the wrong-typed-amount signal on parse failures.
func Score(kind domain.PostbackKind, rawBody map[string]any, in Input) Assessment {
	score := 0
	var reasons []Reason
	seen := make(map[Reason]bool)

	push := func(r Reason, pts int) {
		if seen[r] {
			return
		}
		seen[r] = true
		reasons = append(reasons, r)
		score += pts
	}

	if in.ParseFailed {
		push(ReasonParseFailed, scoreParseFailed)
	}
	if in.HasNegativeAmount {
		push(ReasonNegativeAmount, scoreNegativeAmount)
	}
	if in.Amount != nil {
		switch a := *in.Amount; {
		case a < 0:
			push(ReasonNegativeAmount, scoreNegativeAmount)
		case a > MaxReasonableAmount:
			push(ReasonAmountExtremelyHigh, scoreExtremelyHigh)
		case a > HighAmountThreshold:
			push(ReasonAmountVeryHigh, scoreVeryHigh)
		}
	}
	if in.ParseFailed && rawBody != nil {
		if v, ok := rawBody["amount"]; ok {
			if _, isNum := v.(float64); !isNum {
				push(ReasonInvalidType, scoreInvalidType)
			}
		}
	}

	if score > MaxScore {
		score = MaxScore
	}
	return Assessment{Score: score, Reasons: reasons}
}

// OnParseFailure scores an unparseable body, peeking the kind's amount-like
// field directly from the raw object.
func OnParseFailure(kind domain.PostbackKind, rawBody map[string]any) Assessment {
	amount := peekNumber(rawBody, kind.AmountKey())
	return Score(kind, rawBody, Input{
		ParseFailed:       true,
		Amount:            amount,
		HasNegativeAmount: amount != nil && *amount < 0,
	})
}

// CheckParsedAmount scores an amount that passed shape validation. It only
// returns a non-nil assessment for values outside [0, MaxReasonableAmount];
// merely high amounts never reject a well-formed payload on their own.
func CheckParsedAmount(kind domain.PostbackKind, amount int64) *Assessment {
	if amount >= 0 && amount <= MaxReasonableAmount {
		return nil
	}
	f := float64(amount)
	a := Score(kind, nil, Input{Amount: &f})
	return &a
}

// peekNumber extracts any JSON number from the raw body, if present.
// Fractional values still count toward the sign and magnitude checks even
// though they would fail integer coercion in the validator.
func peekNumber(rawBody map[string]any, key string) *float64 {
	if rawBody == nil || key == "" {
		return nil
	}
	f, ok := rawBody[key].(float64)
	if !ok {
		return nil
	}
	return &f
}
