package suspicion

import (
	"reflect"
	"testing"

	"github.com/dragonfall-gg/dragonfall/internal/domain"
)

func fp(f float64) *float64 { return &f }

func TestScore(t *testing.T) {
	tests := []struct {
		name        string
		raw         map[string]any
		in          Input
		wantScore   int
		wantReasons []Reason
	}{
		{
			name:      "clean input scores zero",
			in:        Input{},
			wantScore: 0,
		},
		{
			name:        "parse failure alone",
			in:          Input{ParseFailed: true},
			wantScore:   30,
			wantReasons: []Reason{ReasonParseFailed},
		},
		{
			name:        "negative amount",
			in:          Input{Amount: fp(-100)},
			wantScore:   50,
			wantReasons: []Reason{ReasonNegativeAmount},
		},
		{
			name:        "negative amount deduplicated",
			in:          Input{HasNegativeAmount: true, Amount: fp(-100)},
			wantScore:   50,
			wantReasons: []Reason{ReasonNegativeAmount},
		},
		{
			name:        "amount above ceiling",
			in:          Input{Amount: fp(2_000_000)},
			wantScore:   40,
			wantReasons: []Reason{ReasonAmountExtremelyHigh},
		},
		{
			name:        "amount high but below ceiling",
			in:          Input{Amount: fp(500_000)},
			wantScore:   20,
			wantReasons: []Reason{ReasonAmountVeryHigh},
		},
		{
			name:        "amount exactly at ceiling is still very high",
			in:          Input{Amount: fp(MaxReasonableAmount)},
			wantScore:   20,
			wantReasons: []Reason{ReasonAmountVeryHigh},
		},
		{
			name:      "amount exactly at high threshold is not flagged",
			in:        Input{Amount: fp(HighAmountThreshold)},
			wantScore: 0,
		},
		{
			name:        "parse failure with negative amount",
			in:          Input{ParseFailed: true, Amount: fp(-1)},
			wantScore:   80,
			wantReasons: []Reason{ReasonParseFailed, ReasonNegativeAmount},
		},
		{
			name:        "fractional negative amount",
			in:          Input{ParseFailed: true, Amount: fp(-3.5)},
			wantScore:   80,
			wantReasons: []Reason{ReasonParseFailed, ReasonNegativeAmount},
		},
		{
			name:        "wrong-typed amount on parse failure",
			raw:         map[string]any{"amount": "lots"},
			in:          Input{ParseFailed: true},
			wantScore:   55,
			wantReasons: []Reason{ReasonParseFailed, ReasonInvalidType},
		},
		{
			name:      "wrong type only counted on parse failure",
			raw:       map[string]any{"amount": "lots"},
			in:        Input{},
			wantScore: 0,
		},
		{
			name:        "score clamped at 100",
			raw:         map[string]any{"amount": []any{1}},
			in:          Input{ParseFailed: true, HasNegativeAmount: true, Amount: fp(-2_000_000)},
			wantScore:   100,
			wantReasons: []Reason{ReasonParseFailed, ReasonNegativeAmount, ReasonInvalidType},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(domain.KindLootChests, tt.raw, tt.in)
			if got.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d (reasons %v)", got.Score, tt.wantScore, got.Reasons)
			}
			if tt.wantReasons != nil && !reflect.DeepEqual(got.Reasons, tt.wantReasons) {
				t.Errorf("Reasons = %v, want %v", got.Reasons, tt.wantReasons)
			}
			if tt.wantScore == 0 && len(got.Reasons) != 0 {
				t.Errorf("zero score should carry no reasons, got %v", got.Reasons)
			}
		})
	}
}

func TestTriggered(t *testing.T) {
	if (Assessment{Score: 0}).Triggered() {
		t.Error("a clean payload should not trigger an incident")
	}
	if !(Assessment{Score: 30}).Triggered() {
		t.Error("a bare parse failure should trigger an incident")
	}
	if !(Assessment{Score: 100}).Triggered() {
		t.Error("max score should trigger")
	}
}

func TestOnParseFailure(t *testing.T) {
	tests := []struct {
		name      string
		kind      domain.PostbackKind
		raw       map[string]any
		wantScore int
	}{
		{
			name:      "missing fields only",
			kind:      domain.KindLootChests,
			raw:       map[string]any{"roblox_userid": "1"},
			wantScore: 30,
		},
		{
			name:      "negative amount peeked from raw body",
			kind:      domain.KindLootChests,
			raw:       map[string]any{"amount": float64(-500)},
			wantScore: 80,
		},
		{
			name:      "fractional negative amount peeked",
			kind:      domain.KindLootChests,
			raw:       map[string]any{"amount": float64(-3.5)},
			wantScore: 80,
		},
		{
			name:      "fractional amount above ceiling peeked",
			kind:      domain.KindLootChests,
			raw:       map[string]any{"amount": float64(2_000_000.5)},
			wantScore: 70,
		},
		{
			name:      "kind-specific amount key peeked",
			kind:      domain.KindActivityPoints,
			raw:       map[string]any{"activityPoints": float64(-1)},
			wantScore: 80,
		},
		{
			name:      "wrong-typed amount",
			kind:      domain.KindSpendDrogons,
			raw:       map[string]any{"amount": "free"},
			wantScore: 55,
		},
		{
			name:      "nil body",
			kind:      domain.KindLootChests,
			raw:       nil,
			wantScore: 30,
		},
		{
			name:      "kind with no amount key",
			kind:      domain.KindCollectBounty,
			raw:       map[string]any{"target_roblox_userid": "1"},
			wantScore: 30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OnParseFailure(tt.kind, tt.raw)
			if got.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d (reasons %v)", got.Score, tt.wantScore, got.Reasons)
			}
			// Every parse failure scores at least parse_failed, so every
			// case here is an incident.
			if !got.Triggered() {
				t.Errorf("Triggered = false, want true (score %d)", got.Score)
			}
		})
	}
}

func TestCheckParsedAmount(t *testing.T) {
	if a := CheckParsedAmount(domain.KindLootChests, 5000); a != nil {
		t.Errorf("normal amount flagged: %+v", a)
	}
	if a := CheckParsedAmount(domain.KindLootChests, MaxReasonableAmount); a != nil {
		t.Errorf("ceiling amount flagged: %+v", a)
	}
	a := CheckParsedAmount(domain.KindLootChests, MaxReasonableAmount+1)
	if a == nil {
		t.Fatal("above-ceiling amount not flagged")
	}
	if a.Score != 40 {
		t.Errorf("Score = %d, want 40", a.Score)
	}
	a = CheckParsedAmount(domain.KindLootChests, -1)
	if a == nil {
		t.Fatal("negative amount not flagged")
	}
	if a.Score != 50 {
		t.Errorf("Score = %d, want 50", a.Score)
	}
}
