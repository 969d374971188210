package spottracker

import (
	"testing"
	"time"

	"algotrade/pkg/types"
)

func makeTime(hour, minute, second int) int64 {
	return time.Date(2026, 2, 2, hour, minute, second, 0, time.UTC).UnixMilli()
}

func TestWindowStartForTime(t *testing.T) {
	cases := []struct {
		in, want int64
	}{
		{makeTime(15, 0, 0), makeTime(15, 0, 0)},
		{makeTime(15, 7, 30), makeTime(15, 0, 0)},
		{makeTime(15, 15, 0), makeTime(15, 15, 0)},
		{makeTime(15, 29, 59), makeTime(15, 15, 0)},
		{makeTime(15, 30, 0), makeTime(15, 30, 0)},
		{makeTime(15, 45, 30), makeTime(15, 45, 0)},
	}
	for _, c := range cases {
		if got := WindowStartForTime(c.in); got != c.want {
			t.Errorf("WindowStartForTime(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestNewReferenceConfidenceByDelay(t *testing.T) {
	windowStart := makeTime(15, 0, 0)

	fast := newReference(types.BTC, windowStart, 78500, types.SourceBinanceFirst, windowStart+500)
	if fast.Confidence != types.ConfidenceHigh {
		t.Errorf("fast capture confidence = %v, want High (source default)", fast.Confidence)
	}

	medium := newReference(types.BTC, windowStart, 78500, types.SourceBinanceFirst, windowStart+3000)
	if medium.Confidence != types.ConfidenceMedium {
		t.Errorf("medium capture confidence = %v, want Medium", medium.Confidence)
	}

	slow := newReference(types.BTC, windowStart, 78500, types.SourceBinanceFirst, windowStart+6000)
	if slow.Confidence != types.ConfidenceLow {
		t.Errorf("slow capture confidence = %v, want Low", slow.Confidence)
	}
}

func TestTrackerCapturesReference(t *testing.T) {
	tr := NewDefault()
	windowStart := makeTime(15, 0, 0)

	tr.UpdatePrice(types.BTC, windowStart, 78500)

	ref, ok := tr.Current(types.BTC)
	if !ok {
		t.Fatal("expected a captured reference")
	}
	if ref.WindowStartMs != windowStart || ref.ReferencePrice != 78500 {
		t.Errorf("got %+v", ref)
	}
}

func TestTrackerTransitionsWindows(t *testing.T) {
	tr := NewDefault()
	window1 := makeTime(15, 0, 0)
	window2 := makeTime(15, 15, 0)

	tr.UpdatePrice(types.BTC, window1, 78500)
	tr.UpdatePrice(types.BTC, makeTime(15, 7, 30), 78600)

	ref, _ := tr.Current(types.BTC)
	if ref.WindowStartMs != window1 || ref.ReferencePrice != 78500 {
		t.Fatalf("mid-window update should not move reference, got %+v", ref)
	}

	tr.UpdatePrice(types.BTC, window2, 78700)
	ref, _ = tr.Current(types.BTC)
	if ref.WindowStartMs != window2 || ref.ReferencePrice != 78700 {
		t.Fatalf("expected new window reference, got %+v", ref)
	}

	history := tr.History(types.BTC)
	if len(history) != 1 || history[0].WindowStartMs != window1 {
		t.Fatalf("expected window1 archived, got %+v", history)
	}
}

func TestTrackerCoinsAreIndependent(t *testing.T) {
	tr := NewDefault()
	windowStart := makeTime(15, 0, 0)

	tr.UpdatePrice(types.BTC, windowStart, 78500)
	tr.UpdatePrice(types.ETH, windowStart, 3200)

	btc, _ := tr.Current(types.BTC)
	eth, _ := tr.Current(types.ETH)
	if btc.ReferencePrice != 78500 || eth.ReferencePrice != 3200 {
		t.Fatalf("per-coin state leaked: btc=%+v eth=%+v", btc, eth)
	}
}

func TestValidateOutcome(t *testing.T) {
	tr := NewDefault()
	windowStart := makeTime(15, 0, 0)
	tr.UpdatePrice(types.BTC, windowStart, 78500)

	if correct, ok := tr.ValidateOutcome(types.BTC, windowStart, 78600, true); !ok || !correct {
		t.Errorf("expected correct=true for price up and Up outcome, got correct=%v ok=%v", correct, ok)
	}
	if correct, ok := tr.ValidateOutcome(types.BTC, windowStart, 78600, false); !ok || correct {
		t.Errorf("expected correct=false when reference disagrees with outcome")
	}
	if _, ok := tr.ValidateOutcome(types.BTC, makeTime(16, 0, 0), 78500, true); ok {
		t.Error("expected ok=false for unknown window")
	}
}

func TestSetReference(t *testing.T) {
	tr := NewDefault()
	ref := types.WindowReference{
		WindowStartMs:  makeTime(15, 0, 0),
		ReferencePrice: 78484.41,
		Source:         types.SourceManual,
		Confidence:     types.ConfidenceHigh,
	}
	tr.SetReference(types.BTC, ref)

	current, ok := tr.Current(types.BTC)
	if !ok {
		t.Fatal("expected reference to be set")
	}
	if current.ReferencePrice != 78484.41 || current.Confidence != types.ConfidenceHigh {
		t.Errorf("got %+v", current)
	}
}
