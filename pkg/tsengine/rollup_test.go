package tsengine

import "testing"

// ─── RangeValue.observe ──────────────────────────────────────────────────────

func TestRangeValueObserveSinglePoint(t *testing.T) {
	var rv RangeValue
	rv.observe(100.0)
	want := RangeValue{Volume: 1, High: 100, Low: 100, Open: 100, Close: 100, Sum: 100}
	if rv != want {
		t.Errorf("observe(100) = %+v, want %+v", rv, want)
	}
}

func TestRangeValueObserveMultiplePoints(t *testing.T) {
	var rv RangeValue
	for _, v := range []float64{100, 110, 90} {
		rv.observe(v)
	}
	want := RangeValue{Volume: 3, High: 110, Low: 90, Open: 100, Close: 90, Sum: 300}
	if rv != want {
		t.Errorf("observe sequence = %+v, want %+v", rv, want)
	}
}

// ─── Rollup codec ────────────────────────────────────────────────────────────

func TestEncodeDecodeRangeValuesRoundTrip(t *testing.T) {
	values := []RangeValue{
		{Volume: 2, High: 110, Low: 100, Open: 100, Close: 110, Sum: 210},
		{Volume: 1, High: 5, Low: 5, Open: 5, Close: 5, Sum: 5},
	}
	buf := make([]byte, len(values)*rangeSlotWidth)
	encodeRangeValues(buf, values)

	got := decodeRangeValues(buf, len(values))
	for i := range values {
		if got[i] != values[i] {
			t.Errorf("decodeRangeValues[%d] = %+v, want %+v", i, got[i], values[i])
		}
	}
}

func TestDecodeRangeValuesZeroVolumeIsAllZero(t *testing.T) {
	buf := make([]byte, rangeSlotWidth)
	// Volume slot left at 0; garbage in other slots must be ignored.
	putFloat64(buf, 8, 999)
	got := decodeRangeValues(buf, 1)
	if got[0] != (RangeValue{}) {
		t.Errorf("decodeRangeValues with Volume=0 = %+v, want zero value", got[0])
	}
}
