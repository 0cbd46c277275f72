package tsengine

import (
	"math"
	"testing"
)

// ─── Binary codec ────────────────────────────────────────────────────────────

func TestPutGetFloat64RoundTrip(t *testing.T) {
	cases := []float64{0, 1, -1, 3.14159, math.MaxFloat64, -math.MaxFloat64, math.SmallestNonzeroFloat64}
	buf := make([]byte, 16)
	for _, v := range cases {
		putFloat64(buf, 4, v)
		if got := getFloat64(buf, 4); got != v {
			t.Errorf("getFloat64 = %v, want %v", got, v)
		}
	}
}

func TestPutFloat64BigEndian(t *testing.T) {
	buf := make([]byte, 8)
	putFloat64(buf, 0, 1.0)
	// IEEE-754 1.0 is 0x3FF0000000000000; big-endian means the sign/exponent
	// byte comes first.
	if buf[0] != 0x3F || buf[1] != 0xF0 {
		t.Errorf("putFloat64 did not write big-endian: % x", buf)
	}
}

func TestEncodeDecodePointRoundTrip(t *testing.T) {
	values := []float64{1.5, -2.25, 0, 100.0}
	buf := make([]byte, len(values)*8)
	encodePoint(buf, values)

	out := decodePoint(buf, len(values), nil)
	if len(out) != len(values) {
		t.Fatalf("decodePoint len = %d, want %d", len(out), len(values))
	}
	for i, v := range values {
		if out[i] != v {
			t.Errorf("decodePoint[%d] = %v, want %v", i, out[i], v)
		}
	}
}

func TestDecodePointReusesCapacity(t *testing.T) {
	buf := make([]byte, 16)
	encodePoint(buf, []float64{1, 2})

	out := make([]float64, 0, 8)
	out = decodePoint(buf, 2, out)
	if cap(out) != 8 {
		t.Errorf("decodePoint reallocated despite sufficient capacity")
	}
}
