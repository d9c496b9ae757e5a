package tdms

import (
	"encoding/binary"
	"math/big"
	"slices"
	"testing"
	"time"
)

func TestNIEpoch(t *testing.T) {
	want := time.Date(1904, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	if niEpoch != want {
		t.Errorf("niEpoch = %d, want %d", niEpoch, want)
	}
}

func TestTimestampAsTime(t *testing.T) {
	cases := []struct {
		name string
		ts   Timestamp
		want time.Time
	}{
		{
			name: "zero timestamp is the NI epoch",
			ts:   Timestamp{},
			want: time.Date(1904, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "half-second fraction rounds to 500ms",
			ts:   Timestamp{Seconds: 10, Fractions: 1 << 63},
			want: time.Date(1904, time.January, 1, 0, 0, 10, 500_000_000, time.UTC),
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.ts.AsTime(); !got.Equal(c.want) {
				t.Errorf("AsTime() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestInterpretTime(t *testing.T) {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf, uint64(5))
	binary.LittleEndian.PutUint64(buf[8:], 0)

	got := interpretTime(buf, binary.LittleEndian)
	want := Timestamp{Seconds: 5}.AsTime()

	if !got.Equal(want) {
		t.Errorf("interpretTime() = %v, want %v", got, want)
	}
}

func TestFloat128BigZero(t *testing.T) {
	zero := make([]byte, 16)

	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		f := interpretFloat128(zero, order)
		value, isNaN := f.Big()
		if isNaN {
			t.Fatalf("Big() reported NaN for zero bytes (order %v)", order)
		}
		if value.Cmp(big.NewFloat(0)) != 0 {
			t.Errorf("Big() = %v, want 0 (order %v)", value, order)
		}
	}
}

func TestFloat128BigOne(t *testing.T) {
	// Sign: 0, exponent: 16383 (bias), mantissa: 0 -> 1.0.
	oneBytesBE := []byte{
		0x3F, 0xFF,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}

	f := interpretFloat128(oneBytesBE, binary.BigEndian)
	value, isNaN := f.Big()
	if isNaN {
		t.Fatal("Big() reported NaN for 1.0 bytes")
	}
	if value.Cmp(big.NewFloat(1)) != 0 {
		t.Errorf("Big() = %v, want 1", value)
	}

	oneBytesLE := slices.Clone(oneBytesBE)
	slices.Reverse(oneBytesLE)

	f = interpretFloat128(oneBytesLE, binary.LittleEndian)
	value, isNaN = f.Big()
	if isNaN {
		t.Fatal("Big() reported NaN for little-endian 1.0 bytes")
	}
	if value.Cmp(big.NewFloat(1)) != 0 {
		t.Errorf("Big() = %v, want 1 (little-endian)", value)
	}
}

func TestFloat128BigNaN(t *testing.T) {
	// Exponent all-ones, non-zero mantissa -> NaN.
	nanBytes := []byte{
		0x7F, 0xFF,
		0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}

	f := interpretFloat128(nanBytes, binary.BigEndian)
	_, isNaN := f.Big()
	if !isNaN {
		t.Error("Big() did not report NaN for NaN bytes")
	}
}
