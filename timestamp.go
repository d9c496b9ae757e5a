package tdms

import (
	"encoding/binary"
	"math/big"
	"time"
)

// niEpoch is the NI epoch (1904-01-01 00:00:00 UTC) expressed as a Unix
// timestamp. TDMS timestamps count seconds from this origin, not from the
// Unix epoch.
const niEpoch int64 = -2_082_844_800

// Timestamp is a TDMS timestamp: a signed count of whole seconds since the
// NI epoch plus a fractional-second remainder expressed in units of 2^-64
// seconds. The library surfaces both fields raw and leaves any further
// interpretation to the caller; use [Timestamp.AsTime] for a lossy
// conversion to [time.Time].
type Timestamp struct {
	// Seconds is the number of whole seconds since the NI epoch
	// (1904-01-01 00:00:00 UTC).
	Seconds int64

	// Fractions is the fractional remainder of a second, as a fixed-point
	// value with denominator 2^64.
	Fractions uint64
}

// AsTime converts t to a [time.Time] in UTC. This loses precision: a
// Timestamp's fractional field retains roughly 1.8e10 times more resolution
// than a time.Time's nanoseconds.
func (t Timestamp) AsTime() time.Time {
	ns := new(big.Int).SetUint64(t.Fractions)
	ns.Mul(ns, big.NewInt(1e9))
	ns.Rsh(ns, 64)
	return time.Unix(niEpoch+t.Seconds, ns.Int64()).UTC()
}

// interpretTime decodes a raw TDMS timestamp directly into a [time.Time],
// for use by the channel iterator's ReadDataAsTime variants.
func interpretTime(b []byte, order binary.ByteOrder) time.Time {
	return interpretTimestamp(b, order).AsTime()
}
