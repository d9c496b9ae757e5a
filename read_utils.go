package tdms

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"slices"
	"strings"
	"unicode/utf8"
)

// This file holds the primitive, endianness-aware decoders shared by the
// lead-in, metadata, and channel-iterator code. Using `binary.Read()`
// throughout would be much simpler, but that function is slow because it
// relies on reflection; these hand-rolled readers avoid that cost.

func readUint32(r io.Reader, order binary.ByteOrder) (uint32, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, errors.Join(ErrReadFailed, err)
	}
	return order.Uint32(buf), nil
}

func readUint64(r io.Reader, order binary.ByteOrder) (uint64, error) {
	buf := make([]byte, 8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, errors.Join(ErrReadFailed, err)
	}
	return order.Uint64(buf), nil
}

func readInt32(r io.Reader, order binary.ByteOrder) (int32, error) {
	v, err := readUint32(r, order)
	return int32(v), err
}

// readString reads a u32 length prefix followed by that many bytes of UTF-8
// text, as used for object paths, property names and string property values.
func readString(r io.Reader, order binary.ByteOrder) (string, error) {
	length, err := readUint32(r, order)
	if err != nil {
		return "", err
	}

	strBytes := make([]byte, length)
	if _, err := io.ReadFull(r, strBytes); err != nil {
		return "", errors.Join(ErrReadFailed, err)
	}

	if !utf8.Valid(strBytes) {
		return "", fmt.Errorf("%w: object path, property name or property value is not valid UTF-8", ErrStringConversion)
	}

	return string(strBytes), nil
}

// interpret functions convert a fixed-size byte slice (already known to hold
// exactly one value) into a Go value of the requested type, given the
// segment's byte order.

func interpretInt8(b []byte, _ binary.ByteOrder) int8 { return int8(b[0]) }

func interpretInt16(b []byte, order binary.ByteOrder) int16 { return int16(order.Uint16(b)) }

func interpretInt32(b []byte, order binary.ByteOrder) int32 { return int32(order.Uint32(b)) }

func interpretInt64(b []byte, order binary.ByteOrder) int64 { return int64(order.Uint64(b)) }

func interpretUint8(b []byte, _ binary.ByteOrder) uint8 { return b[0] }

func interpretUint16(b []byte, order binary.ByteOrder) uint16 { return order.Uint16(b) }

func interpretUint32(b []byte, order binary.ByteOrder) uint32 { return order.Uint32(b) }

func interpretUint64(b []byte, order binary.ByteOrder) uint64 { return order.Uint64(b) }

func interpretFloat32(b []byte, order binary.ByteOrder) float32 {
	return math.Float32frombits(order.Uint32(b))
}

func interpretFloat64(b []byte, order binary.ByteOrder) float64 {
	return math.Float64frombits(order.Uint64(b))
}

// Float128 holds the raw 16-byte payload of a TDMS extended-precision float,
// normalised to little-endian byte order. Go has no native 128-bit float and
// math/big.Float cannot represent NaN, so the bytes are kept as-is; use
// [Float128.Big] to get an approximate [*big.Float].
type Float128 [16]byte

func interpretFloat128(b []byte, order binary.ByteOrder) Float128 {
	var f Float128
	copy(f[:], b)
	if order == binary.BigEndian {
		slices.Reverse(f[:])
	}
	return f
}

// Big converts the 128-bit extended-precision float to a [*big.Float],
// returning (nil, true) for NaN since big.Float cannot represent it.
func (f Float128) Big() (value *big.Float, isNaN bool) {
	data := make([]byte, 16)
	copy(data, f[:])
	// f is stored little-endian; the bit-layout math below expects
	// most-significant byte first.
	slices.Reverse(data)

	sign := (data[0] >> 7) & 1
	exponent := uint16(data[0]&0x7F) << 8
	exponent |= uint16(data[1])
	mantissaBits := data[2:16]

	result := new(big.Float).SetPrec(113)

	if exponent == 0x7FFF {
		if isZeroMantissa(mantissaBits) {
			result.SetInf(sign == 1)
			return result, false
		}
		return nil, true
	}

	shiftAmount := new(big.Int).Lsh(big.NewInt(1), 112)

	if exponent == 0 {
		if isZeroMantissa(mantissaBits) {
			result.SetInt64(0)
			return result, false
		}

		mantissaValue := mantissaToBigInt(mantissaBits)
		mantissaFloat := new(big.Float).SetInt(mantissaValue)
		mantissaFloat.Quo(mantissaFloat, new(big.Float).SetInt(shiftAmount))

		power := new(big.Float).SetMantExp(big.NewFloat(1), -16382)
		result.Mul(mantissaFloat, power)

		if sign == 1 {
			result.Neg(result)
		}
		return result, false
	}

	exponentValue := int(exponent) - 16383
	mantissaValue := mantissaToBigInt(mantissaBits)

	mantissaFloat := new(big.Float).SetInt(mantissaValue)
	mantissaFloat.Quo(mantissaFloat, new(big.Float).SetInt(shiftAmount))
	mantissaFloat.Add(mantissaFloat, big.NewFloat(1))

	power := new(big.Float).SetMantExp(big.NewFloat(1), exponentValue)
	result.Mul(mantissaFloat, power)

	if sign == 1 {
		result.Neg(result)
	}

	return result, false
}

func isZeroMantissa(bits []byte) bool {
	for _, b := range bits {
		if b != 0 {
			return false
		}
	}
	return true
}

func mantissaToBigInt(bits []byte) *big.Int {
	result := new(big.Int)
	for _, b := range bits {
		result.Lsh(result, 8)
		result.Or(result, big.NewInt(int64(b)))
	}
	return result
}

func interpretString(b []byte, _ binary.ByteOrder) string { return string(b) }

func interpretBool(b []byte, _ binary.ByteOrder) bool { return b[0] != 0 }

func interpretTimestamp(b []byte, order binary.ByteOrder) Timestamp {
	return Timestamp{
		Seconds:   int64(order.Uint64(b)),
		Fractions: order.Uint64(b[8:]),
	}
}

func interpretComplex64(b []byte, order binary.ByteOrder) complex64 {
	real := math.Float32frombits(order.Uint32(b))
	imag := math.Float32frombits(order.Uint32(b[4:]))
	return complex(real, imag)
}

func interpretComplex128(b []byte, order binary.ByteOrder) complex128 {
	real := math.Float64frombits(order.Uint64(b))
	imag := math.Float64frombits(order.Uint64(b[8:]))
	return complex(real, imag)
}

// parsePath splits a TDMS object path ("/", "/'group'", or
// "/'group'/'channel'") into its group and channel components. Embedded
// single quotes are escaped by doubling ('') and do not terminate a
// component.
func parsePath(path string) (group, channel string, err error) {
	if path == "" || path[0] != '/' {
		return "", "", fmt.Errorf("%w: path %q does not start with '/'", ErrInvalidPath, path)
	}

	components := make([]string, 0, 2)

	i := 0
	for i < len(path) {
		if path[i] != '/' {
			return "", "", fmt.Errorf("%w: expected '/' at byte %d in %q", ErrInvalidPath, i, path)
		}

		if i+1 >= len(path) {
			// Root path with no further components.
			break
		}

		if path[i+1] != '\'' {
			return "", "", fmt.Errorf("%w: expected quoted component at byte %d in %q", ErrInvalidPath, i, path)
		}

		i += 2 // skip over "/'"

		var component strings.Builder
		closed := false
		for i < len(path) {
			c := path[i]
			if c == '\'' {
				if i+1 < len(path) && path[i+1] == '\'' {
					component.WriteByte('\'')
					i += 2
					continue
				}
				closed = true
				i++
				break
			}
			component.WriteByte(c)
			i++
		}

		if !closed {
			return "", "", fmt.Errorf("%w: unterminated quoted component in %q", ErrInvalidPath, path)
		}

		components = append(components, component.String())
	}

	if len(components) > 0 {
		group = components[0]
	}
	if len(components) > 1 {
		channel = components[1]
	}
	if len(components) > 2 {
		return "", "", fmt.Errorf("%w: too many components in %q", ErrInvalidPath, path)
	}

	return group, channel, nil
}
