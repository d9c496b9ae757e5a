package tdms

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Sentinel values for the four-byte header that precedes every object's raw
// data index within segment metadata. Everything other than these sentinels
// is the byte length of a standard index descriptor that follows.
const (
	rawIndexNoData         uint32 = 0xFFFFFFFF
	rawIndexMatchesPrevious uint32 = 0x00000000

	rawIndexFormatChangingScalerA uint32 = 0x00001269
	rawIndexFormatChangingScalerB uint32 = 0x69120000

	rawIndexDigitalLineScalerA uint32 = 0x0000126A
	rawIndexDigitalLineScalerB uint32 = 0x00001369
	rawIndexDigitalLineScalerC uint32 = 0x69130000
)

// objectIndex is a standard (non-DAQmx) raw data index: the data type and
// shape of one channel's values within a chunk.
type objectIndex struct {
	dataType       DataType
	arrayDimension uint32
	numValues      uint64

	// rawDataSize is only meaningful for variable-width types (String); it is
	// the total byte length of the channel's raw data within one chunk.
	rawDataSize uint64
}

// formatChangingScaler describes one DAQmx scaler: how to extract a typed
// value for a channel out of a shared raw interleaved buffer.
type formatChangingScaler struct {
	dataType           DataType
	rawBufferIndex     uint32
	rawByteOffset      uint32
	sampleFormatBitmap uint32
	scaleID            uint32
}

// daqmxIndex is a DAQmx raw data index: the declared value count, any
// format-changing scalers, and the byte widths of the raw interleaved
// buffers the scalers read from. The digital-line-scaler variant carries no
// formatChangingScalers at all - its vector-size-plus-records block is
// omitted on the wire, not merely reinterpreted.
type daqmxIndex struct {
	numValues             uint64
	formatChangingScalers []formatChangingScaler
	rawBufferWidths       []uint32
}

// rawDataIndexKind distinguishes what follows the four-byte header.
type rawDataIndexKind int

const (
	// rawDataIndexKindNone means the object's raw-data descriptor is absent
	// from this segment; its geometry, if any, must be inherited from the
	// previous segment's descriptor for the same channel.
	rawDataIndexKindNone rawDataIndexKind = iota
	rawDataIndexKindStandard
	rawDataIndexKindDAQmxFormatChanging
	rawDataIndexKindDAQmxDigitalLine
)

// readRawDataIndexHeader reads the four-byte discriminator that precedes
// every object's raw data index and reports which kind of descriptor (if
// any) follows it in the stream. 0xFFFFFFFF and 0x00000000 are
// indistinguishable in meaning: both mark the descriptor absent.
func readRawDataIndexHeader(r io.Reader, order binary.ByteOrder) (rawDataIndexKind, error) {
	header, err := readUint32(r, order)
	if err != nil {
		return 0, err
	}

	switch header {
	case rawIndexNoData, rawIndexMatchesPrevious:
		return rawDataIndexKindNone, nil
	case rawIndexFormatChangingScalerA, rawIndexFormatChangingScalerB:
		return rawDataIndexKindDAQmxFormatChanging, nil
	case rawIndexDigitalLineScalerA, rawIndexDigitalLineScalerB, rawIndexDigitalLineScalerC:
		return rawDataIndexKindDAQmxDigitalLine, nil
	default:
		// Any other value is the byte length of a standard index
		// descriptor; the caller has already consumed the header, so
		// there is nothing further to validate here.
		return rawDataIndexKindStandard, nil
	}
}

// readStandardObjectIndex reads a standard raw data index body: data type,
// array dimension, and value count, plus a string-specific total size field.
func readStandardObjectIndex(r io.Reader, order binary.ByteOrder) (*objectIndex, error) {
	rawType, err := readUint32(r, order)
	if err != nil {
		return nil, err
	}
	dataType := DataType(rawType)
	if !knownDataType(dataType) {
		return nil, fmt.Errorf("%w: code 0x%X", ErrUnknownDataType, rawType)
	}

	dimension, err := readUint32(r, order)
	if err != nil {
		return nil, err
	}

	numValues, err := readUint64(r, order)
	if err != nil {
		return nil, err
	}

	oi := &objectIndex{
		dataType:       dataType,
		arrayDimension: dimension,
		numValues:      numValues,
	}

	if dataType == DataTypeString {
		size, err := readUint64(r, order)
		if err != nil {
			return nil, err
		}
		oi.rawDataSize = size
	}

	return oi, nil
}

// readDAQmxFormatChangingIndex reads a DAQmx format-changing-scaler raw data
// index: the data type placeholder, dimension, value count, scaler count,
// the scalers themselves, and the widths of the raw buffers they read from.
func readDAQmxFormatChangingIndex(r io.Reader, order binary.ByteOrder) (*daqmxIndex, error) {
	numValues, err := readDAQmxHeader(r, order)
	if err != nil {
		return nil, err
	}

	scalerCount, err := readUint32(r, order)
	if err != nil {
		return nil, err
	}

	idx := &daqmxIndex{
		numValues:             numValues,
		formatChangingScalers: make([]formatChangingScaler, 0, scalerCount),
	}

	for i := uint32(0); i < scalerCount; i++ {
		rawType, err := readUint32(r, order)
		if err != nil {
			return nil, err
		}
		bufIdx, err := readUint32(r, order)
		if err != nil {
			return nil, err
		}
		byteOffset, err := readUint32(r, order)
		if err != nil {
			return nil, err
		}
		bitmap, err := readUint32(r, order)
		if err != nil {
			return nil, err
		}
		scaleID, err := readUint32(r, order)
		if err != nil {
			return nil, err
		}

		idx.formatChangingScalers = append(idx.formatChangingScalers, formatChangingScaler{
			dataType:           DataType(rawType),
			rawBufferIndex:     bufIdx,
			rawByteOffset:      byteOffset,
			sampleFormatBitmap: bitmap,
			scaleID:            scaleID,
		})
	}

	widthCount, err := readUint32(r, order)
	if err != nil {
		return nil, err
	}
	idx.rawBufferWidths = make([]uint32, widthCount)
	for i := range idx.rawBufferWidths {
		w, err := readUint32(r, order)
		if err != nil {
			return nil, err
		}
		idx.rawBufferWidths[i] = w
	}

	return idx, nil
}

// readDAQmxDigitalLineIndex reads a DAQmx digital-line-scaler raw data
// index. Unlike the format-changing variant, it carries no scaler vector at
// all on the wire: after the common header, the next field is directly the
// buffer-width vector.
func readDAQmxDigitalLineIndex(r io.Reader, order binary.ByteOrder) (*daqmxIndex, error) {
	numValues, err := readDAQmxHeader(r, order)
	if err != nil {
		return nil, err
	}

	idx := &daqmxIndex{numValues: numValues}

	widthCount, err := readUint32(r, order)
	if err != nil {
		return nil, err
	}
	idx.rawBufferWidths = make([]uint32, widthCount)
	for i := range idx.rawBufferWidths {
		w, err := readUint32(r, order)
		if err != nil {
			return nil, err
		}
		idx.rawBufferWidths[i] = w
	}

	return idx, nil
}

// readDAQmxHeader reads the three fields common to both DAQmx raw-data-index
// variants - the 0xFFFFFFFF sentinel, the array dimension (always 1, read
// and discarded), and the declared value count - and returns the value
// count for the caller to store.
func readDAQmxHeader(r io.Reader, order binary.ByteOrder) (uint64, error) {
	sentinel, err := readUint32(r, order)
	if err != nil {
		return 0, err
	}
	if DataType(sentinel) != DataTypeDAQmxRawData {
		return 0, fmt.Errorf("%w: expected 0x%X, got 0x%X", ErrInvalidDAQmxDataIndex, uint32(DataTypeDAQmxRawData), sentinel)
	}

	if _, err := readUint32(r, order); err != nil {
		return 0, err
	}

	return readUint64(r, order)
}
