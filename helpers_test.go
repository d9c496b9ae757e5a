package tdms

import "encoding/binary"

// Low-level wire encoders shared by the synthetic segment builders below.
// Tests build TDMS byte layouts by hand rather than relying on fixture
// files, since the corpus under test has no reference .tdms files.

func appendU32(buf []byte, order binary.ByteOrder, v uint32) []byte {
	b := make([]byte, 4)
	order.PutUint32(b, v)
	return append(buf, b...)
}

func appendU64(buf []byte, order binary.ByteOrder, v uint64) []byte {
	b := make([]byte, 8)
	order.PutUint64(b, v)
	return append(buf, b...)
}

func appendI32(buf []byte, order binary.ByteOrder, v int32) []byte {
	return appendU32(buf, order, uint32(v))
}

func appendString(buf []byte, order binary.ByteOrder, s string) []byte {
	buf = appendU32(buf, order, uint32(len(s)))
	return append(buf, []byte(s)...)
}

// testObjectSpec describes one metadata object entry for hand-built test
// segments.
type testObjectSpec struct {
	path string

	// hasIndex selects whether a standard raw-data index follows the
	// sentinel header; when false, the "descriptor absent" sentinel
	// (0xFFFFFFFF) is written instead and no index bytes follow.
	hasIndex  bool
	dataType  DataType
	dim       uint32
	numValues uint64
	// stringTotalBytes is only written when dataType == DataTypeString.
	stringTotalBytes uint64

	properties []testPropertySpec
}

type testPropertySpec struct {
	name     string
	dataType DataType
	// value is the already wire-encoded property payload, in the
	// segment's byte order.
	value []byte
}

func appendObjectEntry(buf []byte, order binary.ByteOrder, obj testObjectSpec) []byte {
	buf = appendString(buf, order, obj.path)

	if !obj.hasIndex {
		buf = appendU32(buf, order, rawIndexNoData)
	} else {
		indexLen := uint32(16)
		if obj.dataType == DataTypeString {
			indexLen = 24
		}
		buf = appendU32(buf, order, indexLen)
		buf = appendU32(buf, order, uint32(obj.dataType))
		buf = appendU32(buf, order, obj.dim)
		buf = appendU64(buf, order, obj.numValues)
		if obj.dataType == DataTypeString {
			buf = appendU64(buf, order, obj.stringTotalBytes)
		}
	}

	buf = appendU32(buf, order, uint32(len(obj.properties)))
	for _, p := range obj.properties {
		buf = appendString(buf, order, p.name)
		buf = appendU32(buf, order, uint32(p.dataType))
		buf = append(buf, p.value...)
	}

	return buf
}

func buildMetadataBlock(order binary.ByteOrder, objects []testObjectSpec) []byte {
	meta := appendU32(nil, order, uint32(len(objects)))
	for _, obj := range objects {
		meta = appendObjectEntry(meta, order, obj)
	}
	return meta
}

// buildSegment assembles one complete segment: lead-in, metadata block, and
// raw data bytes, computing next_segment_offset and raw_data_offset itself.
// Passing a nil objects slice omits the metadata flag entirely.
func buildSegment(order binary.ByteOrder, interleaved bool, objects []testObjectSpec, rawData []byte) []byte {
	toc := uint32(0)
	var meta []byte

	if objects != nil {
		toc |= tocMetaData
		meta = buildMetadataBlock(order, objects)
	}
	if len(rawData) > 0 {
		toc |= tocRawData
	}
	if interleaved {
		toc |= tocInterleavedData
	}
	if isBigEndian(order) {
		toc |= tocBigEndian
	}

	rawDataOffset := uint64(len(meta))
	nextSegmentOffset := rawDataOffset + uint64(len(rawData))

	segment := buildLeadInBytes(toc, order, 4713, nextSegmentOffset, rawDataOffset)
	segment = append(segment, meta...)
	segment = append(segment, rawData...)
	return segment
}

func buildLeadInBytes(toc uint32, order binary.ByteOrder, version uint32, nextSegmentOffset, rawDataOffset uint64) []byte {
	buf := make([]byte, 0, leadInSize)
	buf = append(buf, tdmsMagicBytes...)
	buf = appendU32(buf, binary.LittleEndian, toc)
	buf = appendU32(buf, order, version)
	buf = appendU64(buf, order, nextSegmentOffset)
	buf = appendU64(buf, order, rawDataOffset)
	return buf
}

func isBigEndian(order binary.ByteOrder) bool {
	return order == binary.BigEndian
}
