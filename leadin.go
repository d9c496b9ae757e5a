package tdms

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const leadInSize = 28

// ToC flag bits. The ToC word itself is always decoded little-endian,
// regardless of kBigEndian — spec.md invariant 7.
const (
	tocMetaData         uint32 = 0x02
	tocNewObjList       uint32 = 0x04
	tocRawData          uint32 = 0x08
	tocInterleavedData  uint32 = 0x20
	tocBigEndian        uint32 = 0x40
	tocDAQmxRawData     uint32 = 0x80
)

// segmentIncomplete is the sentinel next-segment-offset value LabVIEW
// writes when it crashes mid-write: the true length must be derived from
// the file's actual size instead.
const segmentIncomplete uint64 = 0xFFFFFFFFFFFFFFFF

var (
	tdmsMagicBytes      = []byte{'T', 'D', 'S', 'm'}
	tdmsIndexMagicBytes = []byte{'T', 'D', 'S', 'h'}
)

// leadIn is the 28-byte segment header: tag, ToC flags, version, and the two
// offsets that bound the segment's metadata and raw data.
type leadIn struct {
	containsMetadata bool
	newObjectList    bool
	containsRawData  bool
	isInterleaved    bool
	byteOrder        binary.ByteOrder
	containsDAQmx    bool
	version          uint32

	// nextSegmentOffset is the number of bytes from the end of this lead-in
	// to the end of the segment. May be segmentIncomplete.
	nextSegmentOffset uint64

	// rawDataOffset is the number of bytes from the end of this lead-in to
	// the start of the raw data (i.e. the size of the metadata block).
	rawDataOffset uint64
}

// readLeadIn reads and parses one 28-byte segment lead-in from r. isIndex
// selects the expected magic bytes ("TDSh" for a .tdms_index file, "TDSm"
// otherwise).
func readLeadIn(r io.Reader, isIndex bool) (*leadIn, error) {
	buf := make([]byte, leadInSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Join(ErrReadFailed, err)
	}

	want := tdmsMagicBytes
	if isIndex {
		want = tdmsIndexMagicBytes
	}
	if !bytes.Equal(buf[:4], want) {
		return nil, fmt.Errorf("%w: expected magic bytes %q, got %q", ErrInvalidSegment, want, buf[:4])
	}

	// The ToC bitmask is always little-endian, even when the rest of the
	// segment is big-endian.
	tocMask := binary.LittleEndian.Uint32(buf[4:8])

	li := &leadIn{
		byteOrder: binary.LittleEndian,
	}

	if tocMask&tocMetaData != 0 {
		li.containsMetadata = true
	}
	if tocMask&tocNewObjList != 0 {
		li.newObjectList = true
	}
	if tocMask&tocRawData != 0 {
		li.containsRawData = true
	}
	if tocMask&tocInterleavedData != 0 {
		li.isInterleaved = true
	}
	if tocMask&tocBigEndian != 0 {
		li.byteOrder = binary.BigEndian
	}
	if tocMask&tocDAQmxRawData != 0 {
		li.containsDAQmx = true
	}

	li.version = li.byteOrder.Uint32(buf[8:12])
	li.nextSegmentOffset = li.byteOrder.Uint64(buf[12:20])
	li.rawDataOffset = li.byteOrder.Uint64(buf[20:28])

	return li, nil
}
