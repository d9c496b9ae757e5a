package tdms

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// channelIndex is the resolved, segment-specific geometry of one channel's
// raw data: its data type, the byte offset of its first value in the first
// chunk, how many values it holds per chunk, the total byte size of one
// chunk's worth of its values, and (for interleaved segments) the stride in
// bytes between consecutive values.
type channelIndex struct {
	dataType  DataType
	offset    int64
	numValues uint64
	totalSize uint64
	stride    int64
}

// object is one path's metadata as recorded within a single segment:
// properties declared (or inherited) at this point in the file, and its
// resolved raw data geometry, if any. daqmx is set instead of index when the
// object's raw data is DAQmx-scaled; this library does not compute
// per-sample geometry for DAQmx raw data.
type object struct {
	path       string
	properties map[string]Property
	index      *channelIndex
	daqmx      *daqmxIndex
}

// rawObjectEntry is the not-yet-geometrically-resolved form of an object's
// raw data index, as read directly off the wire. The segment geometry
// engine turns these into channelIndex values once every object in the
// segment is known.
type rawObjectEntry struct {
	path       string
	properties map[string]Property

	kind     rawDataIndexKind
	standard *objectIndex
	daqmx    *daqmxIndex
}

// segmentMetadata holds every object declared (or carried over) within one
// segment, plus the chunk geometry computed for its raw data block.
type segmentMetadata struct {
	objects   map[string]object
	order     []string // path order, preserved for deterministic iteration
	numChunks uint64
	chunkSize uint64
}

// readSegmentLeadIn reads the next 28-byte lead-in from the file's current
// position.
func (t *File) readSegmentLeadIn() (*leadIn, error) {
	return readLeadIn(t.f, t.isIndex)
}

// readSegmentMetadata reads a segment's metadata block: the object list,
// each object's raw data index and properties, and then resolves the raw
// data chunk geometry for the segment. segmentOffset is this segment's
// offset from the start of the file; rawLen is the number of raw data bytes
// that follow the metadata, already corrected by the caller for the final,
// possibly-incomplete segment of a crashed LabVIEW write. allowPartialChunk
// is set by the caller for that same final segment, to tolerate a raw data
// extent that ends mid-chunk instead of treating it as a malformed file.
func (t *File) readSegmentMetadata(segmentOffset int64, li *leadIn, rawLen uint64, allowPartialChunk bool) (*segmentMetadata, error) {
	numObjects, err := readUint32(t.f, li.byteOrder)
	if err != nil {
		return nil, err
	}

	entries := make([]rawObjectEntry, 0, numObjects)

	for i := uint32(0); i < numObjects; i++ {
		path, err := readString(t.f, li.byteOrder)
		if err != nil {
			return nil, err
		}

		kind, err := readRawDataIndexHeader(t.f, li.byteOrder)
		if err != nil {
			return nil, err
		}

		entry := rawObjectEntry{path: path, kind: kind}

		switch kind {
		case rawDataIndexKindStandard:
			entry.standard, err = readStandardObjectIndex(t.f, li.byteOrder)
		case rawDataIndexKindDAQmxFormatChanging:
			entry.daqmx, err = readDAQmxFormatChangingIndex(t.f, li.byteOrder)
		case rawDataIndexKindDAQmxDigitalLine:
			entry.daqmx, err = readDAQmxDigitalLineIndex(t.f, li.byteOrder)
		case rawDataIndexKindNone:
			// Nothing further to read.
		}
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", path, err)
		}

		numProperties, err := readUint32(t.f, li.byteOrder)
		if err != nil {
			return nil, err
		}

		properties := make(map[string]Property, numProperties)
		for range numProperties {
			prop, err := readProperty(t.f, li.byteOrder)
			if err != nil {
				return nil, fmt.Errorf("object %s: %w", path, err)
			}
			properties[prop.Name] = prop
		}
		entry.properties = properties

		entries = append(entries, entry)
	}

	meta, err := t.resolveSegmentGeometry(segmentOffset, li, entries, rawLen, allowPartialChunk)
	if err != nil {
		return nil, err
	}

	t.mergeObjectState(meta)

	return meta, nil
}

// readProperty reads one name/type/value property record.
func readProperty(r io.Reader, order binary.ByteOrder) (Property, error) {
	name, err := readString(r, order)
	if err != nil {
		return Property{}, err
	}

	rawType, err := readUint32(r, order)
	if err != nil {
		return Property{}, err
	}
	typeCode := DataType(rawType)
	if !knownDataType(typeCode) {
		return Property{}, fmt.Errorf("%w: code 0x%X for property %s", ErrUnknownDataType, rawType, name)
	}

	value, err := readPropertyValue(r, order, typeCode)
	if err != nil {
		return Property{}, fmt.Errorf("property %s: %w", name, err)
	}

	return Property{Name: name, TypeCode: typeCode, Value: value}, nil
}

// readPropertyValue reads the fixed- or variable-width payload of a single
// property value of the given type.
func readPropertyValue(r io.Reader, order binary.ByteOrder, typeCode DataType) (any, error) {
	if typeCode == DataTypeString {
		return readString(r, order)
	}

	size := typeCode.Size()
	if size == 0 {
		return nil, fmt.Errorf("%w: code 0x%X", ErrUnknownDataType, uint32(typeCode))
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Join(ErrReadFailed, err)
	}

	switch typeCode {
	case DataTypeInt8:
		return interpretInt8(buf, order), nil
	case DataTypeInt16:
		return interpretInt16(buf, order), nil
	case DataTypeInt32:
		return interpretInt32(buf, order), nil
	case DataTypeInt64:
		return interpretInt64(buf, order), nil
	case DataTypeUint8:
		return interpretUint8(buf, order), nil
	case DataTypeUint16:
		return interpretUint16(buf, order), nil
	case DataTypeUint32:
		return interpretUint32(buf, order), nil
	case DataTypeUint64:
		return interpretUint64(buf, order), nil
	case DataTypeFloat32, DataTypeFloat32WithUnit:
		return interpretFloat32(buf, order), nil
	case DataTypeFloat64, DataTypeFloat64WithUnit:
		return interpretFloat64(buf, order), nil
	case DataTypeFloat128, DataTypeFloat128WithUnit:
		return interpretFloat128(buf, order), nil
	case DataTypeBool:
		return interpretBool(buf, order), nil
	case DataTypeTimestamp:
		return interpretTimestamp(buf, order), nil
	case DataTypeComplex64:
		return interpretComplex64(buf, order), nil
	case DataTypeComplex128:
		return interpretComplex128(buf, order), nil
	case DataTypeFixedPoint:
		return buf, nil
	default:
		return nil, fmt.Errorf("%w: code 0x%X", ErrUnknownDataType, uint32(typeCode))
	}
}
