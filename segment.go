package tdms

import (
	"encoding/binary"
	"fmt"
)

// segment is one parsed lead-in plus its resolved metadata, recorded at the
// byte offset where its lead-in begins.
type segment struct {
	offset   int64
	leadIn   *leadIn
	metadata *segmentMetadata
}

// dataChunk is one fully-resolved chunk position for a single channel: where
// it starts, how many bytes and values it holds, and how to step through it
// (interleaved stride, byte order). A channel's dataChunks list flattens
// every chunk from every segment it appears in, so reading never needs to
// revisit segment or metadata state.
type dataChunk struct {
	offset        int64
	size          uint64
	numValues     uint64
	order         binary.ByteOrder
	isInterleaved bool
	stride        int64
}

// resolveSegmentGeometry implements the segment geometry engine (step A-D):
// it inherits missing channel descriptors from the file's running object
// state, then lays out each standard-indexed object's raw data within the
// segment's chunks, under either contiguous or interleaved layout.
//
// t.objects holds the accumulated, most-recently-seen descriptor and
// properties for every object path encountered so far; it is read here for
// inheritance (step A) and updated by the caller once this segment's
// metadata has been resolved.
func (t *File) resolveSegmentGeometry(segmentOffset int64, li *leadIn, entries []rawObjectEntry, rawLen uint64, allowPartialChunk bool) (*segmentMetadata, error) {
	meta := &segmentMetadata{
		objects: make(map[string]object, len(entries)),
		order:   make([]string, 0, len(entries)),
	}

	type resolvedEntry struct {
		path     string
		props    map[string]Property
		standard *objectIndex
		daqmx    *daqmxIndex
	}

	resolved := make([]resolvedEntry, 0, len(entries))

	for _, entry := range entries {
		r := resolvedEntry{path: entry.path, props: entry.properties}

		switch entry.kind {
		case rawDataIndexKindStandard:
			r.standard = entry.standard
		case rawDataIndexKindDAQmxFormatChanging, rawDataIndexKindDAQmxDigitalLine:
			r.daqmx = entry.daqmx
		case rawDataIndexKindNone:
			// Step A: descriptor inheritance. Root ("/") and group-only
			// ("/'group'") paths never carry raw data, so only channel
			// paths are eligible.
			group, channel, err := parsePath(entry.path)
			if err != nil {
				return nil, err
			}
			if group != "" && channel != "" {
				if prevObj, ok := t.objects[entry.path]; ok && prevObj.index != nil {
					r.standard = &objectIndex{
						dataType:       prevObj.index.dataType,
						arrayDimension: 1,
						numValues:      prevObj.index.numValues,
						rawDataSize:    prevObj.index.totalSize,
					}
				}
			}
		}

		resolved = append(resolved, r)
	}

	// Only objects with a standard index occupy space in the raw data
	// block; DAQmx raw data is read through its own scalers, not through
	// the per-object chunk mechanism this library exposes for iteration.
	type rawObject struct {
		path  string
		index objectIndex
	}
	var rawObjects []rawObject
	for _, r := range resolved {
		if r.standard != nil {
			rawObjects = append(rawObjects, rawObject{path: r.path, index: *r.standard})
		}
	}

	rawDataStart := segmentOffset + leadInSize + int64(li.rawDataOffset)

	indexByPath := make(map[string]*channelIndex, len(rawObjects))
	var chunkSize uint64

	if li.isInterleaved {
		// Step C. Every object contributes exactly size(type) once per
		// row; row_size and chunk_size are the same quantity here.
		for _, ro := range rawObjects {
			chunkSize += uint64(ro.index.dataType.Size())
		}
		rowSize := chunkSize

		runningOffset := uint64(0)
		for _, ro := range rawObjects {
			dataSize := uint64(ro.index.dataType.Size())
			interleavedOffset := rowSize - dataSize

			// The source computes the first chunk's end as
			// chunk_size - interleaved_offset + row_size. By the time
			// every object has been processed, chunk_size has
			// accumulated to row_size, so this reduces to
			// row_size + dataSize - that reduction (not a plain
			// dataSize span) is what's implemented here, matching the
			// source's documented-but-unusual formula (see DESIGN.md).
			indexByPath[ro.path] = &channelIndex{
				dataType: ro.index.dataType,
				offset:   rawDataStart + int64(runningOffset),
				// One Step-C chunk holds exactly one row, i.e. one value
				// per channel; the declared metadata count describes the
				// channel's total across all replicated chunks (Step D),
				// not this chunk's own value count.
				numValues: 1,
				stride:    int64(interleavedOffset),
				totalSize: rowSize + dataSize,
			}
			runningOffset += dataSize
		}
	} else {
		// Step B.
		runningOffset := uint64(0)
		for _, ro := range rawObjects {
			span := ro.index.rawDataSize
			if span == 0 && ro.index.dataType != DataTypeString {
				span = ro.index.numValues * uint64(ro.index.dataType.Size())
			}

			indexByPath[ro.path] = &channelIndex{
				dataType:  ro.index.dataType,
				offset:    rawDataStart + int64(runningOffset),
				numValues: ro.index.numValues,
				totalSize: span,
			}

			runningOffset += span
			chunkSize += span
		}
	}

	// Step D bookkeeping: the number of whole chunks in this segment's raw
	// data extent. Individual chunk positions are derived on demand by the
	// caller as offset + k*chunkSize, rather than stored as an explicit
	// list, since every chunk after the first is a pure translation.
	//
	// A non-exact division is normally a malformed file (spec.md §3
	// invariant 3). The one exception is the final segment of a crashed
	// LabVIEW write: its trailing chunk may be genuinely truncated, and the
	// caller sets allowPartialChunk so that chunk is simply dropped instead
	// of rejected, matching the teacher's plain integer division here.
	var numChunks uint64
	if li.containsRawData && chunkSize > 0 {
		if rawLen%chunkSize != 0 && !allowPartialChunk {
			return nil, fmt.Errorf("%w: raw data extent %d is not a multiple of chunk size %d", ErrInvalidFileFormat, rawLen, chunkSize)
		}
		numChunks = rawLen / chunkSize
	}

	for _, r := range resolved {
		obj := object{path: r.path, properties: r.props, daqmx: r.daqmx}
		if idx, ok := indexByPath[r.path]; ok {
			obj.index = idx
		} else if r.standard == nil && r.daqmx == nil {
			if prevObj, ok := t.objects[r.path]; ok {
				obj.index = prevObj.index
				obj.daqmx = prevObj.daqmx
			}
		}
		meta.objects[r.path] = obj
		meta.order = append(meta.order, r.path)
	}

	meta.numChunks = numChunks
	meta.chunkSize = chunkSize

	return meta, nil
}

// mergeObjectState folds a segment's resolved objects into the file's
// running per-path state: properties declared in this segment overwrite
// earlier ones of the same name, and a resolved raw data descriptor
// replaces the previous one (step A draws on exactly this accumulated
// state for the next segment).
func (t *File) mergeObjectState(meta *segmentMetadata) {
	for _, path := range meta.order {
		obj := meta.objects[path]

		existing, ok := t.objects[path]
		if !ok {
			merged := make(map[string]Property, len(obj.properties))
			for k, v := range obj.properties {
				merged[k] = v
			}
			t.objects[path] = object{path: path, properties: merged, index: obj.index, daqmx: obj.daqmx}
			t.objectOrder = append(t.objectOrder, path)
			continue
		}

		for k, v := range obj.properties {
			existing.properties[k] = v
		}
		if obj.daqmx != nil {
			existing.daqmx = obj.daqmx
		}
		if obj.index != nil {
			existing.index = obj.index
		}
		t.objects[path] = existing
	}
}
