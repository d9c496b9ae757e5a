package tdms

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// TestChannelInterleavedReadInt32 builds a two-channel interleaved segment
// (row layout a0,b0,a1,b1,a2,b2,a3,b3) and checks that each channel yields
// only its own strided values, matching up against the geometry pinned by
// TestResolveSegmentGeometryInterleaved.
func TestChannelInterleavedReadInt32(t *testing.T) {
	order := binary.LittleEndian

	rawData := []byte{}
	rows := [][2]int32{{0, 1}, {2, 3}, {4, 5}, {6, 7}}
	for _, row := range rows {
		rawData = appendI32(rawData, order, row[0])
		rawData = appendI32(rawData, order, row[1])
	}

	objects := []testObjectSpec{
		{path: "/'g'", hasIndex: false},
		{path: "/'g'/'a'", hasIndex: true, dataType: DataTypeInt32, dim: 1, numValues: 4},
		{path: "/'g'/'b'", hasIndex: true, dataType: DataTypeInt32, dim: 1, numValues: 4},
	}

	data := buildSegment(order, true, objects, rawData)

	f, err := New(bytes.NewReader(data), false, int64(len(data)))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	a := f.Groups["g"].Channels["a"]
	b := f.Groups["g"].Channels["b"]

	gotA := collect(t, a.ReadDataAsInt32())
	gotB := collect(t, b.ReadDataAsInt32())

	wantA := []int32{0, 2, 4, 6}
	wantB := []int32{1, 3, 5, 7}

	if !slicesEqual(gotA, wantA) {
		t.Errorf("channel a values = %v, want %v", gotA, wantA)
	}
	if !slicesEqual(gotB, wantB) {
		t.Errorf("channel b values = %v, want %v", gotB, wantB)
	}
}

// TestChannelInterleavedReadBatchSizeOne exercises the same layout via the
// batch reader with BatchSize(1), which forces every value through its own
// outer-loop iteration.
func TestChannelInterleavedReadBatchSizeOne(t *testing.T) {
	order := binary.LittleEndian

	rawData := []byte{}
	rows := [][2]int32{{0, 1}, {2, 3}, {4, 5}, {6, 7}}
	for _, row := range rows {
		rawData = appendI32(rawData, order, row[0])
		rawData = appendI32(rawData, order, row[1])
	}

	objects := []testObjectSpec{
		{path: "/'g'", hasIndex: false},
		{path: "/'g'/'a'", hasIndex: true, dataType: DataTypeInt32, dim: 1, numValues: 4},
		{path: "/'g'/'b'", hasIndex: true, dataType: DataTypeInt32, dim: 1, numValues: 4},
	}

	data := buildSegment(order, true, objects, rawData)

	f, err := New(bytes.NewReader(data), false, int64(len(data)))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	a := f.Groups["g"].Channels["a"]

	got := collect(t, a.ReadDataAsInt32(BatchSize(1)))
	want := []int32{0, 2, 4, 6}
	if !slicesEqual(got, want) {
		t.Errorf("channel a values with BatchSize(1) = %v, want %v", got, want)
	}
}

// TestChannelStringRead builds the single-segment, single string channel
// layout: an offset table followed by the concatenated string bytes. The
// total-size wire field covers both the offset table and the payload, per
// the NI format (see DESIGN.md).
func TestChannelStringRead(t *testing.T) {
	order := binary.LittleEndian

	strs := []string{"foo", "bar!", "hello"}
	offsets := []uint32{3, 7, 12}

	rawData := []byte{}
	for _, o := range offsets {
		rawData = appendU32(rawData, order, o)
	}
	for _, s := range strs {
		rawData = append(rawData, []byte(s)...)
	}

	objects := []testObjectSpec{
		{path: "/'g'", hasIndex: false},
		{
			path:             "/'g'/'c'",
			hasIndex:         true,
			dataType:         DataTypeString,
			dim:              1,
			numValues:        3,
			stringTotalBytes: uint64(len(offsets)*4 + len("foo") + len("bar!") + len("hello")),
		},
	}

	data := buildSegment(order, false, objects, rawData)

	f, err := New(bytes.NewReader(data), false, int64(len(data)))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	c := f.Groups["g"].Channels["c"]

	got, err := c.ReadDataStringAll()
	if err != nil {
		t.Fatalf("ReadDataStringAll() error: %v", err)
	}

	want := []string{"foo", "bar!", "hello"}
	if !slicesEqualStr(got, want) {
		t.Errorf("string values = %v, want %v", got, want)
	}
}

// TestChannelDAQmxRejected builds a channel with a DAQmx format-changing
// scaler raw data index and checks that attempting to iterate it returns
// ErrNotImplemented rather than silently yielding nothing.
func TestChannelDAQmxRejected(t *testing.T) {
	order := binary.LittleEndian

	meta := appendU32(nil, order, 2) // two objects: group, channel

	meta = appendString(meta, order, "/'g'")
	meta = appendU32(meta, order, rawIndexNoData)
	meta = appendU32(meta, order, 0) // no properties

	meta = appendString(meta, order, "/'g'/'d'")
	meta = appendU32(meta, order, rawIndexFormatChangingScalerA)
	meta = appendU32(meta, order, uint32(DataTypeDAQmxRawData)) // sentinel
	meta = appendU32(meta, order, 1)                            // dimension
	meta = appendU64(meta, order, 1)                            // number of values
	meta = appendU32(meta, order, 1)                            // scaler count
	meta = appendU32(meta, order, uint32(DataTypeInt32))         // scaler data type
	meta = appendU32(meta, order, 0)                             // raw buffer index
	meta = appendU32(meta, order, 0)                             // raw byte offset
	meta = appendU32(meta, order, 0)                             // sample format bitmap
	meta = appendU32(meta, order, 0)                             // scale ID
	meta = appendU32(meta, order, 1)                             // raw buffer width count
	meta = appendU32(meta, order, 4)                             // raw buffer width
	meta = appendU32(meta, order, 0)                             // no properties

	rawData := appendI32(nil, order, 42)

	toc := tocMetaData | tocRawData
	nextSegmentOffset := uint64(len(meta)) + uint64(len(rawData))
	lead := buildLeadInBytes(toc, order, 4713, nextSegmentOffset, uint64(len(meta)))

	data := append(lead, meta...)
	data = append(data, rawData...)

	f, err := New(bytes.NewReader(data), false, int64(len(data)))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	d := f.Groups["g"].Channels["d"]
	if !d.isDAQmx {
		t.Fatal("expected channel d to be flagged as DAQmx")
	}

	_, gotErr, ok := firstValue(d.ReadDataAsInt32())
	if !ok {
		t.Fatal("expected the stream reader to yield one (zero value, error) pair")
	}
	if !errors.Is(gotErr, ErrNotImplemented) {
		t.Errorf("stream error = %v, want ErrNotImplemented", gotErr)
	}

	_, batchErr := readAllData(&d, nil, DataTypeInt32, interpretInt32)
	if !errors.Is(batchErr, ErrNotImplemented) {
		t.Errorf("readAllData error = %v, want ErrNotImplemented", batchErr)
	}
}

func collect[T any](t *testing.T, seq func(func(T, error) bool)) []T {
	t.Helper()
	var out []T
	for v, err := range seq {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out = append(out, v)
	}
	return out
}

func firstValue[T any](seq func(func(T, error) bool)) (T, error, bool) {
	var zero T
	for v, err := range seq {
		return v, err, true
	}
	return zero, nil, false
}

func slicesEqual(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func slicesEqualStr(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
