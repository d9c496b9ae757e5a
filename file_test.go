package tdms

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// TestFileMultiSegmentInheritance mirrors a two-segment file where the second
// segment omits its channel's raw-data index, relying on inheritance from
// the first segment's descriptor (step A), and checks that values from both
// segments concatenate correctly.
func TestFileMultiSegmentInheritance(t *testing.T) {
	order := binary.LittleEndian

	seg1Objects := []testObjectSpec{
		{path: "/'g'", hasIndex: false},
		{path: "/'g'/'a'", hasIndex: true, dataType: DataTypeInt32, dim: 1, numValues: 2},
	}
	seg1Raw := appendI32(nil, order, 10)
	seg1Raw = appendI32(seg1Raw, order, 20)
	seg1 := buildSegment(order, false, seg1Objects, seg1Raw)

	seg2Objects := []testObjectSpec{
		{path: "/'g'/'a'", hasIndex: false},
	}
	seg2Raw := appendI32(nil, order, 30)
	seg2Raw = appendI32(seg2Raw, order, 40)
	seg2 := buildSegment(order, false, seg2Objects, seg2Raw)

	data := append(seg1, seg2...)

	f, err := New(bytes.NewReader(data), false, int64(len(data)))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if f.IsIncomplete {
		t.Error("IsIncomplete = true, want false")
	}

	a := f.Groups["g"].Channels["a"]
	if a.NumValues() != 4 {
		t.Fatalf("NumValues() = %d, want 4", a.NumValues())
	}

	got, err := a.ReadDataInt32All()
	if err != nil {
		t.Fatalf("ReadDataInt32All() error: %v", err)
	}
	want := []int32{10, 20, 30, 40}
	if !slicesEqual(got, want) {
		t.Errorf("values = %v, want %v", got, want)
	}
}

// TestFileGroupAndChannelOrdering checks that GroupNames and ChannelNames
// report first-appearance order rather than map iteration order.
func TestFileGroupAndChannelOrdering(t *testing.T) {
	order := binary.LittleEndian

	objects := []testObjectSpec{
		{path: "/'zebra'", hasIndex: false},
		{path: "/'zebra'/'second'", hasIndex: true, dataType: DataTypeInt32, dim: 1, numValues: 1},
		{path: "/'apple'", hasIndex: false},
		{path: "/'apple'/'first'", hasIndex: true, dataType: DataTypeInt32, dim: 1, numValues: 1},
		{path: "/'zebra'/'firstChannel'", hasIndex: true, dataType: DataTypeInt32, dim: 1, numValues: 1},
	}

	rawData := appendI32(nil, order, 1)
	rawData = appendI32(rawData, order, 2)
	rawData = appendI32(rawData, order, 3)

	data := buildSegment(order, false, objects, rawData)

	f, err := New(bytes.NewReader(data), false, int64(len(data)))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	wantGroups := []string{"zebra", "apple"}
	if !slicesEqualStr(f.GroupNames(), wantGroups) {
		t.Errorf("GroupNames() = %v, want %v", f.GroupNames(), wantGroups)
	}

	wantChannels := []string{"second", "firstChannel"}
	if !slicesEqualStr(f.Groups["zebra"].ChannelNames(), wantChannels) {
		t.Errorf("ChannelNames() = %v, want %v", f.Groups["zebra"].ChannelNames(), wantChannels)
	}
}

// TestFileIncompleteLastSegment checks that the LabVIEW-crash sentinel
// next-segment-offset value sets File.IsIncomplete instead of erroring.
func TestFileIncompleteLastSegment(t *testing.T) {
	order := binary.LittleEndian

	meta := appendU32(nil, order, 0) // no objects

	toc := tocMetaData
	lead := buildLeadInBytes(toc, order, 4713, segmentIncomplete, uint64(len(meta)))
	data := append(lead, meta...)

	f, err := New(bytes.NewReader(data), false, int64(len(data)))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if !f.IsIncomplete {
		t.Error("IsIncomplete = false, want true")
	}
}

// TestFileIncompleteLastSegmentWithRawData checks that a crashed-write final
// segment still computes correct chunk geometry for its raw data, deriving
// the raw data extent from the file's actual length rather than the
// sentinel next-segment-offset value itself.
func TestFileIncompleteLastSegmentWithRawData(t *testing.T) {
	order := binary.LittleEndian

	objects := []testObjectSpec{
		{path: "/'g'", hasIndex: false},
		{path: "/'g'/'a'", hasIndex: true, dataType: DataTypeInt32, dim: 1, numValues: 3},
	}
	meta := buildMetadataBlock(order, objects)

	// Two whole 12-byte chunks (3 int32 values each) plus a partial,
	// truncated third chunk - the crash can land mid-chunk.
	rawData := make([]byte, 0, 28)
	rawData = appendI32(rawData, order, 1)
	rawData = appendI32(rawData, order, 2)
	rawData = appendI32(rawData, order, 3)
	rawData = appendI32(rawData, order, 4)
	rawData = appendI32(rawData, order, 5)
	rawData = appendI32(rawData, order, 6)
	rawData = appendI32(rawData, order, 7) // partial third chunk

	toc := tocMetaData | tocRawData
	lead := buildLeadInBytes(toc, order, 4713, segmentIncomplete, uint64(len(meta)))
	data := append(lead, meta...)
	data = append(data, rawData...)

	f, err := New(bytes.NewReader(data), false, int64(len(data)))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if !f.IsIncomplete {
		t.Error("IsIncomplete = false, want true")
	}

	a := f.Groups["g"].Channels["a"]
	if a.NumValues() != 6 {
		t.Errorf("NumValues() = %d, want 6 (the partial trailing chunk should not count)", a.NumValues())
	}

	got, err := a.ReadDataInt32All()
	if err != nil {
		t.Fatalf("ReadDataInt32All() error: %v", err)
	}
	want := []int32{1, 2, 3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("values = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("values = %v, want %v", got, want)
		}
	}
}

func TestFileBoundaryErrors(t *testing.T) {
	order := binary.LittleEndian

	t.Run("empty file", func(t *testing.T) {
		_, err := New(bytes.NewReader(nil), false, 0)
		if !errors.Is(err, ErrReadFailed) {
			t.Errorf("error = %v, want ErrReadFailed", err)
		}
	})

	t.Run("wrong magic bytes", func(t *testing.T) {
		data := buildLeadInBytes(tocMetaData, order, 4713, 0, 0)
		data[0] = 'X'
		_, err := New(bytes.NewReader(data), false, int64(len(data)))
		if !errors.Is(err, ErrInvalidSegment) {
			t.Errorf("error = %v, want ErrInvalidSegment", err)
		}
	})

	t.Run("truncated lead-in", func(t *testing.T) {
		data := buildLeadInBytes(tocMetaData, order, 4713, 0, 0)[:10]
		_, err := New(bytes.NewReader(data), false, int64(len(data)))
		if !errors.Is(err, ErrReadFailed) {
			t.Errorf("error = %v, want ErrReadFailed", err)
		}
	})

	t.Run("unknown data type", func(t *testing.T) {
		objects := []testObjectSpec{
			{path: "/'g'", hasIndex: false},
			{path: "/'g'/'a'", hasIndex: true, dataType: DataType(0x77), dim: 1, numValues: 1},
		}
		data := buildSegment(order, false, objects, []byte{0, 0, 0, 0})
		_, err := New(bytes.NewReader(data), false, int64(len(data)))
		if !errors.Is(err, ErrUnknownDataType) {
			t.Errorf("error = %v, want ErrUnknownDataType", err)
		}
	})

	t.Run("wrong DAQmx sentinel", func(t *testing.T) {
		meta := appendU32(nil, order, 2)

		meta = appendString(meta, order, "/'g'")
		meta = appendU32(meta, order, rawIndexNoData)
		meta = appendU32(meta, order, 0)

		meta = appendString(meta, order, "/'g'/'d'")
		meta = appendU32(meta, order, rawIndexFormatChangingScalerA)
		meta = appendU32(meta, order, 0) // wrong sentinel, should be DataTypeDAQmxRawData
		meta = appendU32(meta, order, 1)
		meta = appendU64(meta, order, 0) // number of values
		meta = appendU32(meta, order, 0) // zero scalers
		meta = appendU32(meta, order, 0) // zero widths
		meta = appendU32(meta, order, 0) // no properties

		toc := tocMetaData
		lead := buildLeadInBytes(toc, order, 4713, uint64(len(meta)), uint64(len(meta)))
		data := append(lead, meta...)

		_, err := New(bytes.NewReader(data), false, int64(len(data)))
		if !errors.Is(err, ErrInvalidDAQmxDataIndex) {
			t.Errorf("error = %v, want ErrInvalidDAQmxDataIndex", err)
		}
	})
}
