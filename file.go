package tdms

import (
	"fmt"
	"io"
	"maps"
	"os"
	"strings"
)

// File represents a parsed TDMS file. Use [Open] to open a file by path, or
// [New] to create a File from an [io.ReadSeeker].
type File struct {
	Groups       map[string]Group
	Properties   map[string]Property
	IsIncomplete bool

	f        io.ReadSeeker
	size     int64
	isIndex  bool
	segments []segment

	// objects holds the running, most-recently-seen state for every object
	// path in the file: its merged properties and its latest raw data
	// descriptor. It does not hold pointers shared with any segment's own
	// metadata - we want to be able to update it independently as later
	// segments are read, without mutating an earlier segment's view of the
	// object as it appeared at that point in the file.
	objects map[string]object

	// objectOrder records each path's first appearance, so the final
	// Groups/Channels maps can be populated in file order rather than in
	// arbitrary map iteration order.
	objectOrder []string
	groupOrder  []string
}

// GroupNames returns the names of the file's groups in the order they first
// appeared in the file.
func (t *File) GroupNames() []string {
	return t.groupOrder
}

// Group represents a group within a TDMS file, containing channels and
// properties.
type Group struct {
	Name       string
	Channels   map[string]Channel
	Properties map[string]Property

	f            *File
	channelOrder []string
}

// ChannelNames returns the names of this group's channels in the order they
// first appeared in the file.
func (g Group) ChannelNames() []string {
	return g.channelOrder
}

// New creates a [File] from the given [io.ReadSeeker]. Set isIndex to true when
// reading a .tdms_index file. The size parameter must be the total byte length
// of the data accessible through reader.
func New(reader io.ReadSeeker, isIndex bool, size int64) (*File, error) {
	// Properties can be overwritten from one segment to the next, so in order
	// to know the objects and properties, we need to read the metadata for each
	// segment upfront. For ease of use, we do this here.
	f := &File{
		Groups:     make(map[string]Group),
		Properties: make(map[string]Property),
		f:          reader,
		size:       size,
		isIndex:    isIndex,
		objects:    make(map[string]object),
	}

	if err := f.readMetadata(); err != nil {
		return nil, err
	}

	return f, nil
}

// Open opens and parses the TDMS file at the given path. If the filename ends
// with ".tdms_index", it is treated as an index file. The caller must call
// [File.Close] when done.
func Open(filename string) (*File, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filename, err)
	}

	fileInfo, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to get file info for %s: %w", filename, err)
	}

	f, err := New(
		file,
		strings.HasSuffix(filename, ".tdms_index"),
		fileInfo.Size(),
	)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	return f, nil
}

// Close closes the underlying file if the File was created via [Open]. It is
// safe to call on Files created via [New] (it is a no-op in that case).
func (t *File) Close() error {
	if file, ok := t.f.(*os.File); ok && file != nil {
		return file.Close()
	}

	return nil
}

// readMetadata reads the metadata for each segment in the file.
func (t *File) readMetadata() error {
	t.segments = make([]segment, 0)

	i := 0
	currentOffset := int64(0)

	_, err := t.f.Seek(0, io.SeekStart)
	if err != nil {
		return fmt.Errorf("failed to seek to beginning of metadata file: %w", err)
	}

	for {
		leadIn, err := t.readSegmentLeadIn()
		if err != nil {
			return fmt.Errorf("failed to read segment %d lead in: %w", i, err)
		}

		if leadIn.containsMetadata {
			// The raw data extent is normally next_segment_offset minus the
			// metadata length, but a crashed LabVIEW write leaves
			// next_segment_offset as the 0xFFFFFFFFFFFFFFFF sentinel on the
			// final segment; there the true extent is whatever raw data
			// bytes actually remain in the file.
			var rawLen uint64
			allowPartialChunk := leadIn.nextSegmentOffset == segmentIncomplete
			if allowPartialChunk {
				rawLen = uint64(t.size - currentOffset - int64(leadInSize) - int64(leadIn.rawDataOffset))
			} else {
				rawLen = leadIn.nextSegmentOffset - leadIn.rawDataOffset
			}

			metadata, err := t.readSegmentMetadata(currentOffset, leadIn, rawLen, allowPartialChunk)
			if err != nil {
				return fmt.Errorf("failed to read segment %d metadata: %w", i, err)
			}

			t.segments = append(t.segments, segment{
				offset:   currentOffset,
				leadIn:   leadIn,
				metadata: metadata,
			})
		}

		// The next segment offset is the offset from the end of the lead in.
		currentOffset += int64(leadIn.nextSegmentOffset) + int64(leadInSize)

		if leadIn.nextSegmentOffset == segmentIncomplete {
			// Special value indicates that LabVIEW crashes while writing the final segment.
			t.IsIncomplete = true
			break
		}

		if currentOffset >= t.size {
			// We've reached the end of the file, all segments are read.
			t.IsIncomplete = false
			break
		}

		// If we're reading an index file, there's no data so one segment's
		// metadata leads directly into the next segment's lead in.
		if !t.isIndex {
			_, err := t.f.Seek(currentOffset, io.SeekStart)
			if err != nil {
				return fmt.Errorf("failed to seek to segment %d: %w", i, err)
			}
		}

		i++
	}

	// Now that we have all the objects, parse their paths and fill the file,
	// group, and channel fields accordingly, in the order each path first
	// appeared in the file.

	// We hold the channels in a list, keyed by full path to avoid collisions
	// between same-named channels in different groups, and add them all to
	// their respective groups at the end. This avoids processing a channel
	// before we've added the corresponding group, since the two can appear
	// in either order across segments.
	type pendingChannel struct {
		groupName string
		channel   Channel
	}
	channels := make(map[string]pendingChannel, len(t.objectOrder))
	channelPaths := make([]string, 0, len(t.objectOrder))

	for _, path := range t.objectOrder {
		obj := t.objects[path]

		groupName, channelName, err := parsePath(obj.path)
		if err != nil {
			return fmt.Errorf("failed to parse path for object %s: %w", obj.path, err)
		}

		if groupName == "" {
			// This is a root-level object, so merge the properties into the
			// root file object.
			maps.Copy(t.Properties, obj.properties)
		} else if channelName == "" {
			// This is a group object, so add it to the file's groups.
			t.Groups[groupName] = Group{
				Name:       groupName,
				Properties: obj.properties,
				Channels:   make(map[string]Channel),
				f:          t,
			}
			t.groupOrder = append(t.groupOrder, groupName)
		} else {
			// This is a channel object, so add it to the group's channels.

			// Pre-compute the positions and metadata for each data chunk that
			// this channel has, if any. This makes reading data for this
			// channel much simpler.
			chunks := make([]dataChunk, 0, len(t.segments))
			for _, segment := range t.segments {
				if !segment.leadIn.containsRawData {
					continue
				}

				segObj, ok := segment.metadata.objects[obj.path]
				if !ok || segObj.index == nil {
					continue
				}

				for chunkIdx := range segment.metadata.numChunks {
					chunks = append(chunks, dataChunk{
						offset:        segObj.index.offset + int64(chunkIdx*segment.metadata.chunkSize),
						isInterleaved: segment.leadIn.isInterleaved,
						order:         segment.leadIn.byteOrder,
						size:          segObj.index.totalSize,
						numValues:     segObj.index.numValues,
						stride:        segObj.index.stride,
					})
				}
			}

			totalNumValues := uint64(0)
			for _, chunk := range chunks {
				totalNumValues += chunk.numValues
			}

			var dataType DataType
			switch {
			case obj.index != nil:
				dataType = obj.index.dataType
			case obj.daqmx != nil:
				dataType = DataTypeDAQmxRawData
			}

			channels[path] = pendingChannel{
				groupName: groupName,
				channel: Channel{
					Name:           channelName,
					GroupName:      groupName,
					DataType:       dataType,
					Properties:     obj.properties,
					f:              t,
					path:           obj.path,
					dataChunks:     chunks,
					totalNumValues: totalNumValues,
					isDAQmx:        obj.daqmx != nil,
				},
			}
			channelPaths = append(channelPaths, path)
		}
	}

	for _, path := range channelPaths {
		pending := channels[path]
		channel := pending.channel

		group, exists := t.Groups[pending.groupName]
		if !exists {
			return fmt.Errorf("%w: channel %s sits under non-existent group %s",
				ErrInvalidFileFormat,
				channel.Name,
				pending.groupName,
			)
		}

		group.Channels[channel.Name] = channel
		group.channelOrder = append(group.channelOrder, channel.Name)
		t.Groups[pending.groupName] = group
	}

	return nil
}
