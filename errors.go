package tdms

import "errors"

// Sentinel errors returned by this package. Use [errors.Is] to test for
// them; most are wrapped with additional context via fmt.Errorf("%w: ...").
var (
	// ErrInvalidSegment indicates a segment's lead-in tag did not match "TDSm"
	// (or "TDSh" for an index file).
	ErrInvalidSegment = errors.New("invalid segment lead-in")

	// ErrUnsupportedVersion indicates that the TDMS file uses a version not
	// recognised by this library.
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrUnknownDataType indicates a raw-data-index or property type code
	// that is not one of the known TDMS data types.
	ErrUnknownDataType = errors.New("unknown data type")

	// ErrStringConversion indicates that an object path, property name, or
	// string property value was not valid UTF-8. String channel values are
	// not validated and are returned as read.
	ErrStringConversion = errors.New("string conversion failed")

	// ErrIntConversion indicates that a length or count read from the file
	// does not fit the host's index type.
	ErrIntConversion = errors.New("integer conversion failed")

	// ErrInvalidDAQmxDataIndex indicates a DAQmx raw-data index whose leading
	// sentinel was not 0xFFFFFFFF.
	ErrInvalidDAQmxDataIndex = errors.New("invalid DAQmx data index")

	// ErrGroupDoesNotExist indicates that a later segment, reached mid-
	// iteration, does not contain the group a channel iterator is reading.
	ErrGroupDoesNotExist = errors.New("group does not exist")

	// ErrChannelDoesNotExist indicates that a later segment, reached mid-
	// iteration, does not contain the channel a channel iterator is reading.
	ErrChannelDoesNotExist = errors.New("channel does not exist")

	// ErrEndOfSegments indicates that iteration reached the end of the file.
	// This is an expected termination condition, not a failure.
	ErrEndOfSegments = errors.New("end of segments")

	// ErrNotImplemented indicates a feature that is intentionally
	// unsupported, such as iterating DAQmx raw channel data.
	ErrNotImplemented = errors.New("not implemented")

	// ErrReadFailed wraps an underlying I/O failure from the reader.
	ErrReadFailed = errors.New("failed to read data")

	// ErrInvalidFileFormat indicates that the TDMS file structure is
	// malformed or doesn't conform to the specification.
	ErrInvalidFileFormat = errors.New("invalid file format")

	// ErrInvalidPath indicates that an object path within the TDMS file is
	// not properly formatted.
	ErrInvalidPath = errors.New("invalid object path")

	// ErrIncorrectType indicates that a typed accessor was called for a
	// property or channel whose actual data type differs.
	ErrIncorrectType = errors.New("incorrect data type")
)
