package tdms

import "fmt"

// DataType is the wire code for a TDMS raw-data or property value, as found
// in the NI TDMS file format specification.
type DataType uint32

const (
	DataTypeVoid     DataType = 0x00
	DataTypeInt8     DataType = 0x01
	DataTypeInt16    DataType = 0x02
	DataTypeInt32    DataType = 0x03
	DataTypeInt64    DataType = 0x04
	DataTypeUint8    DataType = 0x05
	DataTypeUint16   DataType = 0x06
	DataTypeUint32   DataType = 0x07
	DataTypeUint64   DataType = 0x08
	DataTypeFloat32  DataType = 0x09
	DataTypeFloat64  DataType = 0x0A
	DataTypeFloat128 DataType = 0x0B

	// The "with unit" variants are identical on the wire; the unit itself is
	// carried in a "unit_string" property alongside the value, not in the
	// data type code.
	DataTypeFloat32WithUnit  DataType = 0x19
	DataTypeFloat64WithUnit  DataType = 0x1A
	DataTypeFloat128WithUnit DataType = 0x1B

	DataTypeString    DataType = 0x20
	DataTypeBool      DataType = 0x21
	DataTypeTimestamp DataType = 0x44
	DataTypeFixedPoint DataType = 0x4F

	DataTypeComplex64  DataType = 0x08000c
	DataTypeComplex128 DataType = 0x10000d

	// DataTypeDAQmxRawData marks an object as DAQmx raw data; the actual
	// per-scaler data type lives in the format-changing-scaler records
	// instead of this code.
	DataTypeDAQmxRawData DataType = 0xFFFFFFFF
)

// Size returns the fixed on-disk size in bytes of one value of this data
// type. It returns 0 for variable-size types (String) and for
// DAQmxRawData, whose size is opaque at this layer.
func (dt DataType) Size() int {
	switch dt {
	case DataTypeVoid, DataTypeString, DataTypeDAQmxRawData:
		return 0
	case DataTypeInt8, DataTypeUint8, DataTypeBool:
		return 1
	case DataTypeInt16, DataTypeUint16:
		return 2
	case DataTypeInt32, DataTypeUint32, DataTypeFloat32, DataTypeFloat32WithUnit:
		return 4
	case DataTypeInt64, DataTypeUint64, DataTypeFloat64, DataTypeFloat64WithUnit, DataTypeComplex64:
		return 8
	case DataTypeFloat128, DataTypeFloat128WithUnit, DataTypeComplex128, DataTypeTimestamp:
		return 16
	case DataTypeFixedPoint:
		// The on-disk layout of FixedPoint is not documented by NI; a
		// property of this type holds its raw 10-byte payload as a []byte,
		// uncomputed. Channels have no typed reader for this type.
		return 10
	default:
		return 0
	}
}

// String implements [fmt.Stringer].
func (dt DataType) String() string {
	switch dt {
	case DataTypeVoid:
		return "Void"
	case DataTypeInt8:
		return "Int8"
	case DataTypeInt16:
		return "Int16"
	case DataTypeInt32:
		return "Int32"
	case DataTypeInt64:
		return "Int64"
	case DataTypeUint8:
		return "Uint8"
	case DataTypeUint16:
		return "Uint16"
	case DataTypeUint32:
		return "Uint32"
	case DataTypeUint64:
		return "Uint64"
	case DataTypeFloat32, DataTypeFloat32WithUnit:
		return "Float32"
	case DataTypeFloat64, DataTypeFloat64WithUnit:
		return "Float64"
	case DataTypeFloat128, DataTypeFloat128WithUnit:
		return "Float128"
	case DataTypeString:
		return "String"
	case DataTypeBool:
		return "Boolean"
	case DataTypeTimestamp:
		return "Timestamp"
	case DataTypeFixedPoint:
		return "FixedPoint"
	case DataTypeComplex64:
		return "ComplexSingleFloat"
	case DataTypeComplex128:
		return "ComplexDoubleFloat"
	case DataTypeDAQmxRawData:
		return "DAQmxRawData"
	default:
		return fmt.Sprintf("Unknown(0x%X)", uint32(dt))
	}
}

// knownDataType reports whether code is one of the closed set of data types
// this library recognises.
func knownDataType(code DataType) bool {
	switch code {
	case DataTypeVoid, DataTypeInt8, DataTypeInt16, DataTypeInt32, DataTypeInt64,
		DataTypeUint8, DataTypeUint16, DataTypeUint32, DataTypeUint64,
		DataTypeFloat32, DataTypeFloat64, DataTypeFloat128,
		DataTypeFloat32WithUnit, DataTypeFloat64WithUnit, DataTypeFloat128WithUnit,
		DataTypeString, DataTypeBool, DataTypeTimestamp, DataTypeFixedPoint,
		DataTypeComplex64, DataTypeComplex128, DataTypeDAQmxRawData:
		return true
	default:
		return false
	}
}
