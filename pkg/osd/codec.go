package osd

import (
	"encoding/binary"
	"math"
)

// DescriptorVersion is the only wire version Decode accepts.
const DescriptorVersion byte = 1

const (
	versionSize = 1
	int32Size   = 4
	float64Size = 8
)

// Wire codes. Unknown codes decode to the fallback variant.
var (
	typeCodes = map[Type]int32{
		TypeDisk:    0,
		TypeSSD:     1,
		TypeUnknown: 2,
	}
	typesByCode = map[int32]Type{
		0: TypeDisk,
		1: TypeSSD,
		2: TypeUnknown,
	}

	usageCodes = map[Usage]int32{
		UsageAll:        0,
		UsageRandomIO:   1,
		UsageStreaming:  2,
		UsageUnused:     3,
		UsageBestEffort: 4,
	}
	usagesByCode = map[int32]Usage{
		0: UsageAll,
		1: UsageRandomIO,
		2: UsageStreaming,
		3: UsageUnused,
		4: UsageBestEffort,
	}
)

func typeToCode(t Type) int32 {
	if code, ok := typeCodes[t]; ok {
		return code
	}
	return typeCodes[TypeUnknown]
}

func typeFromCode(code int32) Type {
	if t, ok := typesByCode[code]; ok {
		return t
	}
	return TypeUnknown
}

func usageToCode(u Usage) int32 {
	if code, ok := usageCodes[u]; ok {
		return code
	}
	return usageCodes[UsageUnused]
}

func usageFromCode(code int32) Usage {
	if u, ok := usagesByCode[code]; ok {
		return u
	}
	return UsageUnused
}

// EncodedSize returns the exact number of bytes Encode produces for d.
func EncodedSize(d *Description) int {
	return versionSize +
		int32Size + len(d.identifier) +
		2*int32Size +
		2*float64Size +
		int32Size +
		float64Size*len(d.capabilities.StreamingThroughput)
}

// Encode serializes d for transmission. Reservations are never encoded.
// All integers and floats are big-endian.
func Encode(d *Description) []byte {
	buf := make([]byte, 0, EncodedSize(d))

	buf = append(buf, DescriptorVersion)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(d.identifier)))
	buf = append(buf, d.identifier...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(typeToCode(d.osdType)))
	buf = binary.BigEndian.AppendUint32(buf, uint32(usageToCode(d.usage)))
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(d.capabilities.Capacity))
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(d.capabilities.RandomThroughput))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(d.capabilities.StreamingThroughput)))
	for _, tier := range d.capabilities.StreamingThroughput {
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(tier))
	}

	return buf
}

// Decode parses a descriptor produced by Encode. The returned descriptor has
// an empty ledger. Errors wrap ErrUnsupportedVersion or ErrMalformedPayload.
func Decode(data []byte) (*Description, error) {
	reader := &payloadReader{data: data}

	version, err := reader.readByte("version")
	if err != nil {
		return nil, err
	}
	if version != DescriptorVersion {
		return nil, &VersionError{Version: version}
	}

	identifier, err := reader.readString("identifier")
	if err != nil {
		return nil, err
	}
	typeCode, err := reader.readInt32("type")
	if err != nil {
		return nil, err
	}
	usageCode, err := reader.readInt32("usage")
	if err != nil {
		return nil, err
	}
	capacity, err := reader.readFloat64("capacity")
	if err != nil {
		return nil, err
	}
	randomThroughput, err := reader.readFloat64("random throughput")
	if err != nil {
		return nil, err
	}
	tierCount, err := reader.readInt32("tier count")
	if err != nil {
		return nil, err
	}
	if tierCount < 0 || int(tierCount) > reader.remaining()/float64Size {
		return nil, reader.fail("streaming tiers")
	}

	tiers := make([]float64, tierCount)
	for i := range tiers {
		if tiers[i], err = reader.readFloat64("streaming tier"); err != nil {
			return nil, err
		}
	}

	return &Description{
		identifier: identifier,
		osdType:    typeFromCode(typeCode),
		usage:      usageFromCode(usageCode),
		capabilities: PerformanceProfile{
			Capacity:            capacity,
			RandomThroughput:    randomThroughput,
			StreamingThroughput: tiers,
		},
		reservations: make([]Reservation, 0),
	}, nil
}

// payloadReader reads big-endian fields and refuses to read past the end.
type payloadReader struct {
	data   []byte
	offset int
}

func (r *payloadReader) remaining() int {
	return len(r.data) - r.offset
}

func (r *payloadReader) fail(field string) error {
	return &PayloadError{Field: field, Offset: r.offset}
}

func (r *payloadReader) next(field string, n int) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, r.fail(field)
	}
	chunk := r.data[r.offset : r.offset+n]
	r.offset += n
	return chunk, nil
}

func (r *payloadReader) readByte(field string) (byte, error) {
	chunk, err := r.next(field, versionSize)
	if err != nil {
		return 0, err
	}
	return chunk[0], nil
}

func (r *payloadReader) readInt32(field string) (int32, error) {
	chunk, err := r.next(field, int32Size)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(chunk)), nil
}

func (r *payloadReader) readFloat64(field string) (float64, error) {
	chunk, err := r.next(field, float64Size)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(chunk)), nil
}

func (r *payloadReader) readString(field string) (string, error) {
	length, err := r.readInt32(field + " length")
	if err != nil {
		return "", err
	}
	chunk, err := r.next(field, int(length))
	if err != nil {
		return "", err
	}
	return string(chunk), nil
}
