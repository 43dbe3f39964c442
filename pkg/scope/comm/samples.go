package comm

import (
	"encoding/binary"
	"io"
	"math"
)

// Sample is one reconstructed measurement.
type Sample struct {
	Index int
	Value float64 // volts
}

// BlockTerminator ends a sample block.
const BlockTerminator byte = 0xff

// MaxBlockSamples is the largest count accepted in a sample block.
// The firmware counts samples with a 16-bit counter.
const MaxBlockSamples = 0xffff

// SampleValue converts a raw wire value (millivolts) to volts.
func SampleValue(raw uint16) float64 {
	return float64(raw) / 1000
}

// MilliVolts converts volts to the wire representation.
func MilliVolts(volts float64) int32 {
	return int32(math.Round(volts * 1000))
}

// ReadSampleBlock reads one sample block following a successful
// DOWNLOAD_DATA status. Either the complete block is returned or nothing.
func ReadSampleBlock(r io.Reader) ([]Sample, error) {
	head, err := readFull(r, 4)
	if err != nil {
		return nil, err
	}
	count := binary.LittleEndian.Uint32(head)
	if count > MaxBlockSamples {
		return nil, &FramingError{Count: count}
	}
	data, err := readFull(r, int(count)*2+1)
	if err != nil {
		return nil, err
	}
	if term := data[len(data)-1]; term != BlockTerminator {
		return nil, &FramingError{Count: count, Terminator: term}
	}
	samples := make([]Sample, count)
	for i := range samples {
		samples[i] = Sample{
			Index: i,
			Value: SampleValue(binary.LittleEndian.Uint16(data[i*2:])),
		}
	}
	return samples, nil
}

// EncodeSampleBlock encodes raw values as a terminated sample block.
func EncodeSampleBlock(raw []uint16) []byte {
	b := make([]byte, 4+len(raw)*2+1)
	binary.LittleEndian.PutUint32(b, uint32(len(raw)))
	for i, v := range raw {
		binary.LittleEndian.PutUint16(b[4+i*2:], v)
	}
	b[len(b)-1] = BlockTerminator
	return b
}
