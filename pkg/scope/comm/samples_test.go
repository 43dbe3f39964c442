package comm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// trickleReader returns at most one byte per Read, and no data once
// exhausted, like a serial port after its read timeout.
type trickleReader struct {
	data []byte
}

func (r *trickleReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 || len(p) == 0 {
		return 0, nil
	}
	p[0], r.data = r.data[0], r.data[1:]
	return 1, nil
}

func TestSampleValue(t *testing.T) {
	require.Equal(t, 3.3, SampleValue(3300))
	require.Equal(t, 0.0, SampleValue(0))
	require.Equal(t, 65.535, SampleValue(0xffff))
	require.EqualValues(t, 1234, MilliVolts(1.234))
	require.EqualValues(t, -500, MilliVolts(-0.5))
	require.EqualValues(t, 0, MilliVolts(0.0004))
}

func TestReadSampleBlock(t *testing.T) {
	block := EncodeSampleBlock([]uint16{1000, 2000, 1500})
	require.Equal(t, []byte{3, 0, 0, 0, 0xe8, 0x03, 0xd0, 0x07, 0xdc, 0x05, 0xff}, block)

	expected := []Sample{{0, 1.0}, {1, 2.0}, {2, 1.5}}

	samples, err := ReadSampleBlock(bytes.NewReader(block))
	require.NoError(t, err)
	require.Equal(t, expected, samples)

	samples, err = ReadSampleBlock(&trickleReader{data: block})
	require.NoError(t, err)
	require.Equal(t, expected, samples)
}

func TestReadSampleBlockEmpty(t *testing.T) {
	samples, err := ReadSampleBlock(bytes.NewReader(EncodeSampleBlock(nil)))
	require.NoError(t, err)
	require.Empty(t, samples)
}

func TestReadSampleBlockErrors(t *testing.T) {
	good := EncodeSampleBlock([]uint16{1000, 2000, 1500})
	badTerm := append([]byte(nil), good...)
	badTerm[len(badTerm)-1] = 0xfe
	excess := append([]byte{4, 0, 0, 0}, good[4:]...)
	shortfall := append([]byte{2, 0, 0, 0}, good[4:]...)

	testCases := []struct {
		name    string
		in      []byte
		framing bool
	}{
		{"no count", nil, false},
		{"truncated count", []byte{3, 0}, false},
		{"truncated samples", good[:7], false},
		{"missing terminator", good[:len(good)-1], false},
		{"bad terminator", badTerm, true},
		{"declared more than sent", excess, false},
		{"declared fewer than sent", shortfall, true},
		{"count too large", []byte{0, 0, 1, 0}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			samples, err := ReadSampleBlock(&trickleReader{data: tc.in})
			require.Error(t, err)
			require.Nil(t, samples)
			if tc.framing {
				require.IsType(t, &FramingError{}, err)
			} else {
				require.Equal(t, ErrTimeout, err)
			}
		})
	}
}
