package comm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandShape(t *testing.T) {
	testCases := []struct {
		cmd   Command
		code  byte
		shape PayloadShape
	}{
		{CmdSetTrigger, 0, PayloadInt32},
		{CmdSetMode, 1, PayloadByte},
		{CmdPing, 2, PayloadNone},
		{CmdSetSamples, 3, PayloadUint32},
		{CmdSetPrecision, 4, PayloadUint32},
		{CmdIsDataAvail, 5, PayloadNone},
		{CmdDownloadData, 6, PayloadNone},
		{CmdTurnOff, 7, PayloadNone},
		{CmdTrigMode, 8, PayloadNone},
		{CmdTrigNow, 9, PayloadNone},
	}
	for _, tc := range testCases {
		t.Run(tc.cmd.String(), func(t *testing.T) {
			require.True(t, tc.cmd.IsValid())
			require.Equal(t, tc.code, byte(tc.cmd))
			require.Equal(t, tc.shape, tc.cmd.Shape())
		})
	}
	require.False(t, Command(10).IsValid())
	require.Equal(t, "CMD(10)", Command(10).String())
}

func TestFrame(t *testing.T) {
	testCases := []struct {
		name   string
		frame  Frame
		expect []byte
	}{
		{"ping", NewFrame(CmdPing), []byte{2}},
		{"trig now", NewFrame(CmdTrigNow), []byte{9}},
		{"trigger level", TriggerLevelFrame(1.234), []byte{0, 0xd2, 0x04, 0, 0}},
		{"negative trigger level", TriggerLevelFrame(-0.5), []byte{0, 0x0c, 0xfe, 0xff, 0xff}},
		{"mode", ModeFrame(1), []byte{1, 1}},
		{"samples", SamplesFrame(2000), []byte{3, 0xd0, 0x07, 0, 0}},
		{"precision", PrecisionFrame(10000), []byte{4, 0x10, 0x27, 0, 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, tc.frame.Bytes())
			var buf bytes.Buffer
			n, err := tc.frame.WriteTo(&buf)
			require.NoError(t, err)
			require.Equal(t, tc.expect, buf.Bytes())
			require.EqualValues(t, len(tc.expect), n)

			decoded, err := DecodeFrame(buf.Bytes())
			require.NoError(t, err)
			require.Equal(t, tc.frame.Command, decoded.Command)
			require.Equal(t, tc.frame.Payload, decoded.Payload)
		})
	}
}

func TestFramePayloadValues(t *testing.T) {
	require.EqualValues(t, 1234, TriggerLevelFrame(1.234).Int32())
	require.EqualValues(t, -500, TriggerLevelFrame(-0.5).Int32())
	require.EqualValues(t, 3300, TriggerLevelFrame(3.3).Int32())
	require.EqualValues(t, 4000, SamplesFrame(4000).Uint32())
	require.EqualValues(t, 7, ModeFrame(7).Byte())
	require.Zero(t, NewFrame(CmdPing).Uint32())
}

func TestDecodeFrameErrors(t *testing.T) {
	testCases := []struct {
		name string
		in   []byte
		err  error
	}{
		{"empty", nil, ErrFrameSize},
		{"unknown command", []byte{0x0a}, ErrUnknownCommand},
		{"short payload", []byte{0, 1, 2}, ErrFrameSize},
		{"excess payload", []byte{2, 0}, ErrFrameSize},
		{"missing mode", []byte{1}, ErrFrameSize},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeFrame(tc.in)
			require.Equal(t, tc.err, err)
		})
	}
}

func TestStatus(t *testing.T) {
	require.Equal(t, StatusTimeout, DecodeStatus(nil))
	require.Equal(t, StatusOK, DecodeStatus([]byte{0}))
	require.Equal(t, Status(2), DecodeStatus([]byte{2, 0xff}))
	require.True(t, StatusOK.OK())
	require.False(t, StatusTimeout.OK())
	require.True(t, StatusTimeout.IsTimeout())
	require.False(t, Status(1).IsTimeout())
	require.Equal(t, "ok", StatusOK.String())
	require.Equal(t, "timeout", StatusTimeout.String())
	require.Equal(t, "status 2", Status(2).String())
}
