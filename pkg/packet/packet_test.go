package packet

import (
	"testing"

	"github.com/appnet-org/netplay/pkg/input"
	"github.com/appnet-org/netplay/pkg/stream"
	"github.com/stretchr/testify/require"
)

func fullBatch(seq uint32) *InputBatch {
	var samples [input.BatchSize]input.Sample
	for i := range samples {
		samples[i] = input.Sample{Intent: input.Intent(i % 8), Ticks: uint64(16_000_000 + i)}
	}
	return NewInputBatch(seq, samples)
}

func TestRoundTripAllVariants(t *testing.T) {
	testCases := []struct {
		name  string
		msg   Message
		fresh func() Message
		size  int
	}{
		{"ConnectionRequest", NewConnectionRequest(0x8000_1234), func() Message { return &ConnectionRequest{} }, 5},
		{"ConnectionResponse", NewConnectionResponse(ResponseMagic), func() Message { return &ConnectionResponse{} }, 5},
		{"Disconnect", NewDisconnect(), func() Message { return &Disconnect{} }, 1},
		{"Input", NewInput(true, false, true), func() Message { return &Input{} }, 2},
		{"InputBatch", fullBatch(42), func() Message { return &InputBatch{} }, 1 + 4 + input.BatchSize*9},
		{"PartialInputBatch", NewInputBatch(7, [input.BatchSize]input.Sample{{Intent: input.IntentUp, Ticks: 3}}), func() Message { return &InputBatch{} }, 1 + 4 + input.BatchSize*9},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.size, SizeOf(tc.msg))

			// Buffer sized to exactly fit.
			buf := stream.NewBuffer(SizeOf(tc.msg))
			require.NoError(t, Encode(tc.msg, buf))
			require.Equal(t, tc.size, buf.Len())
			require.Equal(t, byte(tc.msg.PacketType().TypeID), buf.Bytes()[0], "tag is the first byte")

			got := tc.fresh()
			require.NoError(t, DecodeAs(buf, got))
			require.True(t, got.IsValid())
			require.Equal(t, tc.msg, got)

			decoded, err := Decode(buf)
			require.NoError(t, err)
			require.Equal(t, tc.msg, decoded)
		})
	}
}

func TestEncodeFailsWhenBufferTooSmall(t *testing.T) {
	batch := fullBatch(1)
	buf := stream.NewBuffer(SizeOf(batch) - 1)
	err := Encode(batch, buf)
	require.ErrorIs(t, err, stream.ErrCapacityExceeded)
	require.Equal(t, 0, buf.Len(), "failed encode leaves nothing to send")
}

func TestDecodeTruncated(t *testing.T) {
	buf := stream.NewBuffer(stream.MaxDatagramSize)
	require.NoError(t, Encode(NewConnectionRequest(9), buf))
	require.NoError(t, buf.SetLen(3))

	var req ConnectionRequest
	require.ErrorIs(t, DecodeAs(buf, &req), stream.ErrUnexpectedEnd)

	_, err := Decode(buf)
	require.ErrorIs(t, err, stream.ErrUnexpectedEnd)

	empty := stream.NewBuffer(8)
	_, err = Decode(empty)
	require.ErrorIs(t, err, stream.ErrUnexpectedEnd)
}

func TestTagValidation(t *testing.T) {
	buf := stream.NewBuffer(stream.MaxDatagramSize)

	// A response decoded as a request has the right width but the wrong tag.
	require.NoError(t, Encode(NewConnectionResponse(ResponseMagic), buf))
	var req ConnectionRequest
	require.NoError(t, DecodeAs(buf, &req))
	require.False(t, req.IsValid())

	// A batch decoded as an Input reads only the first two bytes.
	require.NoError(t, Encode(fullBatch(3), buf))
	var in Input
	require.NoError(t, DecodeAs(buf, &in))
	require.False(t, in.IsValid())

	require.NoError(t, Encode(NewInput(false, true, false), buf))
	var batch InputBatch
	require.Error(t, DecodeAs(buf, &batch), "an Input is too short to be a batch")

	// Zero-value messages carry the unknown tag until a constructor sets it.
	require.False(t, (&Disconnect{}).IsValid())
}

func TestInputScenario(t *testing.T) {
	buf := stream.NewBuffer(stream.MaxDatagramSize)
	msg := &Input{Header: Header{TypeID: PacketTypeInput.TypeID}, Bits: 0b101}
	require.NoError(t, Encode(msg, buf))

	var got Input
	require.NoError(t, DecodeAs(buf, &got))
	require.True(t, got.IsValid())
	require.True(t, got.HasUp())
	require.False(t, got.HasDown())
	require.True(t, got.HasSpace())
}

func TestDecodeUnknownTag(t *testing.T) {
	buf := stream.NewBuffer(4)
	require.NoError(t, stream.NewWriter(buf).Bytes([]byte{200, 1, 2}))
	_, err := Decode(buf)
	require.ErrorIs(t, err, ErrUnknownPacketType)

	buf.Reset()
	require.NoError(t, stream.NewWriter(buf).Bytes([]byte{0}))
	_, err = Decode(buf)
	require.ErrorIs(t, err, ErrUnknownPacketType, "tag 0 is never decodable")
}

func TestInputBatchLen(t *testing.T) {
	require.Equal(t, input.BatchSize, fullBatch(0).Len())

	var samples [input.BatchSize]input.Sample
	samples[0] = input.Sample{Ticks: 1}
	samples[1] = input.Sample{Ticks: 2}
	require.Equal(t, 2, NewInputBatch(0, samples).Len())
}

func TestRegistry(t *testing.T) {
	types := DefaultRegistry.ListPacketTypes()
	require.Equal(t, []PacketType{
		PacketTypeConnectionRequest,
		PacketTypeConnectionResponse,
		PacketTypeDisconnect,
		PacketTypeInput,
		PacketTypeInputBatch,
	}, types)

	pt, ok := DefaultRegistry.GetPacketTypeByName("InputBatch")
	require.True(t, ok)
	require.Equal(t, PacketTypeInputBatch, pt)

	reg := DefaultRegistry.Copy()
	custom, err := reg.RegisterPacketType("Ping", func() Message { return &Disconnect{} })
	require.NoError(t, err)
	require.Equal(t, PacketTypeID(6), custom.TypeID, "IDs already taken by builtins are skipped")
	_, ok = DefaultRegistry.GetPacketType(custom.TypeID)
	require.False(t, ok, "copy must not leak into the default registry")

	_, err = reg.RegisterPacketTypeWithID("Dup", PacketTypeInput.TypeID, nil)
	require.ErrorIs(t, err, ErrPacketTypeAlreadyExists)
	_, err = reg.RegisterPacketTypeWithID("Zero", 0, nil)
	require.ErrorIs(t, err, ErrInvalidPacketTypeID)
	_, err = reg.RegisterPacketTypeWithID("Max", 255, nil)
	require.ErrorIs(t, err, ErrPacketTypesExhausted)
}

func TestRegistryExhaustion(t *testing.T) {
	reg := NewPacketRegistry()
	for i := 1; i < MaxPacketTypes; i++ {
		_, err := reg.RegisterPacketType("t", func() Message { return &Disconnect{} })
		require.NoError(t, err)
	}
	_, err := reg.RegisterPacketType("overflow", func() Message { return &Disconnect{} })
	require.ErrorIs(t, err, ErrPacketTypesExhausted)
	require.Len(t, reg.ListPacketTypes(), MaxPacketTypes-1)
}
