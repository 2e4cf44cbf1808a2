package network

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodePacket(t *testing.T) {
	raw, err := EncodePacket(MsgTypeChatMessage, []byte(`{"message":"hi"}`))
	require.NoError(t, err)

	packet, err := DecodePacket(raw)
	require.NoError(t, err)
	assert.Equal(t, uint16(MsgTypeChatMessage), packet.MsgID)
	assert.Equal(t, `{"message":"hi"}`, string(packet.Data))
	assert.Equal(t, uint16(16), packet.Length)
}

func TestDecodePacket_Short(t *testing.T) {
	_, err := DecodePacket([]byte{0, 1})
	assert.ErrorIs(t, err, io.ErrShortBuffer)

	// declared length exceeds the buffer
	_, err = DecodePacket([]byte{0, 1, 0, 10, 'x'})
	assert.ErrorIs(t, err, io.ErrShortBuffer)

	// a declared length near the uint16 limit must not wrap the bounds check
	for _, length := range []byte{0xFC, 0xFD, 0xFE, 0xFF} {
		assert.NotPanics(t, func() {
			_, err = DecodePacket([]byte{0x00, 0x01, 0xFF, length})
		})
		assert.ErrorIs(t, err, io.ErrShortBuffer)
	}
}

func TestEncodePacket_TooLarge(t *testing.T) {
	_, err := EncodePacket(MsgTypeChatMessage, []byte(strings.Repeat("a", 70000)))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	require.NoError(t, Decode([]byte(`{"name":"room"}`), &v))
	assert.Equal(t, "room", v.Name)

	assert.Error(t, Decode([]byte(`{"name":"room","extra":1}`), &v))
	assert.Error(t, Decode([]byte(`{"name":"room"} {}`), &v))
	assert.ErrorIs(t, Decode([]byte("  "), &v), ErrEmptyPayload)
}

func TestMsgName(t *testing.T) {
	assert.Equal(t, "beatmapLoadComplete", MsgName(MsgTypeBeatmapLoadComplete))
	assert.Equal(t, "unknown", MsgName(999))
}
