package did

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	machine = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
	owner   = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

func TestNewMachineDocument(t *testing.T) {
	doc := NewMachineDocument(machine, "0xsig", owner)

	assert.Equal(t, "did:peaq:"+machine, doc.ID)
	assert.Equal(t, doc.ID, doc.Controller)
	require.Len(t, doc.Services, 2)
	assert.Equal(t, Service{ID: "#emailSignature", Type: "emailSignature", Data: "0xsig"}, doc.Services[0])
	assert.Equal(t, Service{ID: "#owner", Type: "owner", Data: owner}, doc.Services[1])
}

func TestMarshalWireLayout(t *testing.T) {
	doc := &Document{ID: "a", Controller: "b"}
	// field 1 len 1 "a", field 2 len 1 "b"
	assert.Equal(t, []byte{0x0a, 0x01, 'a', 0x12, 0x01, 'b'}, doc.Marshal())

	doc.Services = []Service{{ID: "#x", Type: "y"}}
	raw := doc.Marshal()
	// services are field 5, length-delimited: tag 0x2a
	assert.Equal(t, byte(0x2a), raw[6])
}

func TestRoundTrip(t *testing.T) {
	doc := NewMachineDocument(machine, "0xabc123", owner)
	text := doc.Hex()

	_, err := hex.DecodeString(text)
	require.NoError(t, err)

	back, err := UnmarshalHex(text)
	require.NoError(t, err)
	assert.Equal(t, doc, back)
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	raw := (&Document{ID: "a"}).Marshal()
	// varint field 9 = 1
	raw = append(raw, 0x48, 0x01)

	doc, err := Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, "a", doc.ID)
}

func TestUnmarshalTruncated(t *testing.T) {
	_, err := Unmarshal([]byte{0x0a, 0x05, 'a'})
	assert.Error(t, err)
}
