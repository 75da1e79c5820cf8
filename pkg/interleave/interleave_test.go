package interleave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soapdogg/roc-toolkit/pkg/packet"
)

func TestPermutationIsBijection(t *testing.T) {
	perm := permutation(8)
	seen := make(map[int]bool)
	for _, p := range perm {
		require.False(t, p < 0 || p >= 8 || seen[p], "permutation is not a bijection over [0,8): %v", perm)
		seen[p] = true
	}
}

func TestInterleaverEmitsOnlyOnFullBuffer(t *testing.T) {
	var emitted []*packet.Packet
	w := New(4, packet.WriterFunc(func(p *packet.Packet) error {
		emitted = append(emitted, p)
		return nil
	}))

	for i := 0; i < 3; i++ {
		w.WritePacket(&packet.Packet{Buffer: []byte{byte(i)}})
	}
	assert.Empty(t, emitted, "expected no packets emitted before buffer fills")
	w.WritePacket(&packet.Packet{Buffer: []byte{3}})
	assert.Len(t, emitted, 4, "expected 4 packets emitted once buffer filled")
}

func TestInterleaverPreservesSetAndPermutesOrder(t *testing.T) {
	var emitted []*packet.Packet
	w := New(8, packet.WriterFunc(func(p *packet.Packet) error {
		emitted = append(emitted, p)
		return nil
	}))
	var sent []*packet.Packet
	for i := 0; i < 8; i++ {
		p := &packet.Packet{Buffer: []byte{byte(i)}}
		sent = append(sent, p)
		w.WritePacket(p)
	}
	require.Len(t, emitted, 8)

	same := true
	for i := range sent {
		if emitted[i] != sent[i] {
			same = false
		}
	}
	assert.False(t, same, "expected the emission order to differ from arrival order")

	seen := make(map[*packet.Packet]bool)
	for _, p := range emitted {
		seen[p] = true
	}
	for _, p := range sent {
		assert.True(t, seen[p], "interleaver dropped a packet")
	}
}

func TestFlushEmitsPartialBufferInArrivalOrder(t *testing.T) {
	var emitted []*packet.Packet
	w := New(4, packet.WriterFunc(func(p *packet.Packet) error {
		emitted = append(emitted, p)
		return nil
	}))
	a := &packet.Packet{Buffer: []byte{1}}
	b := &packet.Packet{Buffer: []byte{2}}
	w.WritePacket(a)
	w.WritePacket(b)
	require.NoError(t, w.Flush())
	require.Len(t, emitted, 2)
	assert.Same(t, a, emitted[0])
	assert.Same(t, b, emitted[1])
}
