package queue

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soapdogg/roc-toolkit/pkg/packet"
)

func pktSN(sn uint16) *packet.Packet {
	return &packet.Packet{
		Flags: packet.FlagRTP,
		RTP:   packet.RTPAttrs{Header: rtp.Header{SequenceNumber: sn}},
	}
}

func TestSortedQueueOrdering(t *testing.T) {
	q := New(OrderBySequenceNumber, 0)
	q.Push(pktSN(5))
	q.Push(pktSN(2))
	q.Push(pktSN(8))
	q.Push(pktSN(3))

	var got []uint16
	for q.Len() > 0 {
		got = append(got, q.Pop().SequenceNumber())
	}
	assert.Equal(t, []uint16{2, 3, 5, 8}, got)
}

func TestSortedQueueDuplicateReplace(t *testing.T) {
	q := New(OrderBySequenceNumber, 0)
	q.Push(pktSN(5))
	old := q.Push(pktSN(5))
	require.NotNil(t, old, "expected duplicate to evict old packet")
	assert.Equal(t, 1, q.Len())
}

func TestSortedQueueWrapAround(t *testing.T) {
	q := New(OrderBySequenceNumber, 0)
	q.Push(pktSN(65534))
	q.Push(pktSN(1))
	q.Push(pktSN(65535))

	var got []uint16
	for q.Len() > 0 {
		got = append(got, q.Pop().SequenceNumber())
	}
	assert.Equal(t, []uint16{65534, 65535, 1}, got)
}

func TestSortedQueueCapacity(t *testing.T) {
	q := New(OrderBySequenceNumber, 2)
	q.Push(pktSN(1))
	q.Push(pktSN(2))
	evicted := q.Push(pktSN(3))
	require.NotNil(t, evicted, "expected eviction of oldest packet")
	assert.EqualValues(t, 1, evicted.SequenceNumber())
	assert.Equal(t, 2, q.Len())
}
