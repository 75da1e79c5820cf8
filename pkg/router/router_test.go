package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/soapdogg/roc-toolkit/pkg/packet"
)

func TestRouterMatchesFirstRoute(t *testing.T) {
	var audioGot, repairGot []*packet.Packet
	r := New()
	r.AddRoute(packet.WriterFunc(func(p *packet.Packet) error {
		audioGot = append(audioGot, p)
		return nil
	}), packet.FlagAudio)
	r.AddRoute(packet.WriterFunc(func(p *packet.Packet) error {
		repairGot = append(repairGot, p)
		return nil
	}), packet.FlagRepair)

	r.WritePacket(&packet.Packet{Flags: packet.FlagAudio})
	r.WritePacket(&packet.Packet{Flags: packet.FlagRepair})
	r.WritePacket(&packet.Packet{Flags: packet.FlagRTP}) // unrouted, dropped

	assert.Len(t, audioGot, 1)
	assert.Len(t, repairGot, 1)
}

func TestRouterFirstMatchWins(t *testing.T) {
	var firstGot, secondGot int
	r := New()
	r.AddRoute(packet.WriterFunc(func(p *packet.Packet) error {
		firstGot++
		return nil
	}), packet.FlagAudio)
	r.AddRoute(packet.WriterFunc(func(p *packet.Packet) error {
		secondGot++
		return nil
	}), packet.FlagAudio|packet.FlagRepair)

	r.WritePacket(&packet.Packet{Flags: packet.FlagAudio | packet.FlagRepair})
	assert.Equal(t, 1, firstGot)
	assert.Equal(t, 0, secondGot)
}
