// Package fec implements the FEC writer and reader, spec.md §4.7, plus
// the scheme registry spec.md §9 calls for ("a static mapping from
// scheme id to factory function — safe to initialize at first use").
//
// The actual erasure-coding math (Reed-Solomon, LDPC) is an external
// collaborator per spec.md §1/§9 — this package only defines the
// Encoder/Decoder interfaces a real codec would implement, the block
// bookkeeping around them, and one bundled XOR-parity codec used to
// exercise that bookkeeping in tests.
//
// Grounded on lars-sto-interceptor/pkg/flexfec's encoder_interceptor.go:
// accumulate N source packets, and once full invoke an encoder to
// produce repair packets — generalized from FlexFEC-over-RTCP framing to
// roc's block-number/index footer scheme (spec.md §6).
package fec

import (
	"sync"

	"github.com/soapdogg/roc-toolkit/pkg/packet"
)

// Encoder produces repair packet payloads from a complete source block.
// source[i] may be nil if a source packet slot was never used (it
// shouldn't be, for the writer side, but decoders reuse this shape).
type Encoder interface {
	// Encode returns repairCount repair payloads computed over the given
	// source payloads (all the same length).
	Encode(source [][]byte, repairCount int) [][]byte
}

// Decoder attempts to reconstruct missing source payloads from whatever
// source and repair payloads are present. source[i] is nil for a
// missing source slot; repair[j] is nil for a missing repair slot.
// Returns the full, now-complete set of source payloads, or nil if
// recovery was not possible (more losses than repair symbols can cover).
type Decoder interface {
	Decode(source [][]byte, repair [][]byte, payloadLen int) [][]byte
}

// Codec bundles an Encoder and Decoder for one FEC scheme.
type Codec struct {
	Encoder Encoder
	Decoder Decoder
}

// Factory constructs a Codec for a scheme, given the block's N and M.
type Factory func(n, m int) Codec

var (
	registryMu   sync.Mutex
	registry     map[packet.FECScheme]Factory
	registerOnce sync.Once
)

// ensureRegistry lazily creates the registry map and self-registers the
// bundled schemes, matching spec.md §9's "safe to initialize at first
// use." Must be called before any access to registry.
func ensureRegistry() {
	registerOnce.Do(func() {
		registry = map[packet.FECScheme]Factory{
			SchemeXORParity: func(n, m int) Codec {
				return Codec{Encoder: xorEncoder{}, Decoder: xorDecoder{}}
			},
		}
	})
}

// Register adds a factory for scheme to the global registry. Safe to
// call from multiple init()s or concurrently.
func Register(scheme packet.FECScheme, f Factory) {
	ensureRegistry()
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[scheme] = f
}

// Lookup returns the factory registered for scheme, or nil.
func Lookup(scheme packet.FECScheme) Factory {
	ensureRegistry()
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry[scheme]
}

// SchemeXORParity is the bundled single-repair-symbol XOR parity scheme,
// used to exercise block/slot bookkeeping in tests. It can recover at
// most one missing source packet per block regardless of M.
const SchemeXORParity packet.FECScheme = "xor-parity"
