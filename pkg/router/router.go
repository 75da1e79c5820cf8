// Package router implements the flag-keyed packet fan-out used on the
// sender side (splitting source/repair streams toward the transport).
// The receiver does not use it; it matches ports and splits repair from
// source packets itself.
//
// Grounded on the teacher's interceptor chain shape (pkg/interceptor/*):
// each interceptor wraps a downstream writer and conditionally forwards
// to it. Router generalizes that to N statically registered routes
// selected by a flag mask instead of one interceptor always forwarding.
package router

import (
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"

	"github.com/soapdogg/roc-toolkit/pkg/packet"
)

type route struct {
	writer packet.Writer
	mask   packet.Flags
}

// Router implements packet.Writer, forwarding each packet to the first
// registered route whose mask is fully satisfied by the packet's flags.
// A packet matching no route is dropped after one debug log, per
// spec.md §4.4.
type Router struct {
	routes []route
	log    logr.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger used for the one-debug-log-per-drop
// requirement.
func WithLogger(l logr.Logger) Option {
	return func(r *Router) { r.log = l }
}

// New creates an empty Router. Without WithLogger, drops are logged
// through a stdr.Logger backed by the standard library logger rather
// than discarded, so unrouted-packet drops are visible by default.
func New(opts ...Option) *Router {
	r := &Router{log: stdr.New(log.New(os.Stderr, "", log.LstdFlags))}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddRoute registers a route: any packet whose flags satisfy mask is
// forwarded to writer. Routes are matched in registration order; the
// first match wins.
func (r *Router) AddRoute(writer packet.Writer, mask packet.Flags) {
	r.routes = append(r.routes, route{writer: writer, mask: mask})
}

// WritePacket forwards pkt to the first matching route.
func (r *Router) WritePacket(pkt *packet.Packet) error {
	for _, rt := range r.routes {
		if pkt.Flags.Has(rt.mask) {
			return rt.writer.WritePacket(pkt)
		}
	}
	r.log.V(1).Info("dropping unrouted packet", "flags", pkt.Flags)
	return nil
}
