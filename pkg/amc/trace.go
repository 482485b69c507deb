package amc

import (
	"fmt"
	"strings"

	"github.com/golang/glog"
)

// Tracer receives a copy of every byte exchanged with a drive. It is a
// diagnostic side channel only and never participates in control flow or
// error classification.
type Tracer interface {
	Sent(p []byte)
	Received(p []byte)
}

// glogTracer hex-dumps traffic at verbosity 2, sent bytes in box brackets
// and received bytes in angle brackets.
type glogTracer struct{}

func (glogTracer) Sent(p []byte) {
	if glog.V(2) {
		glog.Info("SND ", hexDump(p, '[', ']'))
	}
}

func (glogTracer) Received(p []byte) {
	if glog.V(2) {
		glog.Info("RCV ", hexDump(p, '<', '>'))
	}
}

func hexDump(p []byte, lb, rb byte) string {
	var b strings.Builder
	for _, c := range p {
		fmt.Fprintf(&b, "%c%02X%c", lb, c, rb)
	}
	return b.String()
}
