//go:build linux && cgo

package main

import "github.com/firebuild-go/fbcore/internal/interceptor"

// runAckReader is the single reader goroutine every connected Hooks
// needs: it pulls replies (plain or carrying ancillary fds) off the
// control connection and completes whichever ack id each one answers.
// Exactly one of these runs per live connection, matching AckTable's
// concurrency contract ("a single reader goroutine feeds replies in via
// Complete"). When the connection breaks it calls fatalAbort, which ends
// the process.
func runAckReader(h *interceptor.Hooks) {
	for {
		ackID, payload, fds, err := h.Conn.RecvFDs(2)
		if err != nil {
			fatalAbort("fbpreload.runAckReader: control connection broke", err)
			return
		}
		if len(fds) > 0 {
			h.Acks.CompleteFDs(ackID, payload, fds, nil)
			continue
		}
		h.Acks.Complete(ackID, payload, nil)
	}
}
