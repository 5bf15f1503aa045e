package core

import "errors"

// Frame is one encoded outbound event.
type Frame []byte

type SessionID string

var ErrBackpressure = errors.New("backpressure")

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
// TrySend is the private per-connection channel: it never blocks.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
