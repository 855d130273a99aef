// Package msgid implements MTProto's monotonic message-id generation,
// shared by the unencrypted handshake framing (internal/mtproto/plainsession)
// and the post-handshake encrypted session (internal/mtproto/session). Both
// need the same "seconds since epoch in the high bits, sub-second
// fraction quantized to a multiple of 4 in the low bits, never
// non-increasing" rule — the only difference is whether a server time
// offset has been learned yet.
package msgid

// Generator produces monotonically increasing msg_id values from a clock
// function, optionally shifted by a learned server time offset. It is
// not safe for concurrent use; sessions are synchronous by design (see
// the core's concurrency model).
type Generator struct {
	nowNanos   func() int64
	offsetNano int64
	last       uint64
}

// NewGenerator creates a Generator. nowNanos should return the current
// local wall-clock time in nanoseconds since the Unix epoch;
// offsetNanos is added to it (zero during the plain handshake, where
// the server's clock skew is not yet known).
func NewGenerator(nowNanos func() int64, offsetNanos int64) *Generator {
	return &Generator{nowNanos: nowNanos, offsetNano: offsetNanos}
}

// SetOffset updates the server time offset applied to future ids, used
// once the handshake learns server_time.
func (g *Generator) SetOffset(offsetNanos int64) {
	g.offsetNano = offsetNanos
}

// Next returns the next msg_id, guaranteed strictly greater than every
// previously returned id from this Generator.
func (g *Generator) Next() uint64 {
	nowNs := g.nowNanos() + g.offsetNano

	seconds := uint64(nowNs / 1_000_000_000)
	fracNanos := uint64(nowNs % 1_000_000_000)
	// Quantize the sub-second fraction into the low 32 bits, clearing
	// the low 2 bits (msg_id must be divisible by 4 for client-sent
	// messages).
	fracQuarter := (fracNanos << 32) / 1_000_000_000
	candidate := (seconds << 32) | (fracQuarter &^ 3)

	if candidate <= g.last {
		candidate = g.last + 4
	}
	g.last = candidate
	return candidate
}

// Last returns the most recently issued msg_id, or 0 if Next has never
// been called.
func (g *Generator) Last() uint64 {
	return g.last
}

// NowNanos returns the raw clock reading with no offset applied, used
// by callers that need to compute a time correction relative to the
// local clock rather than generate an id.
func (g *Generator) NowNanos() int64 {
	return g.nowNanos()
}

// Restore seeds the generator's last-issued id, used when resuming a
// persisted session so ids stay monotonic across restarts.
func (g *Generator) Restore(lastMsgID uint64) {
	g.last = lastMsgID
}
