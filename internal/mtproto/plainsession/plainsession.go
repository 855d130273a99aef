// Package plainsession implements the unauthenticated message framing
// used only during the authorization handshake: auth_key_id is always
// zero, there is no encryption, no session_id, and no seq_no. Once the
// handshake produces an auth key, the host switches to
// internal/mtproto/session for every subsequent message.
package plainsession

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/postalsys/mtproto-session/internal/mtproto/msgid"
)

// HeaderSize is the fixed size of a plain frame's header:
// auth_key_id(8) || msg_id(8) || msg_len(4).
const HeaderSize = 8 + 8 + 4

// ErrTruncated is returned when a wire frame is shorter than its header
// or declared body length.
var ErrTruncated = errors.New("plainsession: truncated frame")

// ErrNonZeroAuthKeyID is returned when a frame claims a nonzero
// auth_key_id, which is never valid on the plain channel.
var ErrNonZeroAuthKeyID = errors.New("plainsession: auth_key_id must be zero")

// Session frames outgoing handshake messages and parses incoming ones.
// It owns the monotonic msg_id generator; time_offset is not yet known
// during the handshake, so ids are derived from local time only.
type Session struct {
	ids *msgid.Generator
}

// New creates a plain Session using nowNanos as the wall-clock source
// (injectable for deterministic tests).
func New(nowNanos func() int64) *Session {
	return &Session{ids: msgid.NewGenerator(nowNanos, 0)}
}

// Pack frames body as a plain wire message: auth_key_id=0 || msg_id || len || body.
func (s *Session) Pack(body []byte) []byte {
	msgID := s.ids.Next()

	out := make([]byte, HeaderSize+len(body))
	binary.LittleEndian.PutUint64(out[0:8], 0)
	binary.LittleEndian.PutUint64(out[8:16], msgID)
	binary.LittleEndian.PutUint32(out[16:20], uint32(len(body)))
	copy(out[20:], body)
	return out
}

// Message is a parsed plain frame.
type Message struct {
	MsgID uint64
	Body  []byte
}

// Unpack parses a plain wire message, validating the zero auth_key_id
// and declared body length.
func Unpack(wire []byte) (Message, error) {
	if len(wire) < HeaderSize {
		return Message{}, ErrTruncated
	}

	authKeyID := binary.LittleEndian.Uint64(wire[0:8])
	if authKeyID != 0 {
		return Message{}, ErrNonZeroAuthKeyID
	}

	msgID := binary.LittleEndian.Uint64(wire[8:16])
	bodyLen := binary.LittleEndian.Uint32(wire[16:20])

	if len(wire) < HeaderSize+int(bodyLen) {
		return Message{}, fmt.Errorf("%w: declared body length %d exceeds available %d bytes",
			ErrTruncated, bodyLen, len(wire)-HeaderSize)
	}

	body := make([]byte, bodyLen)
	copy(body, wire[HeaderSize:HeaderSize+int(bodyLen)])

	return Message{MsgID: msgID, Body: body}, nil
}
