package session

import (
	"encoding/binary"
	"fmt"
)

// persistMagic and persistVersion identify the snapshot blob format from
// §6.4. A version bump is required for any layout change.
const (
	persistMagic   uint32 = 0x4d545032 // "MTP2"
	persistVersion uint16 = 1
	persistSize           = 4 + 2 + 4 + 16 + 2 + 256 + 8 + 8 + 4 + 4 + 8
)

// errBadSnapshot is returned by Restore when the blob is the wrong size,
// carries the wrong magic, or an unsupported version.
var errBadSnapshot = fmt.Errorf("session: malformed or unsupported snapshot")

// Snapshot serializes the session's persistable state per §6.4:
// magic || version || dc_id || ip || port || auth_key || salt ||
// session_id || time_offset || content_counter || last_msg_id.
func (s *EncryptedSession) Snapshot() []byte {
	out := make([]byte, persistSize)
	off := 0
	binary.BigEndian.PutUint32(out[off:], persistMagic)
	off += 4
	binary.BigEndian.PutUint16(out[off:], persistVersion)
	off += 2
	binary.BigEndian.PutUint32(out[off:], uint32(s.dcID))
	off += 4
	copy(out[off:off+16], s.ip[:])
	off += 16
	binary.BigEndian.PutUint16(out[off:], s.port)
	off += 2
	copy(out[off:off+256], s.authKey[:])
	off += 256
	binary.BigEndian.PutUint64(out[off:], uint64(s.salt))
	off += 8
	binary.BigEndian.PutUint64(out[off:], s.sessionID)
	off += 8
	binary.BigEndian.PutUint32(out[off:], uint32(s.TimeOffset()))
	off += 4
	binary.BigEndian.PutUint32(out[off:], s.contentCtr)
	off += 4
	binary.BigEndian.PutUint64(out[off:], s.ids.Last())

	return out
}

// Restore reconstructs an EncryptedSession from a blob produced by
// Snapshot. nowNanos seeds the msg_id clock; the generator's last-issued
// id is restored from the blob so ids stay monotonic across restarts.
func Restore(blob []byte, nowNanos func() int64, opts ...Option) (*EncryptedSession, error) {
	if len(blob) != persistSize {
		return nil, errBadSnapshot
	}
	off := 0
	magic := binary.BigEndian.Uint32(blob[off:])
	off += 4
	if magic != persistMagic {
		return nil, errBadSnapshot
	}
	version := binary.BigEndian.Uint16(blob[off:])
	off += 2
	if version != persistVersion {
		return nil, errBadSnapshot
	}
	dcID := int32(binary.BigEndian.Uint32(blob[off:]))
	off += 4
	var ip [16]byte
	copy(ip[:], blob[off:off+16])
	off += 16
	port := binary.BigEndian.Uint16(blob[off:])
	off += 2
	var authKey AuthKey
	copy(authKey[:], blob[off:off+256])
	off += 256
	salt := int64(binary.BigEndian.Uint64(blob[off:]))
	off += 8
	sessionID := binary.BigEndian.Uint64(blob[off:])
	off += 8
	timeOffset := int64(int32(binary.BigEndian.Uint32(blob[off:])))
	off += 4
	contentCtr := binary.BigEndian.Uint32(blob[off:])
	off += 4
	lastMsgID := binary.BigEndian.Uint64(blob[off:])

	allOpts := append([]Option{WithSessionID(sessionID), WithDCInfo(dcID, ip, port)}, opts...)
	s := New(authKey, salt, timeOffset, nowNanos, allOpts...)
	s.contentCtr = contentCtr
	s.ids.Restore(lastMsgID)
	return s, nil
}
