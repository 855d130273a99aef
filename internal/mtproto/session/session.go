package session

import (
	"encoding/binary"

	"github.com/postalsys/mtproto-session/internal/mtproto/cryptoprim"
	"github.com/postalsys/mtproto-session/internal/mtproto/msgid"
	"golang.org/x/time/rate"
)

// AuthKey is the 256-byte opaque secret derived by the handshake.
// Immutable once derived; EncryptedSession only ever reads it.
type AuthKey [256]byte

// EncryptedSession is the post-handshake channel: pack frames outgoing
// TL bodies, unpack and verify incoming wire frames, and track the
// mutable state the protocol requires (salt, session_id, time_offset,
// seq_no, last msg_id). Not safe for concurrent use — see the core's
// synchronous, single-threaded scheduling model.
type EncryptedSession struct {
	authKey    AuthKey
	authKeyID  uint64
	sessionID  uint64
	salt       int64
	timeOffset int64 // nanoseconds, applied to msg_id generation
	contentCtr uint32
	ids        *msgid.Generator

	recent *recentWindow

	rand    cryptoprim.RandomSource
	limiter *rate.Limiter

	// dcID/ip/port are carried only for the persisted snapshot layout
	// (§6.4); EncryptedSession itself never dials anything.
	dcID int32
	ip   [16]byte
	port uint16
}

// Option configures an EncryptedSession at construction.
type Option func(*EncryptedSession)

// WithRandom overrides the RandomSource used for session_id generation
// and inner-frame padding. Defaults to cryptoprim.DefaultRandom.
func WithRandom(r cryptoprim.RandomSource) Option {
	return func(s *EncryptedSession) { s.rand = r }
}

// WithSessionID pins the session_id instead of generating one randomly,
// used when resuming a persisted session (see Restore).
func WithSessionID(id uint64) Option {
	return func(s *EncryptedSession) { s.sessionID = id }
}

// WithDCInfo records the datacenter id and address the auth key was
// negotiated against, carried through to Snapshot so a restored session
// remembers which DC to reconnect to.
func WithDCInfo(dcID int32, ip [16]byte, port uint16) Option {
	return func(s *EncryptedSession) {
		s.dcID = dcID
		s.ip = ip
		s.port = port
	}
}

// WithRateLimiter attaches a token-bucket limiter that Pack consults
// before framing each outgoing message, a defensive guard against a
// runaway host calling Pack faster than any real client would. Not part
// of the wire protocol; purely a local call-rate guard.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(s *EncryptedSession) { s.limiter = l }
}

// New creates an EncryptedSession from a freshly derived auth key, the
// handshake's first_salt, and the learned time_offset (seconds). nowNanos
// is the wall-clock source for msg_id generation (injectable for tests).
func New(authKey AuthKey, firstSalt int64, timeOffsetSeconds int64, nowNanos func() int64, opts ...Option) *EncryptedSession {
	s := &EncryptedSession{
		authKey:    authKey,
		authKeyID:  authKeyID(authKey),
		salt:       firstSalt,
		timeOffset: timeOffsetSeconds * 1_000_000_000,
		rand:       cryptoprim.DefaultRandom,
		recent:     newRecentWindow(64),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessionID == 0 {
		s.sessionID = s.rand.Uint64() | 1 // session_id must be nonzero
	}
	s.ids = msgid.NewGenerator(nowNanos, s.timeOffset)
	return s
}

// authKeyID returns the low 64 bits of SHA1(auth_key), little-endian,
// the same convention as internal/mtproto/authkey.ID.
func authKeyID(authKey AuthKey) uint64 {
	sum := cryptoprim.SHA1(authKey[:])
	return binary.LittleEndian.Uint64(sum[12:20])
}

// SessionID returns this session's stable 64-bit session_id.
func (s *EncryptedSession) SessionID() uint64 { return s.sessionID }

// Salt returns the current server salt.
func (s *EncryptedSession) Salt() int64 { return s.salt }

// SetSalt replaces the current server salt, called by the service layer
// on bad_server_salt or new_session_created.
func (s *EncryptedSession) SetSalt(salt int64) { s.salt = salt }

// TimeOffset returns the current time offset in seconds.
func (s *EncryptedSession) TimeOffset() int64 { return s.timeOffset / 1_000_000_000 }

// SetTimeOffset adjusts the time offset (seconds) and, per §4.4.3's
// bad_msg_notification codes 16/17 handling, resets the monotonic msg_id
// generator's last-issued value so the new offset takes effect
// immediately rather than being clamped by the old high-water mark.
func (s *EncryptedSession) SetTimeOffset(offsetSeconds int64) {
	s.timeOffset = offsetSeconds * 1_000_000_000
	s.ids.SetOffset(s.timeOffset)
	s.ids.Restore(0)
}

// AdjustTimeOffsetFromServerMsgID recomputes time_offset from a
// server-originated msg_id's embedded seconds field, per
// bad_msg_notification codes 16/17 (§4.4.3): time_offset =
// server_seconds - local_seconds_now().
func (s *EncryptedSession) AdjustTimeOffsetFromServerMsgID(serverMsgID uint64) {
	serverSeconds := int64(serverMsgID >> 32)
	localSeconds := s.ids.NowNanos() / 1_000_000_000
	s.SetTimeOffset(serverSeconds - localSeconds)
}

// LastMsgID returns the most recently issued client msg_id.
func (s *EncryptedSession) LastMsgID() uint64 { return s.ids.Last() }

// ContentCounter returns the current content-related message counter.
func (s *EncryptedSession) ContentCounter() uint32 { return s.contentCtr }
