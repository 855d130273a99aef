// Package session implements EncryptedSession: the post-handshake
// framing that turns an AuthKey into an encrypted, ordered,
// salt/session/time-tracked message channel. It owns pack/unpack and the
// mutable bookkeeping (salt, session_id, time_offset, seq_no, last
// msg_id); classifying decrypted bodies into service-message effects is
// the job of internal/mtproto/service, which calls back into the
// accessors this package exposes.
package session

import "errors"

// DecryptError is the taxonomy of fatal decrypt-time failures from
// unpack. Each is fatal to this EncryptedSession only, never to the
// underlying AuthKey — a host may always build a fresh session with a
// new session_id.
var (
	ErrAuthKeyMismatch   = errors.New("session: auth_key_id does not match this session")
	ErrMsgKeyMismatch    = errors.New("session: recomputed msg_key does not match received value")
	ErrSessionIDMismatch = errors.New("session: session_id does not match this session")
	ErrMalformedFrame    = errors.New("session: malformed decrypted frame")
	ErrLengthOutOfRange  = errors.New("session: declared body length out of range")
)
