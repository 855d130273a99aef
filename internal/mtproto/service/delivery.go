package service

// Kind classifies a Delivery, matching the body-kind column of §4.4.3's
// dispatch table.
type Kind int

const (
	KindRPCResult Kind = iota
	KindPong
	KindMsgsAck
	KindNewSessionCreated
	KindBadServerSalt
	KindBadMsgNotification
	KindFutureSalts
	KindUpdates
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindRPCResult:
		return "rpc_result"
	case KindPong:
		return "pong"
	case KindMsgsAck:
		return "msgs_ack"
	case KindNewSessionCreated:
		return "new_session_created"
	case KindBadServerSalt:
		return "bad_server_salt"
	case KindBadMsgNotification:
		return "bad_msg_notification"
	case KindFutureSalts:
		return "future_salts"
	case KindUpdates:
		return "updates"
	default:
		return "unknown"
	}
}

// RPCResult carries a decrypted rpc_result's req_msg_id and opaque
// result body (gzip-unwrapped if it arrived compressed). The host
// matches ReqMsgID against its own pending-request table.
type RPCResult struct {
	ReqMsgID uint64
	Body     []byte
}

// Pong carries a decrypted pong's ping_id. The host matches it against
// an outstanding BuildPing call.
type Pong struct {
	MsgID  uint64
	PingID uint64
}

// MsgsAck carries the set of msg_ids the server says it has received.
type MsgsAck struct {
	MsgIDs []uint64
}

// NewSessionCreated signals the server started tracking a new logical
// session. ServerSalt has already been applied to the EncryptedSession;
// the host is expected to discard pending requests older than FirstMsgID.
type NewSessionCreated struct {
	FirstMsgID uint64
	UniqueID   uint64
	ServerSalt int64
}

// BadServerSalt signals the salt used to encrypt BadMsgID was rejected.
// NewSalt has already been applied to the EncryptedSession; the host is
// expected to re-send BadMsgID.
type BadServerSalt struct {
	BadMsgID  uint64
	BadSeqNo  uint32
	ErrorCode int32
	NewSalt   int64
}

// BadMsgNotificationAction classifies what the host should do about a
// bad_msg_notification beyond the time_offset correction this package
// already applies for codes 16/17.
type BadMsgNotificationAction int

const (
	// ActionNone: time_offset was corrected (or nothing was needed);
	// no further host action required.
	ActionNone BadMsgNotificationAction = iota
	// ActionReopenSession: seq_no desync (codes 32/33); the host must
	// discard this EncryptedSession and start a fresh one.
	ActionReopenSession
	// ActionSurface: an error code this package does not special-case;
	// the host should inspect ErrorCode itself.
	ActionSurface
)

// BadMsgNotification carries a bad_msg_notification's fields plus the
// action this package decided on.
type BadMsgNotification struct {
	BadMsgID  uint64
	BadSeqNo  uint32
	ErrorCode int32
	Action    BadMsgNotificationAction
}

// FutureSalt is one (valid_since, valid_until, salt) triple from a
// future_salts response.
type FutureSalt struct {
	ValidSince int32
	ValidUntil int32
	Salt       int64
}

// FutureSalts carries the salts the server offered ahead of time, used
// to replenish a host-side salt queue for opportunistic use after the
// current salt is revoked (SPEC_FULL.md supplement 1).
type FutureSalts struct {
	ReqMsgID uint64
	Now      int32
	Salts    []FutureSalt
}

// UnknownBody is returned for any constructor this package does not
// recognize and that is not one of the passthrough updates* ids. Per
// §4.4.3, unknown bodies are surfaced, never dropped.
type UnknownBody struct {
	Constructor uint32
	Bytes       []byte
}

// Delivery is one classified unit handed up to the host. Exactly one of
// the typed fields is populated, selected by Kind; Updates carries the
// raw body for constructors IsUpdatesConstructor recognizes.
type Delivery struct {
	Kind  Kind
	MsgID uint64
	SeqNo uint32

	RPCResult          *RPCResult
	Pong               *Pong
	MsgsAck            *MsgsAck
	NewSessionCreated  *NewSessionCreated
	BadServerSalt      *BadServerSalt
	BadMsgNotification *BadMsgNotification
	FutureSalts        *FutureSalts
	Updates            []byte
	Unknown            *UnknownBody
}
