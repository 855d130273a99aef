package service

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/postalsys/mtproto-session/internal/mtproto/session"
	"github.com/postalsys/mtproto-session/internal/mtproto/tl"
)

// bad_msg_notification error codes that indicate a recoverable time
// drift rather than a fatal session error, per §4.4.3.
const (
	errCodeMsgIDTooLow  int32 = 16
	errCodeMsgIDTooHigh int32 = 17
	errCodeSeqNoTooLow  int32 = 32
	errCodeSeqNoTooHigh int32 = 33
)

// Handler classifies decrypted MTProto bodies per §4.4.3, mutating the
// EncryptedSession's salt and time_offset as the spec's table requires.
// It does not own a pending-request or ack table — those live in the
// host, which reads the req_msg_id / msg_ids out of each Delivery.
type Handler struct {
	sess *session.EncryptedSession
}

// New creates a Handler bound to sess.
func New(sess *session.EncryptedSession) *Handler {
	return &Handler{sess: sess}
}

// Dispatch classifies one decrypted top-level body (the Body field of a
// session.Message), recursing through msg_container and gzip_packed
// wrappers as needed. It returns one Delivery per leaf message.
func (h *Handler) Dispatch(msgID uint64, seqNo uint32, body []byte) ([]Delivery, error) {
	return h.dispatch(msgID, seqNo, body, 0)
}

func (h *Handler) dispatch(msgID uint64, seqNo uint32, body []byte, containerDepth int) ([]Delivery, error) {
	r := tl.NewReader(body)
	ctor, err := r.Uint32()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	switch ctor {
	case tl.CRCMsgContainer:
		if containerDepth > 0 {
			return nil, ErrNestedContainer
		}
		return h.dispatchContainer(r, containerDepth)

	case tl.CRCGzipPacked:
		decompressed, err := unwrapGzipPacked(r)
		if err != nil {
			return nil, err
		}
		return h.dispatch(msgID, seqNo, decompressed, containerDepth)

	case tl.CRCRPCResult:
		return h.dispatchRPCResult(msgID, seqNo, r)

	case tl.CRCBadServerSalt:
		return h.dispatchBadServerSalt(msgID, seqNo, r)

	case tl.CRCBadMsgNotification:
		return h.dispatchBadMsgNotification(msgID, seqNo, r)

	case tl.CRCNewSessionCreated:
		return h.dispatchNewSessionCreated(msgID, seqNo, r)

	case tl.CRCPong:
		return h.dispatchPong(msgID, seqNo, r)

	case tl.CRCMsgsAck:
		return h.dispatchMsgsAck(msgID, seqNo, r)

	case tl.CRCFutureSalts:
		return h.dispatchFutureSalts(msgID, seqNo, r)

	default:
		if tl.IsUpdatesConstructor(ctor) {
			return []Delivery{{Kind: KindUpdates, MsgID: msgID, SeqNo: seqNo, Updates: body}}, nil
		}
		return []Delivery{{Kind: KindUnknown, MsgID: msgID, SeqNo: seqNo, Unknown: &UnknownBody{Constructor: ctor, Bytes: body}}}, nil
	}
}

func (h *Handler) dispatchContainer(r *tl.Reader, containerDepth int) ([]Delivery, error) {
	count, err := r.Int32()
	if err != nil || count < 0 || count > 1<<16 {
		return nil, fmt.Errorf("%w: implausible container count", ErrMalformedBody)
	}

	var out []Delivery
	for i := int32(0); i < count; i++ {
		innerMsgID, err := r.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		innerSeqNo, err := r.Int32()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		innerLen, err := r.Int32()
		if err != nil || innerLen < 0 {
			return nil, fmt.Errorf("%w: bad inner message length", ErrMalformedBody)
		}
		innerBody, err := r.Raw(int(innerLen))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}

		deliveries, err := h.dispatch(uint64(innerMsgID), uint32(innerSeqNo), innerBody, containerDepth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, deliveries...)
	}
	return out, nil
}

func unwrapGzipPacked(r *tl.Reader) ([]byte, error) {
	packed, err := r.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(packed))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip_packed: %v", ErrMalformedBody, err)
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: gzip_packed: %v", ErrMalformedBody, err)
	}
	return data, nil
}

func (h *Handler) dispatchRPCResult(msgID uint64, seqNo uint32, r *tl.Reader) ([]Delivery, error) {
	reqMsgID, err := r.Int64()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	resultBody := r.Remaining()

	// A compressed rpc_result is common for large responses
	// (messages.getDifference and similar); unwrap one level of gzip
	// transparently so the host always sees the real TL object.
	if len(resultBody) >= 4 {
		inner := tl.NewReader(resultBody)
		if ctor, err := inner.Uint32(); err == nil && ctor == tl.CRCGzipPacked {
			decompressed, err := unwrapGzipPacked(inner)
			if err != nil {
				return nil, err
			}
			resultBody = decompressed
		}
	}

	return []Delivery{{
		Kind:  KindRPCResult,
		MsgID: msgID,
		SeqNo: seqNo,
		RPCResult: &RPCResult{
			ReqMsgID: uint64(reqMsgID),
			Body:     resultBody,
		},
	}}, nil
}

func (h *Handler) dispatchBadServerSalt(msgID uint64, seqNo uint32, r *tl.Reader) ([]Delivery, error) {
	badMsgID, err1 := r.Int64()
	badSeqNo, err2 := r.Int32()
	errorCode, err3 := r.Int32()
	newSalt, err4 := r.Int64()
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return nil, fmt.Errorf("%w: bad_server_salt", ErrMalformedBody)
	}

	h.sess.SetSalt(newSalt)

	return []Delivery{{
		Kind:  KindBadServerSalt,
		MsgID: msgID,
		SeqNo: seqNo,
		BadServerSalt: &BadServerSalt{
			BadMsgID:  uint64(badMsgID),
			BadSeqNo:  uint32(badSeqNo),
			ErrorCode: errorCode,
			NewSalt:   newSalt,
		},
	}}, nil
}

func (h *Handler) dispatchBadMsgNotification(msgID uint64, seqNo uint32, r *tl.Reader) ([]Delivery, error) {
	badMsgID, err1 := r.Int64()
	badSeqNo, err2 := r.Int32()
	errorCode, err3 := r.Int32()
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, fmt.Errorf("%w: bad_msg_notification", ErrMalformedBody)
	}

	action := ActionSurface
	switch errorCode {
	case errCodeMsgIDTooLow, errCodeMsgIDTooHigh:
		h.sess.AdjustTimeOffsetFromServerMsgID(msgID)
		action = ActionNone
	case errCodeSeqNoTooLow, errCodeSeqNoTooHigh:
		action = ActionReopenSession
	}

	return []Delivery{{
		Kind:  KindBadMsgNotification,
		MsgID: msgID,
		SeqNo: seqNo,
		BadMsgNotification: &BadMsgNotification{
			BadMsgID:  uint64(badMsgID),
			BadSeqNo:  uint32(badSeqNo),
			ErrorCode: errorCode,
			Action:    action,
		},
	}}, nil
}

func (h *Handler) dispatchNewSessionCreated(msgID uint64, seqNo uint32, r *tl.Reader) ([]Delivery, error) {
	firstMsgID, err1 := r.Int64()
	uniqueID, err2 := r.Int64()
	serverSalt, err3 := r.Int64()
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, fmt.Errorf("%w: new_session_created", ErrMalformedBody)
	}

	h.sess.SetSalt(serverSalt)

	return []Delivery{{
		Kind:  KindNewSessionCreated,
		MsgID: msgID,
		SeqNo: seqNo,
		NewSessionCreated: &NewSessionCreated{
			FirstMsgID: uint64(firstMsgID),
			UniqueID:   uint64(uniqueID),
			ServerSalt: serverSalt,
		},
	}}, nil
}

func (h *Handler) dispatchPong(msgID uint64, seqNo uint32, r *tl.Reader) ([]Delivery, error) {
	pongMsgID, err1 := r.Int64()
	pingID, err2 := r.Int64()
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("%w: pong", ErrMalformedBody)
	}

	return []Delivery{{
		Kind:  KindPong,
		MsgID: msgID,
		SeqNo: seqNo,
		Pong: &Pong{
			MsgID:  uint64(pongMsgID),
			PingID: uint64(pingID),
		},
	}}, nil
}

func (h *Handler) dispatchMsgsAck(msgID uint64, seqNo uint32, r *tl.Reader) ([]Delivery, error) {
	ids, err := r.VectorLong()
	if err != nil {
		return nil, fmt.Errorf("%w: msgs_ack", ErrMalformedBody)
	}
	uids := make([]uint64, len(ids))
	for i, id := range ids {
		uids[i] = uint64(id)
	}

	return []Delivery{{
		Kind:    KindMsgsAck,
		MsgID:   msgID,
		SeqNo:   seqNo,
		MsgsAck: &MsgsAck{MsgIDs: uids},
	}}, nil
}

func (h *Handler) dispatchFutureSalts(msgID uint64, seqNo uint32, r *tl.Reader) ([]Delivery, error) {
	reqMsgID, err := r.Int64()
	if err != nil {
		return nil, fmt.Errorf("%w: future_salts", ErrMalformedBody)
	}
	now, err := r.Int32()
	if err != nil {
		return nil, fmt.Errorf("%w: future_salts", ErrMalformedBody)
	}
	vectorCtor, err := r.Uint32()
	if err != nil || vectorCtor != tl.CRCVector {
		return nil, fmt.Errorf("%w: future_salts salts vector", ErrMalformedBody)
	}
	count, err := r.Int32()
	if err != nil || count < 0 || count > 1<<16 {
		return nil, fmt.Errorf("%w: implausible future_salts count", ErrMalformedBody)
	}

	salts := make([]FutureSalt, count)
	for i := range salts {
		ctor, err := r.Uint32()
		if err != nil || ctor != tl.CRCFutureSalt {
			return nil, fmt.Errorf("%w: future_salt element", ErrMalformedBody)
		}
		validSince, err1 := r.Int32()
		validUntil, err2 := r.Int32()
		salt, err3 := r.Int64()
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("%w: future_salt fields", ErrMalformedBody)
		}
		salts[i] = FutureSalt{ValidSince: validSince, ValidUntil: validUntil, Salt: salt}
	}

	return []Delivery{{
		Kind:  KindFutureSalts,
		MsgID: msgID,
		SeqNo: seqNo,
		FutureSalts: &FutureSalts{
			ReqMsgID: uint64(reqMsgID),
			Now:      now,
			Salts:    salts,
		},
	}}, nil
}
