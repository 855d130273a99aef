package session

import (
	"github.com/postalsys/mtproto-session/internal/mtproto/tl"
)

// OutMessage is one message to be batched into a msg_container, per
// §6.3's pack_container.
type OutMessage struct {
	Body           []byte
	ContentRelated bool
}

// PackContainer assigns each message its own msg_id and seq_no (in call
// order), wraps them in a msg_container, and encrypts the whole
// container as a single non-content-related outgoing frame.
func (s *EncryptedSession) PackContainer(messages []OutMessage) ([]byte, error) {
	w := tl.NewWriter().Uint32(tl.CRCMsgContainer).Int32(int32(len(messages)))

	for _, m := range messages {
		msgID, seqNo := s.nextMsgIDAndSeqNo(m.ContentRelated)
		w.Int64(int64(msgID)).Int32(int32(seqNo)).Int32(int32(len(m.Body))).Raw(m.Body)
	}

	containerMsgID, containerSeqNo := s.nextMsgIDAndSeqNo(false)
	return s.packFrame(w.Build(), containerMsgID, containerSeqNo)
}

// BuildAck builds a msgs_ack#62d6b459 body acknowledging msgIDs. The
// host is responsible for Pack-ing and sending it (non-content-related),
// per SPEC_FULL.md's supplemented ack-emission behavior.
func BuildAck(msgIDs []uint64) []byte {
	longs := make([]int64, len(msgIDs))
	for i, id := range msgIDs {
		longs[i] = int64(id)
	}
	return tl.NewWriter().Uint32(tl.CRCMsgsAck).VectorLong(longs).Build()
}

// BuildPing builds a ping#7abe77ec body carrying pingID. The host Packs
// and sends it, then matches the eventual pong by ping_id.
func BuildPing(pingID uint64) []byte {
	return tl.NewWriter().Uint32(tl.CRCPingID).Int64(int64(pingID)).Build()
}
