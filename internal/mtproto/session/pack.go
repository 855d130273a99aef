package session

import (
	"encoding/binary"
	"errors"

	"github.com/postalsys/mtproto-session/internal/mtproto/cryptoprim"
)

// ErrRateLimited is returned by Pack when an attached rate limiter
// refuses the call. Not part of the wire protocol — purely a local
// call-rate guard a host may opt into via WithRateLimiter.
var ErrRateLimited = errors.New("session: pack rate limit exceeded")

const innerHeaderSize = 8 + 8 + 8 + 4 + 4 // salt, session_id, msg_id, seq_no, len
const minPadding = 12
const maxPadding = 1024

// nextMsgIDAndSeqNo implements §4.4.1 steps 1-2: choose the next
// strictly-increasing msg_id, then derive seq_no from the current
// content counter, bumping it only for content-related messages.
func (s *EncryptedSession) nextMsgIDAndSeqNo(isContentRelated bool) (uint64, uint32) {
	msgID := s.ids.Next()

	seqNo := s.contentCtr << 1
	if isContentRelated {
		seqNo |= 1
		s.contentCtr++
	}
	return msgID, seqNo
}

// Pack frames body as an encrypted outgoing wire message per §4.4.1.
func (s *EncryptedSession) Pack(body []byte, isContentRelated bool) ([]byte, error) {
	if s.limiter != nil && !s.limiter.Allow() {
		return nil, ErrRateLimited
	}

	msgID, seqNo := s.nextMsgIDAndSeqNo(isContentRelated)
	return s.packFrame(body, msgID, seqNo)
}

// packFrame assembles and encrypts a frame as client->server traffic
// (x=0). It underlies both Pack and PackContainer.
func (s *EncryptedSession) packFrame(body []byte, msgID uint64, seqNo uint32) ([]byte, error) {
	return s.packFrameDirection(body, msgID, seqNo, 0)
}

// packFrameDirection is packFrame parameterized by the x offset from
// §4.4.1/§4.4.2 (0 for client->server, 8 for server->client), so tests
// can synthesize genuine server-direction frames to exercise Unpack.
func (s *EncryptedSession) packFrameDirection(body []byte, msgID uint64, seqNo uint32, x int) ([]byte, error) {
	padLen := paddingFor(len(body))

	inner := make([]byte, innerHeaderSize+len(body)+padLen)
	binary.LittleEndian.PutUint64(inner[0:8], uint64(s.salt))
	binary.LittleEndian.PutUint64(inner[8:16], s.sessionID)
	binary.LittleEndian.PutUint64(inner[16:24], msgID)
	binary.LittleEndian.PutUint32(inner[24:28], seqNo)
	binary.LittleEndian.PutUint32(inner[28:32], uint32(len(body)))
	copy(inner[32:32+len(body)], body)
	if err := s.rand.Bytes(inner[32+len(body):]); err != nil {
		return nil, err
	}

	msgKey := deriveMsgKeyAtOffset(s.authKey, inner, x)
	aesKey, aesIV := deriveAESKeyIV(s.authKey, msgKey, x)

	ciphertext, err := cryptoprim.AESIGEEncrypt(inner, aesKey[:], aesIV[:])
	if err != nil {
		return nil, err
	}

	out := make([]byte, 8+16+len(ciphertext))
	binary.LittleEndian.PutUint64(out[0:8], s.authKeyID)
	copy(out[8:24], msgKey[:])
	copy(out[24:], ciphertext)
	return out, nil
}

// paddingFor returns the smallest padding length in [minPadding,
// maxPadding] that makes innerHeaderSize+bodyLen+padding a multiple of
// 16, per §4.4.1 step 3.
func paddingFor(bodyLen int) int {
	base := innerHeaderSize + bodyLen
	pad := minPadding
	if rem := (base + pad) % 16; rem != 0 {
		pad += 16 - rem
	}
	return pad
}

// deriveMsgKeyAtOffset computes msg_key_large = SHA256(auth_key[88+x ..
// 88+x+32] || data); msg_key = msg_key_large[8..24]. x=0 for the
// sender's own computation (§4.4.1 step 4); the receiver recomputes it
// with x=8 when checking server->client traffic (§4.4.2 step 5).
func deriveMsgKeyAtOffset(authKey AuthKey, data []byte, x int) [16]byte {
	large := cryptoprim.SHA256(authKey[88+x:88+x+32], data)
	var msgKey [16]byte
	copy(msgKey[:], large[8:24])
	return msgKey
}

// deriveAESKeyIV implements §4.4.1 step 5 / §4.4.2 step 3: x=0 for
// client->server (Pack), x=8 for server->client (Unpack).
func deriveAESKeyIV(authKey AuthKey, msgKey [16]byte, x int) (aesKey, aesIV [32]byte) {
	shaA := cryptoprim.SHA256(msgKey[:], authKey[x:x+36])
	shaB := cryptoprim.SHA256(authKey[40+x:40+x+36], msgKey[:])

	copy(aesKey[0:8], shaA[0:8])
	copy(aesKey[8:24], shaB[8:24])
	copy(aesKey[24:32], shaA[24:32])

	copy(aesIV[0:8], shaB[0:8])
	copy(aesIV[8:24], shaA[8:24])
	copy(aesIV[24:32], shaB[24:32])
	return aesKey, aesIV
}
