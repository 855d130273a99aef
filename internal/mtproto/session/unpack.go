package session

import (
	"encoding/binary"
	"fmt"

	"github.com/postalsys/mtproto-session/internal/mtproto/cryptoprim"
)

// Message is a decrypted, verified frame delivered upward, per §3.3's
// MtpMessage.
type Message struct {
	MsgID uint64
	SeqNo uint32
	Body  []byte
}

// Unpack decrypts and verifies an incoming wire frame per §4.4.2.
func (s *EncryptedSession) Unpack(wire []byte) (Message, error) {
	if len(wire) < 8+16 {
		return Message{}, fmt.Errorf("%w: frame shorter than header", ErrMalformedFrame)
	}

	authKeyID := binary.LittleEndian.Uint64(wire[0:8])
	if authKeyID != s.authKeyID {
		return Message{}, ErrAuthKeyMismatch
	}

	var msgKey [16]byte
	copy(msgKey[:], wire[8:24])
	ciphertext := wire[24:]

	if len(ciphertext) == 0 || len(ciphertext)%16 != 0 {
		return Message{}, fmt.Errorf("%w: ciphertext not a multiple of the block size", ErrMalformedFrame)
	}

	aesKey, aesIV := deriveAESKeyIV(s.authKey, msgKey, 8)
	plaintext, err := cryptoprim.AESIGEDecrypt(ciphertext, aesKey[:], aesIV[:])
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	wantKey := deriveMsgKeyAtOffset(s.authKey, plaintext, 8)
	if !cryptoprim.ConstantTimeEqual(msgKey[:], wantKey[:]) {
		return Message{}, ErrMsgKeyMismatch
	}

	if len(plaintext) < innerHeaderSize {
		return Message{}, fmt.Errorf("%w: plaintext shorter than inner header", ErrMalformedFrame)
	}

	salt := int64(binary.LittleEndian.Uint64(plaintext[0:8]))
	sessionID := binary.LittleEndian.Uint64(plaintext[8:16])
	msgID := binary.LittleEndian.Uint64(plaintext[16:24])
	seqNo := binary.LittleEndian.Uint32(plaintext[24:28])
	bodyLen := binary.LittleEndian.Uint32(plaintext[28:32])
	_ = salt // the incoming salt is informational; bad_server_salt carries the authoritative replacement

	if sessionID != s.sessionID {
		return Message{}, ErrSessionIDMismatch
	}

	padding := len(plaintext) - innerHeaderSize - int(bodyLen)
	if bodyLen > uint32(len(plaintext)-innerHeaderSize) || padding < minPadding || padding > maxPadding {
		return Message{}, ErrLengthOutOfRange
	}

	if msgID&1 == 0 {
		return Message{}, fmt.Errorf("%w: msg_id %d is not server-origin", ErrMalformedFrame, msgID)
	}
	if s.recent.Seen(msgID) {
		return Message{}, fmt.Errorf("%w: duplicate msg_id %d", ErrMalformedFrame, msgID)
	}
	s.recent.Record(msgID)

	body := make([]byte, bodyLen)
	copy(body, plaintext[32:32+bodyLen])

	return Message{MsgID: msgID, SeqNo: seqNo, Body: body}, nil
}
