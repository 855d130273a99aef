package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/postalsys/mtproto-session/internal/mtproto/authkey"
	"github.com/postalsys/mtproto-session/internal/mtproto/cryptoprim"
	"github.com/postalsys/mtproto-session/internal/mtproto/plainsession"
	"github.com/postalsys/mtproto-session/internal/mtproto/rsakeys"
	"github.com/postalsys/mtproto-session/internal/mtproto/tl"
)

// dhPrimeGroup14Hex is the standard RFC 3526 2048-bit MODP Group 14
// prime. MTProto's real servers use exactly this prime as their default
// dh_prime, so it doubles as a realistic fixture and a prime that
// satisfies validateDHPrime/validateGenerator(g=2) for real (p mod 8 == 7).
const dhPrimeGroup14Hex = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
	"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
	"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
	"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D" +
	"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
	"83655D23DCA3AD961C62F356208552BB9ED529077096966D" +
	"670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9" +
	"DE2BCBF69558171839954997CEA956AE515D2261898FA051" +
	"015728E5A8AACAA68FFFFFFFFFFFFFFFF"

// fakeServer drives the server side of the handshake for the round-trip
// test, using the same primitives the client does (it is not a model of
// an actual Telegram datacenter, just enough protocol logic to exercise
// the client state machine end to end).
type fakeServer struct {
	priv       *rsa.PrivateKey
	fingerprint int64
	dhPrime    *big.Int

	nonce       [16]byte
	serverNonce [16]byte
	newNonce    [32]byte
	serverA     *big.Int
	gA          *big.Int
}

func newFakeServer(t *testing.T, fingerprint int64) *fakeServer {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}
	dhPrime, ok := new(big.Int).SetString(dhPrimeGroup14Hex, 16)
	if !ok {
		t.Fatalf("failed to parse dh_prime fixture")
	}
	return &fakeServer{priv: priv, fingerprint: fingerprint, dhPrime: dhPrime}
}

func (s *fakeServer) rsaTable(t *testing.T) []rsakeys.PublicKey {
	t.Helper()
	der := x509.MarshalPKCS1PublicKey(&s.priv.PublicKey)
	block := &pem.Block{Type: "RSA PUBLIC KEY", Bytes: der}
	keys, err := rsakeys.LoadPEM([]string{string(pem.EncodeToMemory(block))})
	if err != nil {
		t.Fatalf("LoadPEM: %v", err)
	}
	return keys
}

// handleReqPQMulti parses req_pq_multi and returns the framed resPQ reply.
func (s *fakeServer) handleReqPQMulti(t *testing.T, body []byte) []byte {
	t.Helper()
	r := tl.NewReader(body)
	ctor, err := r.Uint32()
	if err != nil || ctor != tl.CRCReqPQMulti {
		t.Fatalf("expected req_pq_multi, got ctor=%#x err=%v", ctor, err)
	}
	nonce, err := r.Int128()
	if err != nil {
		t.Fatalf("read nonce: %v", err)
	}
	s.nonce = nonce

	if err := cryptoprim.DefaultRandom.Bytes(s.serverNonce[:]); err != nil {
		t.Fatalf("random server_nonce: %v", err)
	}

	const pq = 0x17ED48941A08F981
	pqBytes := big.NewInt(0).SetUint64(pq).Bytes()

	return tl.NewWriter().
		Uint32(tl.CRCResPQ).
		Int128(s.nonce).
		Int128(s.serverNonce).
		Bytes(pqBytes).
		VectorLong([]int64{s.fingerprint}).
		Build()
}

// handleReqDHParams parses req_DH_params, RSA-decrypts the inner data to
// recover new_nonce, and returns the framed server_DH_params_ok reply.
func (s *fakeServer) handleReqDHParams(t *testing.T, body []byte) []byte {
	t.Helper()
	r := tl.NewReader(body)
	ctor, err := r.Uint32()
	if err != nil || ctor != tl.CRCReqDHParams {
		t.Fatalf("expected req_DH_params, got ctor=%#x err=%v", ctor, err)
	}
	if _, err := r.Int128(); err != nil { // nonce
		t.Fatalf("read nonce: %v", err)
	}
	if _, err := r.Int128(); err != nil { // server_nonce
		t.Fatalf("read server_nonce: %v", err)
	}
	if _, err := r.Bytes(); err != nil { // p
		t.Fatalf("read p: %v", err)
	}
	if _, err := r.Bytes(); err != nil { // q
		t.Fatalf("read q: %v", err)
	}
	if _, err := r.Int64(); err != nil { // fingerprint
		t.Fatalf("read fingerprint: %v", err)
	}
	encryptedData, err := r.Bytes()
	if err != nil {
		t.Fatalf("read encrypted_data: %v", err)
	}

	c := new(big.Int).SetBytes(encryptedData)
	m := new(big.Int).Exp(c, s.priv.D, s.priv.N)
	padded := make([]byte, 256)
	mb := m.Bytes()
	copy(padded[256-len(mb):], mb)

	inner := tl.NewReader(padded[21:]) // skip leading zero byte + sha1(20)
	innerCtor, err := inner.Uint32()
	if err != nil || innerCtor != tl.CRCPQInnerDataDC {
		t.Fatalf("expected p_q_inner_data_dc, got ctor=%#x err=%v", innerCtor, err)
	}
	if _, err := inner.Bytes(); err != nil { // pq
		t.Fatalf("read inner pq: %v", err)
	}
	if _, err := inner.Bytes(); err != nil { // p
		t.Fatalf("read inner p: %v", err)
	}
	if _, err := inner.Bytes(); err != nil { // q
		t.Fatalf("read inner q: %v", err)
	}
	if _, err := inner.Int128(); err != nil { // nonce
		t.Fatalf("read inner nonce: %v", err)
	}
	if _, err := inner.Int128(); err != nil { // server_nonce
		t.Fatalf("read inner server_nonce: %v", err)
	}
	newNonce, err := inner.Int256()
	if err != nil {
		t.Fatalf("read inner new_nonce: %v", err)
	}
	s.newNonce = newNonce

	var a [256]byte
	if err := cryptoprim.DefaultRandom.Bytes(a[:]); err != nil {
		t.Fatalf("random server exponent: %v", err)
	}
	s.serverA = new(big.Int).SetBytes(a[:])
	s.gA = new(big.Int).Exp(big.NewInt(2), s.serverA, s.dhPrime)

	innerData := tl.NewWriter().
		Uint32(tl.CRCServerDHInner).
		Int128(s.nonce).
		Int128(s.serverNonce).
		Int32(2).
		Bytes(s.dhPrime.Bytes()).
		Bytes(s.gA.Bytes()).
		Int32(int32(time.Now().Unix())).
		Build()

	answerPlain := padToIGEBlocks(cryptoprim.SHA1(innerData), innerData)
	aux := authkey.DeriveAux(lowNonce(s.newNonce), s.serverNonce)
	encryptedAnswer, err := cryptoprim.AESIGEEncrypt(answerPlain, aux.AESKey[:], aux.AESIV[:])
	if err != nil {
		t.Fatalf("encrypt answer: %v", err)
	}

	return tl.NewWriter().
		Uint32(tl.CRCServerDHOK).
		Int128(s.nonce).
		Int128(s.serverNonce).
		Bytes(encryptedAnswer).
		Build()
}

// handleSetClientDHParams parses set_client_DH_params, completes the DH
// exchange server-side, and returns the framed dh_gen_ok reply along
// with the server's view of the derived auth key (for the test to
// compare against the client's).
func (s *fakeServer) handleSetClientDHParams(t *testing.T, body []byte) ([]byte, [256]byte) {
	t.Helper()
	r := tl.NewReader(body)
	ctor, err := r.Uint32()
	if err != nil || ctor != tl.CRCSetClientDH {
		t.Fatalf("expected set_client_DH_params, got ctor=%#x err=%v", ctor, err)
	}
	if _, err := r.Int128(); err != nil {
		t.Fatalf("read nonce: %v", err)
	}
	if _, err := r.Int128(); err != nil {
		t.Fatalf("read server_nonce: %v", err)
	}
	encryptedData, err := r.Bytes()
	if err != nil {
		t.Fatalf("read encrypted_data: %v", err)
	}

	aux := authkey.DeriveAux(lowNonce(s.newNonce), s.serverNonce)
	plaintext, err := cryptoprim.AESIGEDecrypt(encryptedData, aux.AESKey[:], aux.AESIV[:])
	if err != nil {
		t.Fatalf("decrypt client_DH_inner_data: %v", err)
	}

	inner := tl.NewReader(plaintext[20:])
	innerCtor, err := inner.Uint32()
	if err != nil || innerCtor != tl.CRCClientDHInner {
		t.Fatalf("expected client_DH_inner_data, got ctor=%#x err=%v", innerCtor, err)
	}
	if _, err := inner.Int128(); err != nil {
		t.Fatalf("read nonce: %v", err)
	}
	if _, err := inner.Int128(); err != nil {
		t.Fatalf("read server_nonce: %v", err)
	}
	if _, err := inner.Int64(); err != nil { // retry_id
		t.Fatalf("read retry_id: %v", err)
	}
	gBBytes, err := inner.Bytes()
	if err != nil {
		t.Fatalf("read g_b: %v", err)
	}
	gB := new(big.Int).SetBytes(gBBytes)

	gab := new(big.Int).Exp(gB, s.serverA, s.dhPrime)
	authKey := authkey.AuthKeyFromSharedSecret(gab)
	newNonceHash1 := authkey.NewNonceHash(lowNonce(s.newNonce), 1, authKey)

	reply := tl.NewWriter().
		Uint32(tl.CRCDHGenOK).
		Int128(s.nonce).
		Int128(s.serverNonce).
		Int128(newNonceHash1).
		Build()

	return reply, authKey
}

func lowNonce(n [32]byte) [16]byte {
	var out [16]byte
	copy(out[:], n[:16])
	return out
}

func padToIGEBlocks(hash [20]byte, data []byte) []byte {
	total := 20 + len(data)
	if rem := total % 16; rem != 0 {
		total += 16 - rem
	}
	out := make([]byte, total)
	copy(out, hash[:])
	copy(out[20:], data)
	_ = cryptoprim.DefaultRandom.Bytes(out[20+len(data):])
	return out
}

func TestHandshakeHappyPath(t *testing.T) {
	const fingerprint = int64(0x1122334455667788)
	server := newFakeServer(t, fingerprint)
	table := server.rsaTable(t)
	table[0].Fingerprint = uint64(fingerprint)

	clientToServer := make(chan []byte)
	serverToClient := make(chan []byte)

	serverErrCh := make(chan error, 1)
	serverAuthKeyCh := make(chan [256]byte, 1)
	go func() {
		defer close(serverErrCh)

		reqPQ := <-clientToServer
		msg, err := plainsession.Unpack(reqPQ)
		if err != nil {
			serverErrCh <- err
			return
		}
		serverToClient <- plainsession.New(func() int64 { return time.Now().UnixNano() }).Pack(server.handleReqPQMulti(t, msg.Body))

		reqDH := <-clientToServer
		msg, err = plainsession.Unpack(reqDH)
		if err != nil {
			serverErrCh <- err
			return
		}
		serverToClient <- plainsession.New(func() int64 { return time.Now().UnixNano() }).Pack(server.handleReqDHParams(t, msg.Body))

		setDH := <-clientToServer
		msg, err = plainsession.Unpack(setDH)
		if err != nil {
			serverErrCh <- err
			return
		}
		reply, serverAuthKey := server.handleSetClientDHParams(t, msg.Body)
		serverAuthKeyCh <- serverAuthKey
		serverToClient <- plainsession.New(func() int64 { return time.Now().UnixNano() }).Pack(reply)
	}()

	send := func(wire []byte) error {
		clientToServer <- wire
		return nil
	}
	recv := func() ([]byte, error) {
		return <-serverToClient, nil
	}

	result, err := Authorize(send, recv, WithRSATable(table), WithDCID(2))
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}

	if err := <-serverErrCh; err != nil {
		t.Fatalf("fake server error: %v", err)
	}

	if result.ServerDC != 2 {
		t.Fatalf("ServerDC = %d, want 2", result.ServerDC)
	}
	if result.AuthKey == ([256]byte{}) {
		t.Fatalf("AuthKey is all zero")
	}

	serverAuthKey := <-serverAuthKeyCh
	if result.AuthKey != serverAuthKey {
		t.Fatalf("client and server derived different auth keys")
	}
}
