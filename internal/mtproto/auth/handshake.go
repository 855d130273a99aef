// Package auth implements the three-step Diffie-Hellman authorization
// handshake: PQ request, DH params, set client DH, finish. It is
// transport-agnostic: the caller supplies send/recv callbacks over
// whatever carrier internal/transport has already established, and this
// package speaks only the plain (unencrypted) wire framing from
// internal/mtproto/plainsession.
package auth

import (
	"math/big"
	"time"

	"github.com/postalsys/mtproto-session/internal/mtproto/authkey"
	"github.com/postalsys/mtproto-session/internal/mtproto/cryptoprim"
	"github.com/postalsys/mtproto-session/internal/mtproto/plainsession"
	"github.com/postalsys/mtproto-session/internal/mtproto/rsakeys"
)

// SendFunc writes one plain wire frame to the transport.
type SendFunc func([]byte) error

// RecvFunc reads one plain wire frame from the transport.
type RecvFunc func() ([]byte, error)

// Phase names the state a handshake is in. Values carried by each phase
// live alongside it in State rather than as a Go sum type, matching the
// enum-plus-fields shape used elsewhere in this codebase for explicit
// state machines.
type Phase int

const (
	PhaseStart Phase = iota
	PhaseAwaitingResPQ
	PhaseAwaitingDHParams
	PhaseAwaitingDHAnswer
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "START"
	case PhaseAwaitingResPQ:
		return "AWAITING_RES_PQ"
	case PhaseAwaitingDHParams:
		return "AWAITING_DH_PARAMS"
	case PhaseAwaitingDHAnswer:
		return "AWAITING_DH_ANSWER"
	case PhaseDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// State is the handshake's value-type state, restartable from Start at
// any point since it carries no external resources.
type State struct {
	Phase Phase

	nonce       [16]byte
	serverNonce [16]byte
	newNonce    [32]byte
	p, q        []byte

	authKey    [256]byte
	firstSalt  int64
	timeOffset int64
}

// newNonceLow returns the first 16 bytes of the 256-bit new_nonce, the
// half the SHA-1 derivation chain in §4.2 actually consumes.
func (s *State) newNonceLow() [16]byte {
	var out [16]byte
	copy(out[:], s.newNonce[:16])
	return out
}

// Result is what a completed handshake hands back to the host.
type Result struct {
	AuthKey    [256]byte
	FirstSalt  int64
	TimeOffset int64
	ServerDC   int32
}

// Config controls handshake behavior; construct with defaults and apply
// Options.
type Config struct {
	Random        cryptoprim.RandomSource
	RSATable      []rsakeys.PublicKey
	NowNanos      func() int64
	DCID          int32
	TempAuthKey   bool
	TempExpiresIn time.Duration
	MaxRestarts   int
}

// Option configures a Config.
type Option func(*Config)

// WithRandom overrides the RandomSource (default cryptoprim.DefaultRandom).
func WithRandom(r cryptoprim.RandomSource) Option {
	return func(c *Config) { c.Random = r }
}

// WithRSATable overrides the RSA key table used to verify the server's
// fingerprint (default rsakeys.Default).
func WithRSATable(table []rsakeys.PublicKey) Option {
	return func(c *Config) { c.RSATable = table }
}

// WithDCID sets the datacenter id embedded in p_q_inner_data_dc.
func WithDCID(dcID int32) Option {
	return func(c *Config) { c.DCID = dcID }
}

// WithTempAuthKey requests the PFS extension: the handshake serializes
// p_q_inner_data_temp_dc instead of p_q_inner_data_dc, with expiresIn as
// the key's validity window. bind_auth_key_inner (binding a temp key to
// a persistent one) is intentionally left unimplemented — see the
// decision recorded in DESIGN.md.
func WithTempAuthKey(dcID int32, expiresIn time.Duration) Option {
	return func(c *Config) {
		c.DCID = dcID
		c.TempAuthKey = true
		c.TempExpiresIn = expiresIn
	}
}

func defaultConfig() Config {
	return Config{
		Random:      cryptoprim.DefaultRandom,
		RSATable:    rsakeys.Default,
		NowNanos:    func() int64 { return time.Now().UnixNano() },
		MaxRestarts: 16,
	}
}

// Authorize runs the full handshake to completion against a transport
// driven by send/recv, returning the derived auth key material or an
// AuthError describing why the handshake failed.
func Authorize(send SendFunc, recv RecvFunc, opts ...Option) (Result, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	plain := plainsession.New(cfg.NowNanos)
	state := State{Phase: PhaseStart}

	for restart := 0; restart <= cfg.MaxRestarts; restart++ {
		result, err := runHandshake(&state, plain, send, recv, cfg)
		if err == nil {
			return result, nil
		}
		if ae, ok := err.(*AuthError); ok && ae.Is(ErrRetryHandshake) {
			state = State{Phase: PhaseStart}
			continue
		}
		return Result{}, err
	}
	return Result{}, newErr(ErrProtocol, ErrRetryHandshake)
}

func runHandshake(state *State, plain *plainsession.Session, send SendFunc, recv RecvFunc, cfg Config) (Result, error) {
	if err := stepReqPQ(state, plain, send, cfg); err != nil {
		return Result{}, err
	}

	resPQBody, err := recvBody(recv)
	if err != nil {
		return Result{}, err
	}
	if err := stepResPQ(state, resPQBody, plain, send, cfg); err != nil {
		return Result{}, err
	}

	dhParamsBody, err := recvBody(recv)
	if err != nil {
		return Result{}, err
	}
	if err := stepServerDHParams(state, dhParamsBody, plain, send, cfg); err != nil {
		return Result{}, err
	}

	dhGenBody, err := recvBody(recv)
	if err != nil {
		return Result{}, err
	}
	if err := stepDHGenResult(state, dhGenBody); err != nil {
		return Result{}, err
	}

	return Result{
		AuthKey:    state.authKey,
		FirstSalt:  state.firstSalt,
		TimeOffset: state.timeOffset,
		ServerDC:   cfg.DCID,
	}, nil
}

func recvBody(recv RecvFunc) ([]byte, error) {
	wire, err := recv()
	if err != nil {
		return nil, newErr(ErrTransport, err)
	}
	msg, err := plainsession.Unpack(wire)
	if err != nil {
		return nil, newErr(ErrProtocol, err)
	}
	return msg.Body, nil
}

func sendBody(plain *plainsession.Session, send SendFunc, body []byte) error {
	if err := send(plain.Pack(body)); err != nil {
		return newErr(ErrTransport, err)
	}
	return nil
}

// step 1: Start -> AwaitingResPQ
func stepReqPQ(state *State, plain *plainsession.Session, send SendFunc, cfg Config) error {
	var nonce [16]byte
	if err := cfg.Random.Bytes(nonce[:]); err != nil {
		return newErr(ErrCrypto, err)
	}
	state.nonce = nonce
	state.Phase = PhaseAwaitingResPQ

	return sendBody(plain, send, EncodeReqPQMulti(nonce))
}

// step 2: AwaitingResPQ -> AwaitingDHParams
func stepResPQ(state *State, body []byte, plain *plainsession.Session, send SendFunc, cfg Config) error {
	res, err := DecodeResPQ(body)
	if err != nil {
		return newErr(ErrProtocol, err)
	}
	if res.Nonce != state.nonce {
		return newErr(ErrProtocol, errNonceMismatch)
	}

	key, ok := rsakeys.Lookup(res.ServerPublicKeyFingerprints, cfg.RSATable)
	if !ok {
		return newErr(ErrProtocol, errUnknownFingerprint)
	}

	pqInt := new(big.Int).SetBytes(res.PQ)
	if !pqInt.IsUint64() {
		return newErr(ErrProtocol, errPQTooLarge)
	}
	p, q, err := cryptoprim.Factorize(pqInt.Uint64(), cfg.Random)
	if err != nil {
		return newErr(ErrFactorization, err)
	}

	pBytes := trimmedBigEndian(p)
	qBytes := trimmedBigEndian(q)

	var newNonce [32]byte
	if err := cfg.Random.Bytes(newNonce[:]); err != nil {
		return newErr(ErrCrypto, err)
	}

	state.serverNonce = res.ServerNonce
	state.newNonce = newNonce
	state.p = pBytes
	state.q = qBytes
	state.Phase = PhaseAwaitingDHParams

	inner := PQInnerData{
		PQ:          res.PQ,
		P:           pBytes,
		Q:           qBytes,
		Nonce:       state.nonce,
		ServerNonce: state.serverNonce,
		NewNonce:    newNonce,
		DC:          cfg.DCID,
		Temp:        cfg.TempAuthKey,
		ExpiresIn:   int32(cfg.TempExpiresIn / time.Second),
	}
	innerBytes := inner.Encode()

	encryptedData, err := rsaPadAndEncrypt(innerBytes, key, cfg.Random)
	if err != nil {
		return newErr(ErrCrypto, err)
	}

	return sendBody(plain, send, EncodeReqDHParams(state.nonce, state.serverNonce, pBytes, qBytes, int64(key.Fingerprint), encryptedData))
}

// rsaPadAndEncrypt builds SHA1(inner) || inner || random_padding to
// exactly 255 bytes, prepends a zero byte, and RSA-encrypts. Retries
// with fresh padding if the resulting integer isn't strictly less than
// the modulus (the protocol's documented retry condition).
func rsaPadAndEncrypt(inner []byte, key rsakeys.PublicKey, rng cryptoprim.RandomSource) ([]byte, error) {
	hash := cryptoprim.SHA1(inner)

	for attempt := 0; attempt < 8; attempt++ {
		payload := make([]byte, 255)
		copy(payload, hash[:])
		copy(payload[20:], inner)
		padding := payload[20+len(inner):]
		if err := rng.Bytes(padding); err != nil {
			return nil, err
		}

		withZero := make([]byte, 256)
		copy(withZero[1:], payload)

		m := new(big.Int).SetBytes(withZero)
		if m.Cmp(key.N) >= 0 {
			continue
		}

		return cryptoprim.RSARawEncrypt(withZero, key.N, key.E, 256), nil
	}
	return nil, errRSAPaddingExhausted
}

func trimmedBigEndian(v uint64) []byte {
	b := big.NewInt(0).SetUint64(v).Bytes()
	if len(b) == 0 {
		return []byte{0}
	}
	return b
}

// step 3: AwaitingDHParams -> AwaitingDHAnswer
func stepServerDHParams(state *State, body []byte, plain *plainsession.Session, send SendFunc, cfg Config) error {
	dhParams, err := DecodeServerDHParams(body)
	if err != nil {
		return newErr(ErrProtocol, err)
	}
	if dhParams.Fail {
		return newErr(ErrProtocol, errServerDHFail)
	}
	if dhParams.Nonce != state.nonce || dhParams.ServerNonce != state.serverNonce {
		return newErr(ErrProtocol, errNonceMismatch)
	}

	aux := authkey.DeriveAux(state.newNonceLow(), state.serverNonce)

	plaintext, err := cryptoprim.AESIGEDecrypt(dhParams.EncryptedAnswer, aux.AESKey[:], aux.AESIV[:])
	if err != nil {
		return newErr(ErrCrypto, err)
	}
	if len(plaintext) < 20 {
		return newErr(ErrProtocol, errAnswerTooShort)
	}

	answerHash := plaintext[:20]
	answer := plaintext[20:]
	computed := cryptoprim.SHA1(answer)
	if !cryptoprim.ConstantTimeEqual(answerHash, computed[:]) {
		return newErr(ErrProtocol, errAnswerHashMismatch)
	}

	inner, err := DecodeServerDHInnerData(answer)
	if err != nil {
		return newErr(ErrProtocol, err)
	}
	if inner.Nonce != state.nonce || inner.ServerNonce != state.serverNonce {
		return newErr(ErrProtocol, errNonceMismatch)
	}

	dhPrime := new(big.Int).SetBytes(inner.DHPrime)
	if err := validateDHPrime(dhPrime); err != nil {
		return newErr(ErrProtocol, err)
	}
	if err := validateGenerator(inner.G, dhPrime); err != nil {
		return newErr(ErrProtocol, err)
	}

	gA := new(big.Int).SetBytes(inner.GA)
	if err := validateDHRange(gA, dhPrime); err != nil {
		return newErr(ErrProtocol, err)
	}

	b := make([]byte, 256)
	if err := cfg.Random.Bytes(b); err != nil {
		return newErr(ErrCrypto, err)
	}
	bInt := new(big.Int).SetBytes(b)

	g := big.NewInt(int64(inner.G))
	gB := new(big.Int).Exp(g, bInt, dhPrime)
	if err := validateDHRange(gB, dhPrime); err != nil {
		return newErr(ErrProtocol, err)
	}

	gab := new(big.Int).Exp(gA, bInt, dhPrime)

	state.authKey = authkey.AuthKeyFromSharedSecret(gab)
	state.firstSalt = authkey.FirstSalt(state.newNonceLow(), state.serverNonce)
	state.timeOffset = int64(inner.ServerTime) - cfg.NowNanos()/1_000_000_000
	state.Phase = PhaseAwaitingDHAnswer

	clientInner := EncodeClientDHInnerData(state.nonce, state.serverNonce, 0, gB.Bytes())
	encryptedData, err := aesIGEPadAndEncrypt(clientInner, aux, cfg.Random)
	if err != nil {
		return newErr(ErrCrypto, err)
	}

	return sendBody(plain, send, EncodeSetClientDHParams(state.nonce, state.serverNonce, encryptedData))
}

// aesIGEPadAndEncrypt builds SHA1(x) || x || random_padding aligned to
// 16 bytes and AES-IGE encrypts it with the handshake's aux hashes.
func aesIGEPadAndEncrypt(x []byte, aux authkey.AuxHashes, random cryptoprim.RandomSource) ([]byte, error) {
	hash := cryptoprim.SHA1(x)
	total := 20 + len(x)
	if rem := total % 16; rem != 0 {
		total += 16 - rem
	}

	plaintext := make([]byte, total)
	copy(plaintext, hash[:])
	copy(plaintext[20:], x)
	if err := random.Bytes(plaintext[20+len(x):]); err != nil {
		return nil, err
	}

	return cryptoprim.AESIGEEncrypt(plaintext, aux.AESKey[:], aux.AESIV[:])
}

// step 4: AwaitingDHAnswer -> Done
func stepDHGenResult(state *State, body []byte) error {
	result, err := DecodeDHGenResult(body)
	if err != nil {
		return newErr(ErrProtocol, err)
	}
	if result.Nonce != state.nonce || result.ServerNonce != state.serverNonce {
		return newErr(ErrProtocol, errNonceMismatch)
	}

	var marker byte
	switch result.Outcome {
	case DHGenOK:
		marker = 1
	case DHGenRetry:
		marker = 2
	case DHGenFail:
		marker = 3
	}

	expected := authkey.NewNonceHash(state.newNonceLow(), marker, state.authKey)
	if !cryptoprim.ConstantTimeEqual(expected[:], result.NewNonceHash[:]) {
		return newErr(ErrProtocol, errNewNonceHashMismatch)
	}

	switch result.Outcome {
	case DHGenOK:
		state.Phase = PhaseDone
		return nil
	case DHGenRetry:
		return newErr(ErrProtocol, ErrRetryHandshake)
	default: // DHGenFail
		return newErr(ErrProtocol, errDHGenFail)
	}
}
