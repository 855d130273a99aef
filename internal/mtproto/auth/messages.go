package auth

import (
	"fmt"

	"github.com/postalsys/mtproto-session/internal/mtproto/tl"
)

// EncodeReqPQMulti builds req_pq_multi#be7e8ef1 nonce:int128 = ResPQ.
func EncodeReqPQMulti(nonce [16]byte) []byte {
	return tl.NewWriter().Uint32(tl.CRCReqPQMulti).Int128(nonce).Build()
}

// ResPQ is the server's reply to req_pq_multi.
type ResPQ struct {
	Nonce                       [16]byte
	ServerNonce                 [16]byte
	PQ                          []byte
	ServerPublicKeyFingerprints []int64
}

// DecodeResPQ parses resPQ#05162463.
func DecodeResPQ(body []byte) (ResPQ, error) {
	r := tl.NewReader(body)

	ctor, err := r.Uint32()
	if err != nil {
		return ResPQ{}, err
	}
	if ctor != tl.CRCResPQ {
		return ResPQ{}, fmt.Errorf("auth: expected resPQ constructor %#x, got %#x", tl.CRCResPQ, ctor)
	}

	var res ResPQ
	if res.Nonce, err = r.Int128(); err != nil {
		return ResPQ{}, err
	}
	if res.ServerNonce, err = r.Int128(); err != nil {
		return ResPQ{}, err
	}
	if res.PQ, err = r.Bytes(); err != nil {
		return ResPQ{}, err
	}
	if res.ServerPublicKeyFingerprints, err = r.VectorLong(); err != nil {
		return ResPQ{}, err
	}
	return res, nil
}

// PQInnerData holds the fields shared by p_q_inner_data_dc and
// p_q_inner_data_temp_dc.
type PQInnerData struct {
	PQ          []byte
	P           []byte
	Q           []byte
	Nonce       [16]byte
	ServerNonce [16]byte
	NewNonce    [32]byte
	DC          int32
	// ExpiresIn is nonzero only for the _temp (PFS) variant.
	ExpiresIn int32
	Temp      bool
}

// Encode serializes either p_q_inner_data_dc#a9f55f95 or, when Temp is
// set, p_q_inner_data_temp_dc#3c6a84d4 (the PFS extension hook
// documented as an optional variant).
func (d PQInnerData) Encode() []byte {
	w := tl.NewWriter()
	if d.Temp {
		w.Uint32(tl.CRCPQInnerDataTmp)
	} else {
		w.Uint32(tl.CRCPQInnerDataDC)
	}
	w.Bytes(d.PQ).Bytes(d.P).Bytes(d.Q).Int128(d.Nonce).Int128(d.ServerNonce).Int256(d.NewNonce).Int32(d.DC)
	if d.Temp {
		w.Int32(d.ExpiresIn)
	}
	return w.Build()
}

// EncodeReqDHParams builds req_DH_params#d712e4be.
func EncodeReqDHParams(nonce, serverNonce [16]byte, p, q []byte, fingerprint int64, encryptedData []byte) []byte {
	return tl.NewWriter().
		Uint32(tl.CRCReqDHParams).
		Int128(nonce).
		Int128(serverNonce).
		Bytes(p).
		Bytes(q).
		Int64(fingerprint).
		Bytes(encryptedData).
		Build()
}

// ServerDHParams is the decoded outcome of server_DH_params_ok or
// server_DH_params_fail; Fail is set to distinguish them.
type ServerDHParams struct {
	Nonce           [16]byte
	ServerNonce     [16]byte
	EncryptedAnswer []byte // valid only when !Fail
	NewNonceHash    [16]byte
	Fail            bool
}

// DecodeServerDHParams parses either server_DH_params_ok#d0e8075c or
// server_DH_params_fail#79cb045d.
func DecodeServerDHParams(body []byte) (ServerDHParams, error) {
	r := tl.NewReader(body)

	ctor, err := r.Uint32()
	if err != nil {
		return ServerDHParams{}, err
	}

	var out ServerDHParams
	switch ctor {
	case tl.CRCServerDHOK:
		if out.Nonce, err = r.Int128(); err != nil {
			return ServerDHParams{}, err
		}
		if out.ServerNonce, err = r.Int128(); err != nil {
			return ServerDHParams{}, err
		}
		if out.EncryptedAnswer, err = r.Bytes(); err != nil {
			return ServerDHParams{}, err
		}
		return out, nil
	case tl.CRCServerDHFail:
		out.Fail = true
		if out.Nonce, err = r.Int128(); err != nil {
			return ServerDHParams{}, err
		}
		if out.ServerNonce, err = r.Int128(); err != nil {
			return ServerDHParams{}, err
		}
		if out.NewNonceHash, err = r.Int128(); err != nil {
			return ServerDHParams{}, err
		}
		return out, nil
	default:
		return ServerDHParams{}, fmt.Errorf("auth: unexpected Server_DH_Params constructor %#x", ctor)
	}
}

// ServerDHInnerData is the plaintext recovered from decrypting
// server_DH_params_ok's encrypted_answer.
type ServerDHInnerData struct {
	Nonce       [16]byte
	ServerNonce [16]byte
	G           int32
	DHPrime     []byte
	GA          []byte
	ServerTime  int32
}

// DecodeServerDHInnerData parses server_DH_inner_data#b5890dba.
func DecodeServerDHInnerData(body []byte) (ServerDHInnerData, error) {
	r := tl.NewReader(body)

	ctor, err := r.Uint32()
	if err != nil {
		return ServerDHInnerData{}, err
	}
	if ctor != tl.CRCServerDHInner {
		return ServerDHInnerData{}, fmt.Errorf("auth: expected server_DH_inner_data constructor %#x, got %#x", tl.CRCServerDHInner, ctor)
	}

	var d ServerDHInnerData
	if d.Nonce, err = r.Int128(); err != nil {
		return ServerDHInnerData{}, err
	}
	if d.ServerNonce, err = r.Int128(); err != nil {
		return ServerDHInnerData{}, err
	}
	if d.G, err = r.Int32(); err != nil {
		return ServerDHInnerData{}, err
	}
	if d.DHPrime, err = r.Bytes(); err != nil {
		return ServerDHInnerData{}, err
	}
	if d.GA, err = r.Bytes(); err != nil {
		return ServerDHInnerData{}, err
	}
	if d.ServerTime, err = r.Int32(); err != nil {
		return ServerDHInnerData{}, err
	}
	return d, nil
}

// EncodeClientDHInnerData builds client_DH_inner_data#6643b654.
func EncodeClientDHInnerData(nonce, serverNonce [16]byte, retryID int64, gB []byte) []byte {
	return tl.NewWriter().
		Uint32(tl.CRCClientDHInner).
		Int128(nonce).
		Int128(serverNonce).
		Int64(retryID).
		Bytes(gB).
		Build()
}

// EncodeSetClientDHParams builds set_client_DH_params#f5045f1f.
func EncodeSetClientDHParams(nonce, serverNonce [16]byte, encryptedData []byte) []byte {
	return tl.NewWriter().
		Uint32(tl.CRCSetClientDH).
		Int128(nonce).
		Int128(serverNonce).
		Bytes(encryptedData).
		Build()
}

// DHGenResult classifies dh_gen_ok/_retry/_fail.
type DHGenResult struct {
	Nonce       [16]byte
	ServerNonce [16]byte
	NewNonceHash [16]byte
	Outcome     DHGenOutcome
}

// DHGenOutcome is the classified constructor of a Set_client_DH_params_answer.
type DHGenOutcome int

const (
	DHGenOK DHGenOutcome = iota
	DHGenRetry
	DHGenFail
)

// DecodeDHGenResult parses dh_gen_ok#3bcbf734, dh_gen_retry#46dc1fb9, or
// dh_gen_fail#a69dae02.
func DecodeDHGenResult(body []byte) (DHGenResult, error) {
	r := tl.NewReader(body)

	ctor, err := r.Uint32()
	if err != nil {
		return DHGenResult{}, err
	}

	var out DHGenResult
	switch ctor {
	case tl.CRCDHGenOK:
		out.Outcome = DHGenOK
	case tl.CRCDHGenRetry:
		out.Outcome = DHGenRetry
	case tl.CRCDHGenFail:
		out.Outcome = DHGenFail
	default:
		return DHGenResult{}, fmt.Errorf("auth: unexpected Set_client_DH_params_answer constructor %#x", ctor)
	}

	if out.Nonce, err = r.Int128(); err != nil {
		return DHGenResult{}, err
	}
	if out.ServerNonce, err = r.Int128(); err != nil {
		return DHGenResult{}, err
	}
	if out.NewNonceHash, err = r.Int128(); err != nil {
		return DHGenResult{}, err
	}
	return out, nil
}
