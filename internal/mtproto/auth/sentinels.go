package auth

import "errors"

var (
	errNonceMismatch         = errors.New("auth: nonce mismatch")
	errUnknownFingerprint    = errors.New("auth: no known RSA key matches the server's fingerprints")
	errPQTooLarge            = errors.New("auth: pq does not fit in 64 bits")
	errRSAPaddingExhausted   = errors.New("auth: exhausted retries building an RSA payload below the modulus")
	errServerDHFail          = errors.New("auth: server_DH_params_fail")
	errAnswerTooShort        = errors.New("auth: decrypted DH answer shorter than its SHA-1 prefix")
	errAnswerHashMismatch    = errors.New("auth: DH answer SHA-1 prefix mismatch")
	errDHGenFail             = errors.New("auth: dh_gen_fail")
	errNewNonceHashMismatch  = errors.New("auth: new_nonce_hash mismatch")
)
