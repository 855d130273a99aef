// Package service implements ServiceMessageHandler: classification of a
// decrypted MTProto body into the effects described in §4.4.3 — rpc
// results, container/gzip unwrapping, salt and time corrections, session
// resets, acks, pings, and the future_salts extension. It mutates the
// EncryptedSession it is given (salt, time_offset) but leaves delivery
// of rpc_result bodies and pending-request bookkeeping to the host, per
// the core's "host owns the pending-request table" design.
package service

import "errors"

// ErrNestedContainer is returned when a msg_container is found inside
// another msg_container. The wire protocol never nests containers; a
// second level is treated as a malformed/hostile frame.
var ErrNestedContainer = errors.New("service: msg_container nested inside another msg_container")

// ErrMalformedBody is returned when a recognized constructor's fixed
// fields cannot be parsed from the body.
var ErrMalformedBody = errors.New("service: malformed service message body")
