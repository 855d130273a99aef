package service

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/postalsys/mtproto-session/internal/mtproto/session"
	"github.com/postalsys/mtproto-session/internal/mtproto/tl"
)

func fixedClock(t int64) func() int64 {
	return func() int64 { return t }
}

func testAuthKey() session.AuthKey {
	var k session.AuthKey
	for i := range k {
		k[i] = byte(i)
	}
	return k
}

func newTestSession(t *testing.T) *session.EncryptedSession {
	t.Helper()
	return session.New(testAuthKey(), 42, 0, fixedClock(1_700_000_000_000_000_000), session.WithSessionID(0x0102030405060708))
}

func TestDispatchRPCResult(t *testing.T) {
	h := New(newTestSession(t))

	inner := []byte("some TL-encoded result")
	body := tl.NewWriter().Uint32(tl.CRCRPCResult).Int64(777).Raw(inner).Build()

	deliveries, err := h.Dispatch(1, 0, body)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(deliveries) != 1 {
		t.Fatalf("got %d deliveries, want 1", len(deliveries))
	}
	d := deliveries[0]
	if d.Kind != KindRPCResult {
		t.Fatalf("Kind = %v, want KindRPCResult", d.Kind)
	}
	if d.RPCResult.ReqMsgID != 777 {
		t.Fatalf("ReqMsgID = %d, want 777", d.RPCResult.ReqMsgID)
	}
	if !bytes.Equal(d.RPCResult.Body, inner) {
		t.Fatalf("Body = %q, want %q", d.RPCResult.Body, inner)
	}
}

func TestDispatchRPCResultGzipWrapped(t *testing.T) {
	h := New(newTestSession(t))

	inner := []byte("a larger result that arrived compressed")
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(inner); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	gzipPacked := tl.NewWriter().Uint32(tl.CRCGzipPacked).Bytes(buf.Bytes()).Build()

	body := tl.NewWriter().Uint32(tl.CRCRPCResult).Int64(123).Raw(gzipPacked).Build()

	deliveries, err := h.Dispatch(1, 0, body)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(deliveries) != 1 || deliveries[0].Kind != KindRPCResult {
		t.Fatalf("unexpected deliveries: %+v", deliveries)
	}
	if !bytes.Equal(deliveries[0].RPCResult.Body, inner) {
		t.Fatalf("Body = %q, want %q", deliveries[0].RPCResult.Body, inner)
	}
}

func TestDispatchGzipPackedTopLevel(t *testing.T) {
	h := New(newTestSession(t))

	inner := tl.NewWriter().Uint32(tl.CRCPong).Int64(99).Int64(55).Build()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(inner); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	body := tl.NewWriter().Uint32(tl.CRCGzipPacked).Bytes(buf.Bytes()).Build()

	deliveries, err := h.Dispatch(1, 0, body)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(deliveries) != 1 || deliveries[0].Kind != KindPong {
		t.Fatalf("unexpected deliveries: %+v", deliveries)
	}
	if deliveries[0].Pong.PingID != 55 {
		t.Fatalf("PingID = %d, want 55", deliveries[0].Pong.PingID)
	}
}

func TestDispatchContainerRecurses(t *testing.T) {
	h := New(newTestSession(t))

	pongBody := tl.NewWriter().Uint32(tl.CRCPong).Int64(1).Int64(2).Build()
	ackBody := tl.NewWriter().Uint32(tl.CRCMsgsAck).VectorLong([]int64{10, 20}).Build()

	container := tl.NewWriter().Uint32(tl.CRCMsgContainer).Int32(2)
	container.Int64(100).Int32(0).Int32(int32(len(pongBody))).Raw(pongBody)
	container.Int64(101).Int32(0).Int32(int32(len(ackBody))).Raw(ackBody)

	deliveries, err := h.Dispatch(1, 0, container.Build())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(deliveries) != 2 {
		t.Fatalf("got %d deliveries, want 2", len(deliveries))
	}
	if deliveries[0].Kind != KindPong || deliveries[0].MsgID != 100 {
		t.Fatalf("deliveries[0] = %+v", deliveries[0])
	}
	if deliveries[1].Kind != KindMsgsAck || deliveries[1].MsgID != 101 {
		t.Fatalf("deliveries[1] = %+v", deliveries[1])
	}
	if len(deliveries[1].MsgsAck.MsgIDs) != 2 || deliveries[1].MsgsAck.MsgIDs[0] != 10 {
		t.Fatalf("MsgIDs = %v", deliveries[1].MsgsAck.MsgIDs)
	}
}

func TestDispatchRejectsNestedContainer(t *testing.T) {
	h := New(newTestSession(t))

	inner := tl.NewWriter().Uint32(tl.CRCMsgContainer).Int32(0).Build()
	outer := tl.NewWriter().Uint32(tl.CRCMsgContainer).Int32(1)
	outer.Int64(1).Int32(0).Int32(int32(len(inner))).Raw(inner)

	_, err := h.Dispatch(1, 0, outer.Build())
	if err == nil {
		t.Fatal("expected error for nested container")
	}
}

func TestDispatchBadServerSaltAppliesSalt(t *testing.T) {
	sess := newTestSession(t)
	h := New(sess)

	body := tl.NewWriter().Uint32(tl.CRCBadServerSalt).Int64(5).Int32(0).Int32(48).Int64(999).Build()

	deliveries, err := h.Dispatch(1, 0, body)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if sess.Salt() != 999 {
		t.Fatalf("Salt() = %d, want 999", sess.Salt())
	}
	d := deliveries[0]
	if d.Kind != KindBadServerSalt || d.BadServerSalt.NewSalt != 999 || d.BadServerSalt.BadMsgID != 5 {
		t.Fatalf("unexpected delivery: %+v", d)
	}
}

func TestDispatchBadMsgNotificationTimeDrift(t *testing.T) {
	sess := newTestSession(t)
	h := New(sess)

	serverMsgID := (uint64(1_700_000_100) << 32) | 1
	body := tl.NewWriter().Uint32(tl.CRCBadMsgNotification).Int64(7).Int32(0).Int32(16).Build()

	deliveries, err := h.Dispatch(serverMsgID, 0, body)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	d := deliveries[0]
	if d.Kind != KindBadMsgNotification {
		t.Fatalf("Kind = %v", d.Kind)
	}
	if d.BadMsgNotification.Action != ActionNone {
		t.Fatalf("Action = %v, want ActionNone", d.BadMsgNotification.Action)
	}
	if sess.TimeOffset() == 0 {
		t.Fatal("expected TimeOffset to be corrected")
	}
}

func TestDispatchBadMsgNotificationSeqDesync(t *testing.T) {
	h := New(newTestSession(t))

	body := tl.NewWriter().Uint32(tl.CRCBadMsgNotification).Int64(7).Int32(0).Int32(32).Build()

	deliveries, err := h.Dispatch(1, 0, body)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if deliveries[0].BadMsgNotification.Action != ActionReopenSession {
		t.Fatalf("Action = %v, want ActionReopenSession", deliveries[0].BadMsgNotification.Action)
	}
}

func TestDispatchBadMsgNotificationSurfacesOtherCodes(t *testing.T) {
	h := New(newTestSession(t))

	body := tl.NewWriter().Uint32(tl.CRCBadMsgNotification).Int64(7).Int32(0).Int32(64).Build()

	deliveries, err := h.Dispatch(1, 0, body)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if deliveries[0].BadMsgNotification.Action != ActionSurface {
		t.Fatalf("Action = %v, want ActionSurface", deliveries[0].BadMsgNotification.Action)
	}
}

func TestDispatchNewSessionCreatedAppliesSalt(t *testing.T) {
	sess := newTestSession(t)
	h := New(sess)

	body := tl.NewWriter().Uint32(tl.CRCNewSessionCreated).Int64(1000).Int64(0xabcd).Int64(4242).Build()

	deliveries, err := h.Dispatch(1, 0, body)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if sess.Salt() != 4242 {
		t.Fatalf("Salt() = %d, want 4242", sess.Salt())
	}
	d := deliveries[0].NewSessionCreated
	if d.FirstMsgID != 1000 || d.ServerSalt != 4242 {
		t.Fatalf("unexpected NewSessionCreated: %+v", d)
	}
}

func TestDispatchFutureSalts(t *testing.T) {
	h := New(newTestSession(t))

	w := tl.NewWriter().Uint32(tl.CRCFutureSalts).Int64(55).Int32(1_700_000_000)
	w.Uint32(tl.CRCVector).Int32(2)
	w.Uint32(tl.CRCFutureSalt).Int32(1_700_000_000).Int32(1_700_000_300).Int64(11)
	w.Uint32(tl.CRCFutureSalt).Int32(1_700_000_300).Int32(1_700_000_600).Int64(22)

	deliveries, err := h.Dispatch(1, 0, w.Build())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	d := deliveries[0].FutureSalts
	if d.ReqMsgID != 55 {
		t.Fatalf("ReqMsgID = %d, want 55", d.ReqMsgID)
	}
	if len(d.Salts) != 2 || d.Salts[0].Salt != 11 || d.Salts[1].Salt != 22 {
		t.Fatalf("unexpected Salts: %+v", d.Salts)
	}
}

func TestDispatchUpdatesPassthrough(t *testing.T) {
	h := New(newTestSession(t))

	const crcUpdateShortMessage uint32 = 0x725b04c3
	body := tl.NewWriter().Uint32(crcUpdateShortMessage).Build()

	deliveries, err := h.Dispatch(1, 0, body)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if deliveries[0].Kind != KindUpdates {
		t.Fatalf("Kind = %v, want KindUpdates", deliveries[0].Kind)
	}
	if !bytes.Equal(deliveries[0].Updates, body) {
		t.Fatal("Updates body mismatch")
	}
}

func TestDispatchUnknownConstructorSurfaced(t *testing.T) {
	h := New(newTestSession(t))

	body := tl.NewWriter().Uint32(0xdeadbeef).Int32(1).Build()

	deliveries, err := h.Dispatch(1, 0, body)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	d := deliveries[0]
	if d.Kind != KindUnknown {
		t.Fatalf("Kind = %v, want KindUnknown", d.Kind)
	}
	if d.Unknown.Constructor != 0xdeadbeef {
		t.Fatalf("Constructor = %#x", d.Unknown.Constructor)
	}
	if !bytes.Equal(d.Unknown.Bytes, body) {
		t.Fatal("Unknown.Bytes mismatch")
	}
}
