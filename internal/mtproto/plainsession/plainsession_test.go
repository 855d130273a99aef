package plainsession

import "testing"

func TestPackUnpackRoundTrip(t *testing.T) {
	var tick int64
	s := New(func() int64 {
		tick += 1_000_000
		return tick
	})

	body := []byte("req_pq_multi payload")
	wire := s.Pack(body)

	msg, err := Unpack(wire)
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if string(msg.Body) != string(body) {
		t.Fatalf("body mismatch: got %q, want %q", msg.Body, body)
	}
	if msg.MsgID == 0 {
		t.Fatalf("expected nonzero msg_id")
	}
}

func TestPackProducesMonotonicMsgIDs(t *testing.T) {
	var tick int64
	s := New(func() int64 {
		tick += 1
		return tick
	})

	var last uint64
	for i := 0; i < 100; i++ {
		wire := s.Pack([]byte("x"))
		msg, err := Unpack(wire)
		if err != nil {
			t.Fatalf("Unpack failed: %v", err)
		}
		if msg.MsgID <= last {
			t.Fatalf("msg_id did not increase: %d <= %d", msg.MsgID, last)
		}
		last = msg.MsgID
	}
}

func TestUnpackRejectsNonZeroAuthKeyID(t *testing.T) {
	wire := make([]byte, HeaderSize)
	wire[0] = 1 // nonzero auth_key_id low byte

	if _, err := Unpack(wire); err != ErrNonZeroAuthKeyID {
		t.Fatalf("got %v, want ErrNonZeroAuthKeyID", err)
	}
}

func TestUnpackRejectsTruncatedHeader(t *testing.T) {
	if _, err := Unpack(make([]byte, HeaderSize-1)); err != ErrTruncated {
		t.Fatalf("got %v, want ErrTruncated", err)
	}
}

func TestUnpackRejectsTruncatedBody(t *testing.T) {
	wire := make([]byte, HeaderSize)
	wire[16] = 10 // declares a 10-byte body with none present

	if _, err := Unpack(wire); err == nil {
		t.Fatalf("expected error for truncated body")
	}
}
