package transport

import "testing"

func TestDefaultDialOptions(t *testing.T) {
	opts := DefaultDialOptions()
	if opts.Timeout <= 0 {
		t.Errorf("Timeout = %v, want positive", opts.Timeout)
	}
}

func TestKindValues(t *testing.T) {
	cases := map[Kind]string{
		KindTCP:       "tcp",
		KindWebSocket: "ws",
		KindQUIC:      "quic",
		KindHTTP2:     "h2",
	}
	for kind, want := range cases {
		if string(kind) != want {
			t.Errorf("Kind %v = %s, want %s", kind, string(kind), want)
		}
	}
}
