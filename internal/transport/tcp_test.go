package transport

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestTCPCarrierRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	serverDone := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			serverDone <- err
			return
		}
		defer conn.Close()
		server := &tcpCarrier{conn: conn}
		frame, err := server.Recv(context.Background())
		if err != nil {
			serverDone <- err
			return
		}
		serverDone <- server.Send(context.Background(), frame)
	}()

	dialer := NewTCPDialer()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	carrier, err := dialer.Dial(ctx, ln.Addr().String(), DefaultDialOptions())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer carrier.Close()

	if carrier.Kind() != KindTCP {
		t.Errorf("Kind() = %v, want %v", carrier.Kind(), KindTCP)
	}

	want := []byte("hello mtproto frame")
	if err := carrier.Send(ctx, want); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if err := <-serverDone; err != nil {
		t.Fatalf("server: %v", err)
	}

	got, err := carrier.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv() error = %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("Recv() = %q, want %q", got, want)
	}
}

func TestTCPCarrierRejectsOversizedFrame(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var header [4]byte
		header[0] = 0xff
		header[1] = 0xff
		header[2] = 0xff
		header[3] = 0xff
		conn.Write(header[:])
	}()

	dialer := NewTCPDialer()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	carrier, err := dialer.Dial(ctx, ln.Addr().String(), DefaultDialOptions())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer carrier.Close()

	if _, err := carrier.Recv(ctx); err == nil {
		t.Error("Recv() expected an error for an oversized frame length")
	}
}
