package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"weightcast/weights"
)

func TestFetchReceivesReferenceVectorFromServer(t *testing.T) {
	server, err := Listen(ServerConfig{Address: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = server.Serve(ctx)
	}()

	vector, err := Fetch(context.Background(), server.Addr().String())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	expected := weights.Vector{1, 2, 2, 4, 2, 4, 2, 0}
	if len(vector) != len(expected) {
		t.Fatalf("expected %d weights, got %d", len(expected), len(vector))
	}
	for i := range expected {
		if vector[i] != expected[i] {
			t.Fatalf("expected %v at index %d, got %v", expected[i], i, vector[i])
		}
	}
}

func TestFetchDrainsToEOFWithoutLineTerminator(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer func() {
		_ = listener.Close()
	}()

	// Write the payload in two chunks with no newline; only the close
	// marks end-of-message.
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		_, _ = conn.Write([]byte("1.0,2."))
		time.Sleep(30 * time.Millisecond)
		_, _ = conn.Write([]byte("5,3.0"))
		_ = conn.Close()
	}()

	vector, err := Fetch(context.Background(), listener.Addr().String())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(vector) != 3 || vector[0] != 1.0 || vector[1] != 2.5 || vector[2] != 3.0 {
		t.Fatalf("expected {1, 2.5, 3}, got %v", vector)
	}
}

func TestFetchConnectRefusedFailsWholeFetch(t *testing.T) {
	// Bind and immediately close to obtain a port nothing listens on.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	address := listener.Addr().String()
	_ = listener.Close()

	_, err = Fetch(context.Background(), address)
	if err == nil {
		t.Fatalf("expected connect failure")
	}
	if !errors.Is(err, ErrConnect) {
		t.Fatalf("expected ErrConnect, got %v", err)
	}
}

func TestFetchCancellationAbandonsPendingRead(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer func() {
		_ = listener.Close()
	}()

	// Accept and hold the connection open without writing.
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		time.Sleep(5 * time.Second)
		_ = conn.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := Fetch(ctx, listener.Addr().String())
		done <- err
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected cancellation error")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Fetch did not return after cancellation")
	}
}
