package main

import (
	"bufio"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"i4.energy/across/bluetooth/sim"
)

func TestNewPty(t *testing.T) {
	tty, err := NewPty()
	if err != nil {
		t.Fatalf("NewPty() error = %v, want nil", err)
	}
	defer tty.Close()

	if tty.Name() == "" {
		t.Error("Name() returned empty string")
	}
}

func TestUnixPty_Close(t *testing.T) {
	tty, err := NewPty()
	if err != nil {
		t.Fatalf("NewPty() error = %v", err)
	}

	if err := tty.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !tty.closed {
		t.Error("PTY should be marked as closed")
	}
	if err := tty.Close(); err != nil {
		t.Errorf("Second Close() error = %v", err)
	}
}

func TestUnixPty_IsSlaveClosed(t *testing.T) {
	tty, err := NewPty()
	if err != nil {
		t.Fatalf("NewPty() error = %v", err)
	}
	defer tty.Close()

	closed, err := tty.IsSlaveClosed()
	if err != nil {
		t.Fatalf("IsSlaveClosed() error = %v", err)
	}
	if closed {
		t.Error("slave should be open while we hold it")
	}

	if err := tty.ReleaseSlave(); err != nil {
		t.Fatalf("ReleaseSlave() error = %v", err)
	}
	closed, err = tty.IsSlaveClosed()
	if err != nil {
		t.Fatalf("IsSlaveClosed() error = %v", err)
	}
	if !closed {
		t.Error("slave should be closed after release")
	}
}

func TestServeOverPty(t *testing.T) {
	tty, err := NewPty()
	if err != nil {
		t.Fatalf("NewPty() error = %v", err)
	}
	defer tty.Close()

	if err := makeRaw(tty.slave); err != nil {
		t.Fatalf("makeRaw() error = %v", err)
	}
	if err := tty.ReleaseSlave(); err != nil {
		t.Fatalf("ReleaseSlave() error = %v", err)
	}

	client, err := os.OpenFile(tty.Name(), os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		t.Fatalf("open %s: %v", tty.Name(), err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := waitForClient(ctx, tty); err != nil {
		t.Fatalf("waitForClient() error = %v", err)
	}

	device := sim.New()
	served := make(chan error, 1)
	go func() {
		served <- device.Serve(ctx, tty)
	}()

	if _, err := client.Write([]byte("AT+NAME?\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := bufio.NewReader(client)
	for _, want := range []string{"+NAME:H-C-2010-06-01\r\n", "OK\r\n"} {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if line != want {
			t.Errorf("got %q, want %q", line, want)
		}
	}

	client.Close()
	select {
	case err := <-served:
		if !errors.Is(err, unix.EIO) {
			t.Errorf("expected EIO after the client hung up, got %v", err)
		}
	case <-ctx.Done():
		t.Fatal("Serve did not return after the client hung up")
	}
}
