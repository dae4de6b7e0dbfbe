package main

import (
	"errors"
	"os"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// UnixPty is a pseudo terminal whose slave side is handed to the program
// under test.
type UnixPty struct {
	master, slave *os.File
	name          string
	closed        bool
}

// NewPty opens a new pseudo terminal.
func NewPty() (*UnixPty, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, err
	}
	return &UnixPty{
		master: master,
		slave:  slave,
		name:   slave.Name(),
	}, nil
}

// Name returns the path clients open, e.g. /dev/pts/3.
func (p *UnixPty) Name() string {
	return p.name
}

func (p *UnixPty) Read(b []byte) (int, error) {
	return p.master.Read(b)
}

func (p *UnixPty) Write(b []byte) (int, error) {
	return p.master.Write(b)
}

// ReleaseSlave closes our own handle on the slave side, so that a client
// closing it is seen as a hang up on the master.
func (p *UnixPty) ReleaseSlave() error {
	if p.slave == nil {
		return nil
	}
	err := p.slave.Close()
	p.slave = nil
	return err
}

// IsSlaveClosed reports whether no process has the slave side open.
func (p *UnixPty) IsSlaveClosed() (bool, error) {
	fds := []unix.PollFd{{
		Fd:     int32(p.master.Fd()),
		Events: unix.POLLOUT,
	}}

	if _, err := unix.Poll(fds, 0); err != nil {
		return false, err
	}
	return fds[0].Revents&unix.POLLHUP != 0, nil
}

func (p *UnixPty) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return errors.Join(p.master.Close(), p.ReleaseSlave())
}
