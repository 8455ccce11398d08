// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mux

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// pipeChannel is one kernel pipe. Both ends are non-blocking at the
// descriptor level and registered with the runtime poller, so blocked
// reads and writes park the goroutine rather than an OS thread, and
// both ends support deadlines.
type pipeChannel struct {
	readEnd  *pipeEnd
	writeEnd *pipeEnd
}

func openPipe() (*pipeChannel, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("pipe2: %w", err)
	}
	return &pipeChannel{
		readEnd:  &pipeEnd{file: os.NewFile(uintptr(fds[0]), "mux-read")},
		writeEnd: &pipeEnd{file: os.NewFile(uintptr(fds[1]), "mux-write")},
	}, nil
}

// resize sets the pipe capacity in bytes. The kernel rounds up to a
// page multiple and refuses sizes above /proc/sys/fs/pipe-max-size for
// unprivileged callers.
func (c *pipeChannel) resize(size int) error {
	raw, err := c.writeEnd.file.SyscallConn()
	if err != nil {
		return err
	}
	var fcntlErr error
	if err := raw.Control(func(fd uintptr) {
		_, fcntlErr = unix.FcntlInt(fd, unix.F_SETPIPE_SZ, size)
	}); err != nil {
		return err
	}
	if fcntlErr != nil {
		return fmt.Errorf("F_SETPIPE_SZ %d: %w", size, fcntlErr)
	}
	return nil
}

func (c *pipeChannel) close() {
	c.writeEnd.close()
	c.readEnd.close()
}

// expired is a deadline in the past. Setting it wakes every goroutine
// blocked on the file.
var expired = time.Unix(1, 0)

// pipeEnd is one end of a pipe shared by every operation on its slot.
// The file's deadline is the only way to wake a blocked operation, and
// it wakes all of them, so interruptions are counted: the deadline
// stays expired while any interrupted operation is still unwinding and
// is cleared when the last one finishes.
type pipeEnd struct {
	file *os.File

	mu           sync.Mutex
	interrupters int
	// quiet is closed when interrupters drops back to zero. It is nil
	// while no interruption is in progress.
	quiet chan struct{}
}

func (e *pipeEnd) close() error {
	return e.file.Close()
}

// interrupt expires the deadline on behalf of one cancelled operation.
// Every interrupt is paired with one resume.
func (e *pipeEnd) interrupt() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.interrupters == 0 {
		e.quiet = make(chan struct{})
	}
	e.interrupters++
	e.file.SetDeadline(expired)
}

func (e *pipeEnd) resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.interrupters--
	if e.interrupters == 0 {
		e.file.SetDeadline(time.Time{})
		close(e.quiet)
		e.quiet = nil
	}
}

var alwaysQuiet = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// settled returns a channel that is closed once no interruption is in
// progress on the end.
func (e *pipeEnd) settled() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.quiet == nil {
		return alwaysQuiet
	}
	return e.quiet
}

// interruptible runs attempt until it completes or ctx is cancelled.
// Cancellation expires the deadline on end, which unblocks attempt. An
// attempt that times out while ctx is still live was woken by another
// operation's cancellation; it waits for that interruption to settle
// and runs again, so attempt must be resumable.
func interruptible(ctx context.Context, end *pipeEnd, attempt func() error) error {
	if ctx.Err() != nil {
		return ErrInterrupted
	}
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		end.interrupt()
		close(fired)
	})
	defer func() {
		if !stop() {
			<-fired
			end.resume()
		}
	}()

	for {
		err := attempt()
		if !errors.Is(err, os.ErrDeadlineExceeded) {
			return interruption(ctx, err)
		}
		if ctx.Err() != nil {
			return ErrInterrupted
		}
		select {
		case <-end.settled():
		case <-ctx.Done():
			return ErrInterrupted
		}
	}
}

// readOnce performs a single read of up to len(dest) bytes.
func readOnce(ctx context.Context, end *pipeEnd, dest []byte) (int, error) {
	var count int
	err := interruptible(ctx, end, func() error {
		var readErr error
		count, readErr = end.file.Read(dest)
		return readErr
	})
	return count, err
}

// writeFull writes all of data, retrying short writes until every
// byte is accepted or the pipe reports an error. A write woken by
// another caller's interruption resumes where it stopped.
func writeFull(ctx context.Context, end *pipeEnd, data []byte) error {
	written := 0
	return interruptible(ctx, end, func() error {
		for written < len(data) {
			count, err := end.file.Write(data[written:])
			written += count
			if err != nil {
				return err
			}
		}
		return nil
	})
}
