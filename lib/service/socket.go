// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/muxfs/lib/codec"
)

// ActionFunc handles one request. raw is the complete CBOR request,
// including the "action" field. A non-nil result is encoded into the
// response's data field.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// Response is the envelope for every reply.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// requestHeader is the part of every request the server reads before
// dispatching.
type requestHeader struct {
	Action string `cbor:"action"`
}

const (
	exchangeTimeout = 10 * time.Second
	maxRequestSize  = 64 * 1024
)

// SocketServer serves the protocol on a Unix socket. Register actions
// with Handle before calling Serve.
type SocketServer struct {
	socketPath string
	logger     *slog.Logger
	actions    map[string]ActionFunc

	ready     chan struct{}
	readyOnce sync.Once
}

// NewSocketServer creates a server that will listen on socketPath.
func NewSocketServer(socketPath string, logger *slog.Logger) *SocketServer {
	return &SocketServer{
		socketPath: socketPath,
		logger:     logger,
		actions:    make(map[string]ActionFunc),
		ready:      make(chan struct{}),
	}
}

// Handle registers a handler for action. Panics on duplicates.
func (s *SocketServer) Handle(action string, handler ActionFunc) {
	if _, exists := s.actions[action]; exists {
		panic(fmt.Sprintf("service.SocketServer: action %q registered twice", action))
	}
	s.actions[action] = handler
}

// Ready is closed once the socket is accepting connections.
func (s *SocketServer) Ready() <-chan struct{} {
	return s.ready
}

// Serve accepts connections until ctx is cancelled, then waits for
// in-flight exchanges to finish. Whatever file already occupies the
// socket path is replaced, and the socket is removed on return.
func (s *SocketServer) Serve(ctx context.Context) error {
	listener, err := s.listen()
	if err != nil {
		return err
	}
	defer os.Remove(s.socketPath)

	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()

	s.logger.Info("status socket listening", "path", s.socketPath)
	s.readyOnce.Do(func() { close(s.ready) })

	var exchanges sync.WaitGroup
	defer exchanges.Wait()
	for {
		conn, err := listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return nil
		}
		if err != nil {
			s.logger.Warn("status socket accept", "error", err)
			continue
		}
		exchanges.Go(func() {
			defer conn.Close()
			s.serveConnection(ctx, conn)
		})
	}
}

func (s *SocketServer) listen() (net.Listener, error) {
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	return listener, nil
}

// serveConnection performs the single exchange a connection carries.
func (s *SocketServer) serveConnection(ctx context.Context, conn net.Conn) {
	conn.SetDeadline(time.Now().Add(exchangeTimeout))

	var raw codec.RawMessage
	err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw)
	if errors.Is(err, io.EOF) {
		// The peer connected and left without asking anything.
		return
	}

	var response Response
	if err != nil {
		response = failure("invalid request: %v", err)
	} else {
		response = s.dispatch(ctx, raw)
	}

	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("writing status response", "error", err)
	}
}

func (s *SocketServer) dispatch(ctx context.Context, raw codec.RawMessage) Response {
	var header requestHeader
	if err := codec.Unmarshal(raw, &header); err != nil {
		return failure("invalid request: %v", err)
	}
	if header.Action == "" {
		return failure("missing required field: action")
	}
	handler, ok := s.actions[header.Action]
	if !ok {
		return failure("unknown action %q", header.Action)
	}

	result, err := handler(ctx, raw)
	if err != nil {
		s.logger.Debug("status action failed", "action", header.Action, "error", err)
		return Response{Error: err.Error()}
	}
	if result == nil {
		return Response{OK: true}
	}
	data, err := codec.Marshal(result)
	if err != nil {
		return failure("encoding %s result: %v", header.Action, err)
	}
	return Response{OK: true, Data: data}
}

func failure(format string, args ...any) Response {
	return Response{Error: fmt.Sprintf(format, args...)}
}
