// Copyright (c) 2025 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package seqwire_test

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/seqwire"
	"go.uber.org/seqwire/api/wire"
	"go.uber.org/seqwire/api/wire/wiretest"
	"go.uber.org/seqwire/codec/framed"
	ibackoff "go.uber.org/seqwire/internal/backoff"
	"go.uber.org/seqwire/internal/testtime"
	"go.uber.org/seqwire/seqwireerrors"
	"go.uber.org/zap/zaptest"
)

// fakeServer accepts raw connections and hands each to serve on its
// own goroutine. serve owns the connection and must return once it
// errors; Cleanup waits for every serve to finish.
type fakeServer struct {
	l  net.Listener
	wg sync.WaitGroup
}

func startFakeServer(t *testing.T, serve func(net.Conn)) *fakeServer {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeServer{l: l}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer conn.Close()
				serve(conn)
			}()
		}
	}()
	t.Cleanup(func() {
		_ = l.Close()
		s.wg.Wait()
	})
	return s
}

func (s *fakeServer) addr() string {
	return s.l.Addr().String()
}

// echoServe answers every request with its own body, in order, and
// drops fire-and-forget requests. respond lets tests distort how the
// response bytes hit the wire.
func echoServe(respond func(conn net.Conn, frame []byte) error) func(net.Conn) {
	return func(conn net.Conn) {
		codec := framed.New()
		var buf []byte
		chunk := make([]byte, 4096)
		for {
			for {
				req, n, err := codec.DecodeRequest(buf)
				if err != nil {
					return
				}
				if req == nil {
					break
				}
				buf = buf[n:]
				if req.NoReply {
					continue
				}
				frame, err := codec.EncodeResponse(req.Body)
				if err != nil {
					return
				}
				if err := respond(conn, frame); err != nil {
					return
				}
			}
			m, err := conn.Read(chunk)
			if err != nil {
				return
			}
			buf = append(buf, chunk[:m]...)
		}
	}
}

func writeWhole(conn net.Conn, frame []byte) error {
	_, err := conn.Write(frame)
	return err
}

// writeByteByByte trickles a frame onto the wire one byte per write so
// the client sees every possible partial-decode boundary.
func writeByteByByte(conn net.Conn, frame []byte) error {
	for i := range frame {
		if _, err := conn.Write(frame[i : i+1]); err != nil {
			return err
		}
	}
	return nil
}

func dialTestClient(t *testing.T, addr string, opts ...seqwire.ClientOption) *seqwire.Client {
	opts = append([]seqwire.ClientOption{
		seqwire.Logger(zaptest.NewLogger(t)),
	}, opts...)
	return seqwire.Dial(addr, framed.New(), opts...)
}

func TestClientEchoRoundTrip(t *testing.T) {
	srv := startFakeServer(t, echoServe(writeWhole))
	c := dialTestClient(t, srv.addr())
	defer func() { assert.NoError(t, c.Close()) }()

	var got string
	c.Send([]byte("ping"),
		func(res *wire.Response) { got = string(res.Body) },
		func(err error) { t.Errorf("unexpected error: %v", err) },
	)
	require.NoError(t, c.Run())
	assert.Equal(t, "ping", got)
}

func TestClientCorrelationAcrossPartialReads(t *testing.T) {
	srv := startFakeServer(t, echoServe(writeByteByByte))
	c := dialTestClient(t, srv.addr())
	defer func() { assert.NoError(t, c.Close()) }()

	const n = 8
	got := make([]string, 0, n)
	for i := 0; i < n; i++ {
		body := fmt.Sprintf("req-%d", i)
		c.Send([]byte(body),
			func(res *wire.Response) { got = append(got, string(res.Body)) },
			func(err error) { t.Errorf("unexpected error: %v", err) },
		)
	}
	require.NoError(t, c.Run())

	require.Len(t, got, n)
	for i, g := range got {
		assert.Equal(t, fmt.Sprintf("req-%d", i), g)
	}
}

func TestClientRunDrainsRepeatedly(t *testing.T) {
	srv := startFakeServer(t, echoServe(writeWhole))
	c := dialTestClient(t, srv.addr())
	defer func() { assert.NoError(t, c.Close()) }()

	for round := 0; round < 3; round++ {
		var got string
		c.Send([]byte(fmt.Sprintf("round-%d", round)),
			func(res *wire.Response) { got = string(res.Body) },
			func(err error) { t.Errorf("unexpected error: %v", err) },
		)
		require.NoError(t, c.Run())
		assert.Equal(t, fmt.Sprintf("round-%d", round), got)
	}
}

func TestClientNoReplyInterleaved(t *testing.T) {
	srv := startFakeServer(t, echoServe(writeWhole))
	c := dialTestClient(t, srv.addr())
	defer func() { assert.NoError(t, c.Close()) }()

	c.SendNoReply([]byte("fire-and-forget"), func(err error) {
		t.Errorf("unexpected error: %v", err)
	})
	var got string
	c.Send([]byte("after"),
		func(res *wire.Response) { got = string(res.Body) },
		func(err error) { t.Errorf("unexpected error: %v", err) },
	)
	require.NoError(t, c.Run())
	assert.Equal(t, "after", got)
}

func TestClientErrorResponse(t *testing.T) {
	srv := startFakeServer(t, func(conn net.Conn) {
		codec := framed.New()
		var buf []byte
		chunk := make([]byte, 4096)
		for {
			req, n, err := codec.DecodeRequest(buf)
			if err != nil {
				return
			}
			if req != nil {
				buf = buf[n:]
				frame, err := codec.EncodeError(seqwireerrors.BackendErrorf("nope"))
				if err != nil {
					return
				}
				if _, err := conn.Write(frame); err != nil {
					return
				}
				continue
			}
			m, err := conn.Read(chunk)
			if err != nil {
				return
			}
			buf = append(buf, chunk[:m]...)
		}
	})
	c := dialTestClient(t, srv.addr())
	defer func() { assert.NoError(t, c.Close()) }()

	var res *wire.Response
	c.Send([]byte("anything"),
		func(r *wire.Response) { res = r },
		func(err error) { t.Errorf("unexpected error: %v", err) },
	)
	require.NoError(t, c.Run())
	require.NotNil(t, res)
	require.NotNil(t, res.Err)
	assert.Equal(t, seqwireerrors.CodeBackend, res.Err.Code())
	assert.Equal(t, "nope", res.Err.Message())
}

func TestClientQueuesBeforeConnect(t *testing.T) {
	// Reserve an address, close it, and dial it before anything
	// listens there again: sends queue while connect retries.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	strategy, err := ibackoff.NewExponential(
		ibackoff.BaseJump(testtime.Scale(5*time.Millisecond)),
		ibackoff.MaxBackoff(testtime.Scale(20*time.Millisecond)),
	)
	require.NoError(t, err)

	c := dialTestClient(t, addr,
		seqwire.ConnectAttempts(200),
		seqwire.ConnectBackoff(strategy),
	)
	defer func() { assert.NoError(t, c.Close()) }()

	var got string
	c.Send([]byte("early"),
		func(res *wire.Response) { got = string(res.Body) },
		func(err error) { t.Errorf("unexpected error: %v", err) },
	)

	testtime.Sleep(20 * time.Millisecond)
	l2, err := net.Listen("tcp", addr)
	require.NoError(t, err)
	srv := &fakeServer{l: l2}
	srv.wg.Add(1)
	go func() {
		defer srv.wg.Done()
		conn, err := l2.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		echoServe(writeWhole)(conn)
	}()
	t.Cleanup(func() {
		_ = l2.Close()
		srv.wg.Wait()
	})

	require.NoError(t, c.Run())
	assert.Equal(t, "early", got)
}

func TestClientConnectFailure(t *testing.T) {
	// Nothing listens on the reserved address, so every attempt is
	// refused and the pending request fails.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	strategy, err := ibackoff.NewExponential(
		ibackoff.BaseJump(time.Millisecond),
		ibackoff.MaxBackoff(5*time.Millisecond),
	)
	require.NoError(t, err)

	var connErr error
	c := dialTestClient(t, addr,
		seqwire.ConnectAttempts(3),
		seqwire.ConnectBackoff(strategy),
		seqwire.OnConnectionError(func(err error) { connErr = err }),
	)
	defer func() { assert.NoError(t, c.Close()) }()

	var sendErr error
	c.Send([]byte("doomed"),
		func(*wire.Response) { t.Error("unexpected response") },
		func(err error) { sendErr = err },
	)
	err = c.Run()
	require.Error(t, err)
	require.Error(t, sendErr)
	// OnConnectionError runs on the reactor; Run has drained it.
	require.Error(t, connErr)
}

func TestClientPeerCloseFailsPending(t *testing.T) {
	srv := startFakeServer(t, func(conn net.Conn) {
		// Swallow one request, then hang up without answering.
		chunk := make([]byte, 4096)
		if _, err := conn.Read(chunk); err != nil {
			return
		}
	})
	c := dialTestClient(t, srv.addr())
	defer func() { assert.NoError(t, c.Close()) }()

	var sendErr error
	c.Send([]byte("unanswered"),
		func(*wire.Response) { t.Error("unexpected response") },
		func(err error) { sendErr = err },
	)
	err := c.Run()
	require.Error(t, err)
	require.Error(t, sendErr)
	assert.True(t, seqwireerrors.IsClosed(sendErr), "got %v", sendErr)
}

func TestClientDesyncIsFatal(t *testing.T) {
	srv := startFakeServer(t, func(conn net.Conn) {
		// Answer the one request twice. The second response has no
		// requester and must kill the connection.
		chunk := make([]byte, 4096)
		if _, err := conn.Read(chunk); err != nil {
			return
		}
		codec := framed.New()
		frame, err := codec.EncodeResponse([]byte("once"))
		if err != nil {
			return
		}
		if _, err := conn.Write(frame); err != nil {
			return
		}
		if _, err := conn.Write(frame); err != nil {
			return
		}
		// Hold the connection open until the client closes it.
		_, _ = conn.Read(chunk)
	})

	r := startReactor(t)
	errCh := make(chan error, 1)
	c := dialTestClient(t, srv.addr(),
		seqwire.Reactor(r),
		seqwire.OnConnectionError(func(err error) { errCh <- err }),
	)
	defer func() { assert.NoError(t, c.Close()) }()

	ctx, cancel := context.WithTimeout(context.Background(), testtime.Scale(5*time.Second))
	defer cancel()
	body, err := c.Call(ctx, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "once", string(body))

	select {
	case err := <-errCh:
		assert.True(t, seqwireerrors.IsDesync(err), "got %v", err)
	case <-ctx.Done():
		t.Fatal("timed out waiting for the desync error")
	}

	// The client is unusable afterwards.
	_, err = c.Call(ctx, []byte("again"))
	require.Error(t, err)
	assert.True(t, seqwireerrors.IsClosed(err), "got %v", err)
}

func TestClientAttachedRunRejected(t *testing.T) {
	r := startReactor(t)
	c := dialTestClient(t, "127.0.0.1:1", seqwire.Reactor(r))
	defer func() { assert.NoError(t, c.Close()) }()

	assert.Equal(t, seqwire.ErrNotOwner, c.Run())
}

func TestClientEncodeErrorSurfaces(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	codec := wiretest.NewMockCodec(ctrl)
	codec.EXPECT().
		EncodeRequest([]byte("oversized"), false).
		Return(nil, seqwireerrors.DecodeErrorf("payload too large"))

	srv := startFakeServer(t, echoServe(writeWhole))
	c := seqwire.Dial(srv.addr(), codec, seqwire.Logger(zaptest.NewLogger(t)))
	defer func() { assert.NoError(t, c.Close()) }()

	var sendErr error
	c.Send([]byte("oversized"),
		func(*wire.Response) { t.Error("unexpected response") },
		func(err error) { sendErr = err },
	)
	require.NoError(t, c.Run())
	require.Error(t, sendErr)
	assert.True(t, seqwireerrors.IsDecode(sendErr), "got %v", sendErr)
}

func TestClientSendAfterClose(t *testing.T) {
	srv := startFakeServer(t, echoServe(writeWhole))
	c := dialTestClient(t, srv.addr())
	require.NoError(t, c.Close())

	var sendErr error
	c.Send([]byte("late"),
		func(*wire.Response) { t.Error("unexpected response") },
		func(err error) { sendErr = err },
	)
	require.Error(t, sendErr)
	assert.True(t, seqwireerrors.IsClosed(sendErr), "got %v", sendErr)
}

func TestClientNoReplyBeforeFailedConnectGetsError(t *testing.T) {
	// Nothing listens on the reserved address. A fire-and-forget
	// request queued while connecting must stay in flight until the
	// connect fails, and then surface the failure to its callback.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	strategy, err := ibackoff.NewExponential(
		ibackoff.BaseJump(time.Millisecond),
		ibackoff.MaxBackoff(5*time.Millisecond),
	)
	require.NoError(t, err)

	c := dialTestClient(t, addr,
		seqwire.ConnectAttempts(3),
		seqwire.ConnectBackoff(strategy),
	)
	defer func() { assert.NoError(t, c.Close()) }()

	var sendErr error
	c.SendNoReply([]byte("doomed"), func(err error) { sendErr = err })

	// Run must not return before the queued frame is settled.
	err = c.Run()
	require.Error(t, err)
	require.Error(t, sendErr)
}
