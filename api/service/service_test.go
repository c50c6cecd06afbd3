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

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/seqwire/api/wire"
)

type stubToken struct {
	seq  uint64
	body []byte
	err  error
}

var _ Token = (*stubToken)(nil)

func (t *stubToken) Seq() uint64            { return t.seq }
func (t *stubToken) Resolve(body []byte)    { t.body = body }
func (t *stubToken) ResolveError(err error) { t.err = err }

type stubDeferrer struct {
	tok Token
}

func (d stubDeferrer) Defer() (Token, error) { return d.tok, nil }

func TestResultKinds(t *testing.T) {
	res := Reply([]byte("pong"))
	assert.Equal(t, KindReply, res.Kind())
	assert.Equal(t, []byte("pong"), res.Body())

	assert.Equal(t, KindNone, None().Kind())
	assert.Equal(t, KindDeferred, Deferred().Kind())
}

func TestHandlerFuncDefersThroughToken(t *testing.T) {
	h := HandlerFunc(func(d Deferrer, req *wire.Request) (Result, error) {
		tok, err := d.Defer()
		if err != nil {
			return Result{}, err
		}
		tok.Resolve(req.Body)
		return Deferred(), nil
	})

	tok := &stubToken{seq: 7}
	res, err := h.Handle(stubDeferrer{tok: tok}, &wire.Request{Seq: 7, Body: []byte("later")})
	require.NoError(t, err)
	assert.Equal(t, KindDeferred, res.Kind())
	assert.Equal(t, []byte("later"), tok.body)
}

func TestProviderFuncCarriesGlobal(t *testing.T) {
	p := ProviderFunc(func(global interface{}) Handler {
		prefix := global.(string)
		return HandlerFunc(func(_ Deferrer, req *wire.Request) (Result, error) {
			return Reply(append([]byte(prefix), req.Body...)), nil
		})
	})

	require.NoError(t, p.Init(nil, "x:"))
	defer p.Uninit()

	res, err := p.NewHandler("x:").Handle(nil, &wire.Request{Body: []byte("y")})
	require.NoError(t, err)
	assert.Equal(t, []byte("x:y"), res.Body())
}
