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

// Package seqwireconfig builds seqwire servers and clients from YAML
// configuration.
//
//	servers:
//	  frontend:
//	    addr: ":4040"
//	    readTimeout: 30s
//	    writeTimeout: 10s
//	    maxDeferredReplies: 1024
//	clients:
//	  backend:
//	    addr: "127.0.0.1:5050"
//	    connectTimeout: 5s
//	    connectAttempts: 4
//	    backoff:
//	      exponential:
//	        first: 10ms
//	        max: 30s
package seqwireconfig

import (
	"fmt"
	"io"
	"io/ioutil"
	"time"

	"github.com/uber-go/mapdecode"
	"go.uber.org/seqwire"
	"go.uber.org/seqwire/api/service"
	"go.uber.org/seqwire/api/wire"
	"gopkg.in/yaml.v2"
)

const _tagName = "config"

// Config is the decoded top-level configuration.
type Config struct {
	Servers map[string]ServerConfig `config:"servers"`
	Clients map[string]ClientConfig `config:"clients"`
}

// ServerConfig is the per-server configuration surface.
type ServerConfig struct {
	Addr               string        `config:"addr"`
	ReadTimeout        time.Duration `config:"readTimeout"`
	WriteTimeout       time.Duration `config:"writeTimeout"`
	MaxDeferredReplies int           `config:"maxDeferredReplies"`
}

// Options converts the configuration into server options.
func (c ServerConfig) Options() []seqwire.ServerOption {
	var opts []seqwire.ServerOption
	if c.ReadTimeout > 0 {
		opts = append(opts, seqwire.ReadTimeout(c.ReadTimeout))
	}
	if c.WriteTimeout > 0 {
		opts = append(opts, seqwire.WriteTimeout(c.WriteTimeout))
	}
	if c.MaxDeferredReplies > 0 {
		opts = append(opts, seqwire.MaxDeferredReplies(c.MaxDeferredReplies))
	}
	return opts
}

// ClientConfig is the per-client configuration surface.
type ClientConfig struct {
	Addr            string        `config:"addr"`
	ConnectTimeout  time.Duration `config:"connectTimeout"`
	ConnectAttempts uint          `config:"connectAttempts"`
	ReadTimeout     time.Duration `config:"readTimeout"`
	WriteTimeout    time.Duration `config:"writeTimeout"`
	Backoff         Backoff       `config:"backoff"`
}

// Options converts the configuration into client options.
func (c ClientConfig) Options() ([]seqwire.ClientOption, error) {
	var opts []seqwire.ClientOption
	if c.ConnectTimeout > 0 {
		opts = append(opts, seqwire.ConnectTimeout(c.ConnectTimeout))
	}
	if c.ConnectAttempts > 0 {
		opts = append(opts, seqwire.ConnectAttempts(c.ConnectAttempts))
	}
	if c.ReadTimeout > 0 {
		opts = append(opts, seqwire.ReadTimeout(c.ReadTimeout))
	}
	if c.WriteTimeout > 0 {
		opts = append(opts, seqwire.WriteTimeout(c.WriteTimeout))
	}
	if c.Backoff.isConfigured() {
		strategy, err := c.Backoff.Strategy()
		if err != nil {
			return nil, err
		}
		opts = append(opts, seqwire.ConnectBackoff(strategy))
	}
	return opts, nil
}

// LoadYAML decodes a configuration from YAML.
func LoadYAML(r io.Reader) (*Config, error) {
	raw, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var data interface{}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	var cfg Config
	if err := mapdecode.Decode(&cfg, data, mapdecode.TagName(_tagName), mapdecode.YAML()); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewServer builds the named server with the given codec and handler
// provider. Options decoded from configuration come first, so extra
// options passed by the caller win.
func (c *Config) NewServer(name string, codec wire.Codec, provider service.Provider, extra ...seqwire.ServerOption) (*seqwire.Server, error) {
	sc, ok := c.Servers[name]
	if !ok {
		return nil, fmt.Errorf("no server named %q in configuration", name)
	}
	if sc.Addr == "" {
		return nil, fmt.Errorf("server %q has no addr", name)
	}
	opts := append(sc.Options(), extra...)
	return seqwire.NewServer(sc.Addr, codec, provider, opts...), nil
}

// NewClient builds the named client with the given codec.
func (c *Config) NewClient(name string, codec wire.Codec, extra ...seqwire.ClientOption) (*seqwire.Client, error) {
	cc, ok := c.Clients[name]
	if !ok {
		return nil, fmt.Errorf("no client named %q in configuration", name)
	}
	if cc.Addr == "" {
		return nil, fmt.Errorf("client %q has no addr", name)
	}
	opts, err := cc.Options()
	if err != nil {
		return nil, fmt.Errorf("client %q: %v", name, err)
	}
	opts = append(opts, extra...)
	return seqwire.Dial(cc.Addr, codec, opts...), nil
}
