package client

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
)

// The transport layer provides an ordered, reliable byte stream between the
// client and the news server, optionally wrapped in TLS.

// Transport interface defines what characteristics make up an NNTP transport
// layer object.
type Transport interface {
	io.ReadWriteCloser
}

type tImpl struct {
	conn    net.Conn
	timeout time.Duration
	trace   *ClientTrace
	target  string
}

// NewTransport creates a new transport, connecting to the target ("host:port")
// with the supplied configuration. When cfg.TLS is set the connection is
// wrapped before it is returned.
func NewTransport(ctx context.Context, target string, cfg *Config) (rt Transport, err error) {
	cfg = resolveConfig(cfg)
	trace := ContextClientTrace(ctx)

	trace.ConnectStart(target)
	defer func(begin time.Time) {
		trace.ConnectDone(target, err, time.Since(begin))
	}(time.Now())

	timeout := time.Duration(cfg.TimeoutSecs) * time.Second

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect")
	}

	if cfg.TLS {
		tlsConfig := cfg.TLSConfig
		if tlsConfig == nil {
			host, _, herr := net.SplitHostPort(target)
			if herr != nil {
				host = target
			}
			tlsConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
		}
		tlsConn := tls.Client(conn, tlsConfig)
		if timeout > 0 {
			_ = tlsConn.SetDeadline(time.Now().Add(timeout))
		}
		if err = tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, errors.Wrap(err, "tls handshake failed")
		}
		_ = tlsConn.SetDeadline(time.Time{})
		conn = tlsConn
	}

	return &tImpl{conn: conn, timeout: timeout, trace: trace, target: target}, nil
}

func (t *tImpl) Read(p []byte) (c int, err error) {
	t.trace.ReadStart(p)
	defer func(begin time.Time) {
		t.trace.ReadDone(p, c, err, time.Since(begin))
	}(time.Now())

	if t.timeout > 0 {
		_ = t.conn.SetReadDeadline(time.Now().Add(t.timeout))
	}
	c, err = t.conn.Read(p)

	return
}

func (t *tImpl) Write(p []byte) (c int, err error) {
	t.trace.WriteStart(p)
	defer func(begin time.Time) {
		t.trace.WriteDone(p, c, err, time.Since(begin))
	}(time.Now())

	if t.timeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.timeout))
	}
	c, err = t.conn.Write(p)

	return
}

func (t *tImpl) Close() (err error) {
	defer func() { t.trace.ConnectionClosed(t.target, err) }()
	err = t.conn.Close()
	return
}
