package client

import (
	"context"
	"time"

	"github.com/imdario/mergo"
	"github.com/sirupsen/logrus"
)

// unique type to prevent assignment.
type clientEventContextKey struct{}

// ContextClientTrace returns the ClientTrace associated with the provided
// context, completed with no-op hooks for any events it does not handle.
func ContextClientTrace(ctx context.Context) *ClientTrace {
	trace, _ := ctx.Value(clientEventContextKey{}).(*ClientTrace)
	if trace == nil {
		trace = NoOpLoggingHooks
	} else {
		_ = mergo.Merge(trace, NoOpLoggingHooks)
	}
	return trace
}

// WithClientTrace returns a new context based on the provided parent ctx.
// NNTP sessions created with the returned context will use the provided
// trace hooks.
func WithClientTrace(ctx context.Context, trace *ClientTrace) context.Context {
	return context.WithValue(ctx, clientEventContextKey{}, trace)
}

// ClientTrace defines a structure for handling trace events.
type ClientTrace struct {
	// ConnectStart is called when starting to create a connection to a
	// remote server.
	ConnectStart func(target string)

	// ConnectDone is called when the connection attempt completes, with err
	// indicating whether it was successful.
	ConnectDone func(target string, err error, d time.Duration)

	// ConnectionClosed is called after the connection has been closed, with
	// err indicating any error condition.
	ConnectionClosed func(target string, err error)

	// CommandStart is called before a command line is written.
	CommandStart func(verb, args string)

	// CommandDone is called once the status line for a command has been
	// read and classified.
	CommandDone func(verb string, code int, err error, d time.Duration)

	// AuthStart is called before the authentication exchange triggered by a
	// 480 status.
	AuthStart func(username string)

	// AuthDone is called when the authentication exchange completes.
	AuthDone func(username string, err error)

	// InfoStart is called when a multi-line response reader is created,
	// with the reader kind ("plain", "gzip" or "yenczlib").
	InfoStart func(kind string)

	// InfoDone is called when a multi-line response reader terminates.
	InfoDone func(kind string, lines int, err error)

	// ReadStart is called before a read from the underlying transport.
	ReadStart func(buf []byte)

	// ReadDone is called after a read from the underlying transport.
	ReadDone func(buf []byte, c int, err error, d time.Duration)

	// WriteStart is called before a write to the underlying transport.
	WriteStart func(buf []byte)

	// WriteDone is called after a write to the underlying transport.
	WriteDone func(buf []byte, c int, err error, d time.Duration)

	// Error is called after an error condition has been detected.
	Error func(context, target string, err error)
}

// DefaultLoggingHooks provides a default logging hook to report errors.
var DefaultLoggingHooks = &ClientTrace{
	Error: func(context, target string, err error) {
		logrus.WithFields(logrus.Fields{"context": context, "target": target}).
			WithError(err).Error("NNTP error")
	},
}

// MetricLoggingHooks provides a set of hooks that will log network metrics.
var MetricLoggingHooks = &ClientTrace{
	ConnectDone: func(target string, err error, d time.Duration) {
		logrus.WithFields(logrus.Fields{"target": target, "err": err, "tookMs": d.Milliseconds()}).
			Info("NNTP connect done")
	},
	CommandDone: func(verb string, code int, err error, d time.Duration) {
		logrus.WithFields(logrus.Fields{"verb": verb, "code": code, "err": err, "tookMs": d.Milliseconds()}).
			Info("NNTP command done")
	},
	InfoDone: func(kind string, lines int, err error) {
		logrus.WithFields(logrus.Fields{"kind": kind, "lines": lines, "err": err}).
			Info("NNTP response read")
	},

	Error: DefaultLoggingHooks.Error,
}

// DiagnosticLoggingHooks provides a set of default diagnostic hooks.
var DiagnosticLoggingHooks = &ClientTrace{
	ConnectStart: func(target string) {
		logrus.WithField("target", target).Debug("NNTP connect start")
	},
	ConnectDone: MetricLoggingHooks.ConnectDone,
	ConnectionClosed: func(target string, err error) {
		logrus.WithFields(logrus.Fields{"target": target, "err": err}).Debug("NNTP connection closed")
	},
	CommandStart: func(verb, args string) {
		logrus.WithFields(logrus.Fields{"verb": verb, "args": args}).Debug("NNTP command start")
	},
	CommandDone: MetricLoggingHooks.CommandDone,
	AuthStart: func(username string) {
		logrus.WithField("username", username).Debug("NNTP auth start")
	},
	AuthDone: func(username string, err error) {
		logrus.WithFields(logrus.Fields{"username": username, "err": err}).Debug("NNTP auth done")
	},
	InfoStart: func(kind string) {
		logrus.WithField("kind", kind).Debug("NNTP response reader start")
	},
	InfoDone: MetricLoggingHooks.InfoDone,
	ReadStart: func(p []byte) {
		logrus.WithField("capacity", len(p)).Trace("NNTP read start")
	},
	ReadDone: func(p []byte, c int, err error, d time.Duration) {
		logrus.WithFields(logrus.Fields{"len": c, "err": err, "tookMs": d.Milliseconds()}).Trace("NNTP read done")
	},
	WriteStart: func(p []byte) {
		logrus.WithField("len", len(p)).Trace("NNTP write start")
	},
	WriteDone: func(p []byte, c int, err error, d time.Duration) {
		logrus.WithFields(logrus.Fields{"len": c, "err": err, "tookMs": d.Milliseconds()}).Trace("NNTP write done")
	},

	Error: DefaultLoggingHooks.Error,
}

// NoOpLoggingHooks provides a set of hooks that do nothing.
var NoOpLoggingHooks = &ClientTrace{
	ConnectStart:     func(target string) {},
	ConnectDone:      func(target string, err error, d time.Duration) {},
	ConnectionClosed: func(target string, err error) {},
	CommandStart:     func(verb, args string) {},
	CommandDone:      func(verb string, code int, err error, d time.Duration) {},
	AuthStart:        func(username string) {},
	AuthDone:         func(username string, err error) {},
	InfoStart:        func(kind string) {},
	InfoDone:         func(kind string, lines int, err error) {},

	ReadStart: func(p []byte) {},
	ReadDone:  func(p []byte, c int, err error, d time.Duration) {},

	WriteStart: func(p []byte) {},
	WriteDone:  func(p []byte, c int, err error, d time.Duration) {},

	Error: func(context, target string, err error) {},
}
