// Package logging carries the structured logger that cmd/xlatorfsd and
// its client translator write through (SPEC_FULL.md §4.12): translator
// name, frame id, and peer/XID are attached as fields, never
// interpolated into the message string. The inode, fd, RPC client and
// socket packages do not log.
package logging

import (
	"github.com/sirupsen/logrus"
	"github.com/xlatorfs/xlatorfs/stack"
)

// Logger is a thin facade over logrus.FieldLogger so call sites depend
// on this package's vocabulary (WithFrame, WithPeer) rather than
// logrus directly.
type Logger struct {
	entry *logrus.Entry
}

// New wraps base, defaulting to logrus's standard logger if base is
// nil.
func New(base *logrus.Logger) *Logger {
	if base == nil {
		base = logrus.StandardLogger()
	}
	return &Logger{entry: logrus.NewEntry(base)}
}

// WithFrame attaches the frame's translator name and unique id, the
// fields every wind/unwind trace line carries (SPEC_FULL §4.12).
func (l *Logger) WithFrame(f *stack.Frame) *Logger {
	fields := logrus.Fields{"frame": f.Unique}
	if f.Trans != nil {
		fields["translator"] = f.Trans.Name()
	}
	return &Logger{entry: l.entry.WithFields(fields)}
}

// WithPeer attaches an RPC connection's peer identifier and in-flight
// XID, used by the client/transport layers.
func (l *Logger) WithPeer(peer string, xid uint32) *Logger {
	return &Logger{entry: l.entry.WithFields(logrus.Fields{"peer": peer, "xid": xid})}
}

// WithField is the general escape hatch for call sites that need a
// field this package has no dedicated helper for.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// Debugf logs wind/unwind tracing (spec.md §7 kind mapping, SPEC_FULL
// §4.12).
func (l *Logger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }

// Infof logs connect/disconnect/notify transitions.
func (l *Logger) Infof(format string, args ...any) { l.entry.Infof(format, args...) }

// Warnf logs bailout/ping-timeout events.
func (l *Logger) Warnf(format string, args ...any) { l.entry.Warnf(format, args...) }

// Errorf logs protocol-decode and resource-exhaustion failures.
func (l *Logger) Errorf(format string, args ...any) { l.entry.Errorf(format, args...) }
