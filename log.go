package vfs

import "github.com/sirupsen/logrus"

// log is the package-wide structured logger. Components log lifecycle events (mount/unmount, dispose, pool
// exhaustion, operation state transitions) through it at Debug or Warn level; nothing in this package logs at
// Error or above, since every failure is also returned as an error to the caller.
var log = logrus.New().WithField("component", "vfs")

// SetLogger replaces the package-wide logger, e.g. to route entries through an application's own logrus
// instance or to attach hooks. Passing nil restores a logger that discards all output.
func SetLogger(entry *logrus.Entry) {
	if entry == nil {
		discard := logrus.New()
		discard.SetOutput(nopWriter{})
		log = discard.WithField("component", "vfs")
		return
	}
	log = entry
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
