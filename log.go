package sga

import "github.com/sirupsen/logrus"

// log is the package-level logger. Archives never log on the happy
// path at Info or above; the only messages are Debug ones for a parsed
// ToC and for promoting a node before a write. Per-file decompression
// and mixed path separators are not logged.
var log = logrus.WithField("component", "sga")

// SetLogger replaces the package logger, letting a host application
// route SGA-V2's structured fields into its own logrus instance.
func SetLogger(l *logrus.Logger) {
	log = l.WithField("component", "sga")
}
