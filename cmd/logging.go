package cmd

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// setupLogging sets the log level and tees log output to <name>.log next to the console.
// The returned func closes the log file.
func setupLogging(level, name string) func() {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", level)
	}
	logrus.SetLevel(lvl)
	if name == "" {
		return func() {}
	}
	f, err := os.OpenFile(name+".log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logrus.Warnf("Could not open log file %s.log: %v", name, err)
		return func() {}
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, f))
	return func() {
		logrus.SetOutput(os.Stderr)
		_ = f.Close()
	}
}
