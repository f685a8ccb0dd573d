// Package telemetry records statement and migration metrics.
package telemetry

import (
	"strings"
	"time"
)

// Direction is the way a migration moved.
type Direction string

const (
	Apply    Direction = "apply"
	Rollback Direction = "rollback"
)

// Recorder receives execution events.
type Recorder interface {
	// ObserveStatement records one executed statement.
	ObserveStatement(verb string, took time.Duration, err error)

	// ObserveMigration records one migration applied or rolled back.
	ObserveMigration(direction Direction, name string, err error)
}

// Noop discards everything.
type Noop struct{}

// ObserveStatement implements Recorder.
func (Noop) ObserveStatement(string, time.Duration, error) {}

// ObserveMigration implements Recorder.
func (Noop) ObserveMigration(Direction, string, error) {}

// Verb extracts the leading keyword of a statement, upper-cased.
func Verb(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(fields[0])
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

var _ Recorder = Noop{}
