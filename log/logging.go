/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package log is the daemon's structured logger. Every component logs
// through a scoped child whose name rides the RFC 5424 MessageID, so one
// grep on the component pulls a subsystem's full history, and request
// handling stamps a correlation id into the structured data.
package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/crewjam/rfc5424"
)

const (
	OFF Level = iota
	DEBUG
	INFO
	WARN
	ERROR
	CRITICAL

	// sdID names the daemon's structured-data block in emitted records
	sdID = `networktap@1`

	maxComponent = 32
	maxAppname   = 48
)

var (
	ErrInvalidLevel = errors.New("unknown log level")

	levelNames = map[Level]string{
		OFF:      `OFF`,
		DEBUG:    `DEBUG`,
		INFO:     `INFO`,
		WARN:     `WARN`,
		ERROR:    `ERROR`,
		CRITICAL: `CRITICAL`,
	}

	levelPrios = map[Level]rfc5424.Priority{
		DEBUG:    rfc5424.User | rfc5424.Debug,
		INFO:     rfc5424.User | rfc5424.Info,
		WARN:     rfc5424.User | rfc5424.Warning,
		ERROR:    rfc5424.User | rfc5424.Error,
		CRITICAL: rfc5424.User | rfc5424.Crit,
	}
)

type Level uint8

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return fmt.Sprintf("LEVEL(%d)", uint8(l))
}

// ParseLevel resolves a config or flag value to a Level.
func ParseLevel(s string) (Level, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for l, name := range levelNames {
		if name == want {
			return l, nil
		}
	}
	return OFF, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// core is the shared sink state behind every scoped Logger.
type core struct {
	mtx      sync.Mutex
	wtrs     []io.Writer
	lvl      Level
	hostname string
	appname  string
}

// Logger is a view onto the shared core scoped to one component. Child
// loggers are cheap, components hold one for their lifetime.
type Logger struct {
	c         *core
	component string
}

// New creates the root logger writing to wtr at level INFO. The caller
// owns the writer, the logger never closes it.
func New(wtr io.Writer) *Logger {
	c := &core{
		wtrs: []io.Writer{wtr},
		lvl:  INFO,
	}
	c.hostname, _ = os.Hostname()
	return &Logger{c: c}
}

// NewDiscardLogger returns a logger that drops everything, used when a
// component is constructed without one.
func NewDiscardLogger() *Logger {
	return New(io.Discard)
}

// Component derives a child logger stamped with the given subsystem
// name. Children share writers and level with the root.
func (l *Logger) Component(name string) *Logger {
	if len(name) > maxComponent {
		name = name[:maxComponent]
	}
	return &Logger{c: l.c, component: name}
}

func (l *Logger) SetAppname(name string) {
	if len(name) > maxAppname {
		name = name[:maxAppname]
	}
	l.c.mtx.Lock()
	l.c.appname = name
	l.c.mtx.Unlock()
}

// AddWriter attaches another sink receiving every record.
func (l *Logger) AddWriter(wtr io.Writer) error {
	if wtr == nil {
		return errors.New("nil writer")
	}
	l.c.mtx.Lock()
	l.c.wtrs = append(l.c.wtrs, wtr)
	l.c.mtx.Unlock()
	return nil
}

func (l *Logger) SetLevel(lvl Level) error {
	if _, ok := levelNames[lvl]; !ok {
		return ErrInvalidLevel
	}
	l.c.mtx.Lock()
	l.c.lvl = lvl
	l.c.mtx.Unlock()
	return nil
}

// SetLevelString sets the level from a config file or flag value.
func (l *Logger) SetLevelString(s string) error {
	lvl, err := ParseLevel(s)
	if err != nil {
		return err
	}
	return l.SetLevel(lvl)
}

func (l *Logger) GetLevel() Level {
	l.c.mtx.Lock()
	defer l.c.mtx.Unlock()
	return l.c.lvl
}

// Debug emits a DEBUG record with optional structured data.
func (l *Logger) Debug(msg string, sds ...rfc5424.SDParam) {
	l.emit(DEBUG, msg, sds)
}

// Info emits an INFO record with optional structured data.
func (l *Logger) Info(msg string, sds ...rfc5424.SDParam) {
	l.emit(INFO, msg, sds)
}

// Warn emits a WARN record with optional structured data.
func (l *Logger) Warn(msg string, sds ...rfc5424.SDParam) {
	l.emit(WARN, msg, sds)
}

// Error emits an ERROR record with optional structured data.
func (l *Logger) Error(msg string, sds ...rfc5424.SDParam) {
	l.emit(ERROR, msg, sds)
}

// Critical emits a CRITICAL record, reserved for states needing operator
// intervention such as a failed mode rollback.
func (l *Logger) Critical(msg string, sds ...rfc5424.SDParam) {
	l.emit(CRITICAL, msg, sds)
}

func (l *Logger) emit(lvl Level, msg string, sds []rfc5424.SDParam) {
	l.c.mtx.Lock()
	defer l.c.mtx.Unlock()
	if l.c.lvl == OFF || lvl < l.c.lvl {
		return
	}
	m := rfc5424.Message{
		Priority:  levelPrios[lvl],
		Timestamp: time.Now(),
		Hostname:  l.c.hostname,
		AppName:   l.c.appname,
		MessageID: l.component,
		Message:   []byte(msg),
	}
	if len(sds) > 0 {
		m.StructuredData = []rfc5424.StructuredData{{
			ID:         sdID,
			Parameters: sds,
		}}
	}
	b, err := m.MarshalBinary()
	if err != nil {
		return
	}
	b = append(b, '\n')
	for _, w := range l.c.wtrs {
		w.Write(b)
	}
}

// KV builds one structured parameter.
func KV(name string, value interface{}) rfc5424.SDParam {
	p := rfc5424.SDParam{Name: name}
	switch v := value.(type) {
	case string:
		p.Value = v
	case fmt.Stringer:
		p.Value = v.String()
	default:
		p.Value = fmt.Sprintf("%v", value)
	}
	return p
}

// KVErr is the conventional parameter for an error value.
func KVErr(err error) rfc5424.SDParam {
	return KV(`error`, err)
}

// KVReq carries the API request id, the same id the error envelope and
// the request log line share, so a failed call can be traced across
// component logs.
func KVReq(id string) rfc5424.SDParam {
	return KV(`reqid`, id)
}
