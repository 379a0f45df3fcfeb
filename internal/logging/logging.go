/*************************************************************************
 * Copyright 2026 Riley Leff. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package logging provides the process-wide structured logger used by every
// component of the ingestion service. Log lines are emitted as RFC5424
// structured-data messages so that field values (transaction id, file hash,
// logger id, ...) are machine-parseable instead of interpolated into the
// message text.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/crewjam/rfc5424"
)

type Level int

const (
	OFF Level = iota
	DEBUG
	INFO
	WARN
	ERROR
	CRITICAL
	FATAL
)

const (
	defaultDepth = 3
	defaultMsgID = `sapfluxd@1`
	maxHostname  = 255
	maxAppname   = 48
)

var (
	ErrNotOpen      = errors.New("logger is not open")
	ErrInvalidLevel = errors.New("invalid log level")
)

// Logger is a leveled, structured logger safe for concurrent use. It is
// injected into every component constructor rather than used as a package
// global, so tests can supply a discard logger and production can fan a
// single logger out to multiple writers (stderr plus a rotating file, say).
type Logger struct {
	mtx      sync.Mutex
	wtrs     []io.WriteCloser
	lvl      Level
	hostname string
	appname  string
	open     bool
}

// New builds a logger at level INFO writing to wtr.
func New(wtr io.WriteCloser) *Logger {
	l := &Logger{
		wtrs: []io.WriteCloser{wtr},
		lvl:  INFO,
		open: true,
	}
	l.guessIdentity()
	return l
}

// NewDiscard returns a logger that drops everything; used by tests.
func NewDiscard() *Logger {
	return New(discardWriteCloser{})
}

func (l *Logger) guessIdentity() {
	if h, err := os.Hostname(); err == nil {
		if len(h) > maxHostname {
			h = h[:maxHostname]
		}
		l.hostname = h
	}
	if len(os.Args) > 0 {
		exe := filepath.Base(os.Args[0])
		if ext := filepath.Ext(exe); len(ext) > 0 && len(ext) < len(exe) {
			exe = strings.TrimSuffix(exe, ext)
		}
		if len(exe) > maxAppname {
			exe = exe[:maxAppname]
		}
		l.appname = exe
	}
}

// AddWriter fans subsequent log lines out to an additional writer.
func (l *Logger) AddWriter(wtr io.WriteCloser) error {
	if wtr == nil {
		return errors.New("nil writer")
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if !l.open {
		return ErrNotOpen
	}
	l.wtrs = append(l.wtrs, wtr)
	return nil
}

func (l *Logger) Close() error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if !l.open {
		return ErrNotOpen
	}
	l.open = false
	var err error
	for _, w := range l.wtrs {
		if cerr := w.Close(); cerr != nil {
			err = cerr
		}
	}
	return err
}

func (l *Logger) SetLevel(lvl Level) error {
	if !lvl.Valid() {
		return ErrInvalidLevel
	}
	l.mtx.Lock()
	l.lvl = lvl
	l.mtx.Unlock()
	return nil
}

func (l *Logger) SetLevelString(s string) error {
	lvl, err := LevelFromString(s)
	if err != nil {
		return err
	}
	return l.SetLevel(lvl)
}

func (l *Logger) Debug(msg string, sds ...rfc5424.SDParam) { l.log(DEBUG, msg, sds...) }
func (l *Logger) Info(msg string, sds ...rfc5424.SDParam)   { l.log(INFO, msg, sds...) }
func (l *Logger) Warn(msg string, sds ...rfc5424.SDParam)   { l.log(WARN, msg, sds...) }
func (l *Logger) Error(msg string, sds ...rfc5424.SDParam)  { l.log(ERROR, msg, sds...) }
func (l *Logger) Critical(msg string, sds ...rfc5424.SDParam) {
	l.log(CRITICAL, msg, sds...)
}

// FatalCode logs at FATAL and exits the process with code.
func (l *Logger) FatalCode(code int, msg string, sds ...rfc5424.SDParam) {
	l.log(FATAL, msg, sds...)
	os.Exit(code)
}

func (l *Logger) log(lvl Level, msg string, sds ...rfc5424.SDParam) {
	l.mtx.Lock()
	curr := l.lvl
	l.mtx.Unlock()
	if curr == OFF || lvl < curr {
		return
	}
	ts := time.Now()
	b, err := genMessage(ts, lvl.priority(), l.hostname, l.appname, callLoc(defaultDepth+1), msg, sds...)
	if err != nil {
		return
	}
	l.write(string(b))
}

func (l *Logger) write(ln string) {
	ln = strings.TrimRight(ln, "\n\r\t")
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if !l.open {
		return
	}
	for _, w := range l.wtrs {
		io.WriteString(w, ln)
		io.WriteString(w, "\n")
	}
}

// KV builds a structured-data field for use with Logger's leveled methods.
func KV(name string, value interface{}) rfc5424.SDParam {
	if s, ok := value.(string); ok {
		return rfc5424.SDParam{Name: name, Value: s}
	}
	return rfc5424.SDParam{Name: name, Value: fmt.Sprintf("%v", value)}
}

// KVErr is a shorthand for KV("error", err).
func KVErr(err error) rfc5424.SDParam {
	return KV("error", err)
}

func genMessage(ts time.Time, prio rfc5424.Priority, hostname, appname, msgid, msg string, sds ...rfc5424.SDParam) ([]byte, error) {
	m := rfc5424.Message{
		Priority:  prio,
		Timestamp: ts,
		Hostname:  trimLength(maxHostname, hostname),
		AppName:   trimLength(maxAppname, appname),
		MessageID: trimLength(32, msgid),
		Message:   []byte(msg),
	}
	if len(sds) > 0 {
		m.StructuredData = []rfc5424.StructuredData{{
			ID:         defaultMsgID,
			Parameters: sds,
		}}
	}
	return m.MarshalBinary()
}

func callLoc(depth int) string {
	if _, file, line, ok := runtime.Caller(depth); ok {
		dir, base := filepath.Split(file)
		return fmt.Sprintf("%s:%d", filepath.Join(filepath.Base(dir), base), line)
	}
	return ``
}

func trimLength(n int, s string) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func (l Level) String() string {
	switch l {
	case OFF:
		return `OFF`
	case DEBUG:
		return `DEBUG`
	case INFO:
		return `INFO`
	case WARN:
		return `WARN`
	case ERROR:
		return `ERROR`
	case CRITICAL:
		return `CRITICAL`
	case FATAL:
		return `FATAL`
	}
	return `UNKNOWN`
}

func (l Level) Valid() bool {
	return l >= OFF && l <= FATAL
}

func (l Level) priority() rfc5424.Priority {
	switch l {
	case OFF:
		return 0
	case DEBUG:
		return rfc5424.User | rfc5424.Debug
	case INFO:
		return rfc5424.User | rfc5424.Info
	case WARN:
		return rfc5424.User | rfc5424.Warning
	case ERROR:
		return rfc5424.User | rfc5424.Error
	case CRITICAL:
		return rfc5424.User | rfc5424.Crit
	case FATAL:
		return rfc5424.User | rfc5424.Emergency
	}
	return rfc5424.User | rfc5424.Debug
}

func LevelFromString(s string) (Level, error) {
	switch strings.ToUpper(s) {
	case `OFF`:
		return OFF, nil
	case `DEBUG`:
		return DEBUG, nil
	case `INFO`:
		return INFO, nil
	case `WARN`:
		return WARN, nil
	case `ERROR`:
		return ERROR, nil
	case `CRITICAL`:
		return CRITICAL, nil
	case `FATAL`:
		return FATAL, nil
	default:
		return OFF, ErrInvalidLevel
	}
}

type discardWriteCloser struct{}

func (discardWriteCloser) Write(b []byte) (int, error) { return len(b), nil }
func (discardWriteCloser) Close() error                { return nil }
