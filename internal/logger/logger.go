package logger

import (
	"io"
	"log"
	"os"
)

type Logger struct {
	debug *log.Logger
	info  *log.Logger
	warn  *log.Logger
	error *log.Logger
	tag   string
}

func New() *Logger {
	return &Logger{
		debug: log.New(os.Stdout, "DEBUG: ", log.Ldate|log.Ltime),
		info:  log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime),
		warn:  log.New(os.Stderr, "WARN: ", log.Ldate|log.Ltime),
		error: log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime),
	}
}

func NewWithWriter(writer io.Writer) *Logger {
	return &Logger{
		debug: log.New(writer, "DEBUG: ", log.Ldate|log.Ltime),
		info:  log.New(writer, "INFO: ", log.Ldate|log.Ltime),
		warn:  log.New(writer, "WARN: ", log.Ldate|log.Ltime),
		error: log.New(writer, "ERROR: ", log.Ldate|log.Ltime),
	}
}

// Tagged returns a logger that prefixes every line with "[tag]". The
// scheduler and pipeline use it for per-user log lines.
func (l *Logger) Tagged(tag string) *Logger {
	return &Logger{
		debug: l.debug,
		info:  l.info,
		warn:  l.warn,
		error: l.error,
		tag:   "[" + tag + "]",
	}
}

func (l *Logger) prepend(v []interface{}) []interface{} {
	if l.tag == "" {
		return v
	}
	return append([]interface{}{l.tag}, v...)
}

func (l *Logger) format(format string) string {
	if l.tag == "" {
		return format
	}
	return l.tag + " " + format
}

func (l *Logger) Debug(v ...interface{}) {
	l.debug.Println(l.prepend(v)...)
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.debug.Printf(l.format(format), v...)
}

func (l *Logger) Info(v ...interface{}) {
	l.info.Println(l.prepend(v)...)
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.info.Printf(l.format(format), v...)
}

func (l *Logger) Warn(v ...interface{}) {
	l.warn.Println(l.prepend(v)...)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.warn.Printf(l.format(format), v...)
}

func (l *Logger) Error(v ...interface{}) {
	l.error.Println(l.prepend(v)...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.error.Printf(l.format(format), v...)
}
