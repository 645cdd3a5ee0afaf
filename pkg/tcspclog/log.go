// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tcspclog provides a simple way of logging with different levels,
// for the edges of a pipeline (sources, sinks, bridges) -- processors
// themselves stay off the hot path and do not log (see SPEC_FULL.md).
// Time/date are not logged by default because systemd adds them for us;
// SetDateTime(true) switches that on.
//
// Uses these prefixes: https://www.freedesktop.org/software/systemd/man/sd-daemon.html
package tcspclog

import (
	"fmt"
	"io"
	"log"
	"os"
)

var logDateTime bool

var (
	DebugWriter io.Writer = os.Stderr
	NoteWriter  io.Writer = os.Stderr
	InfoWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrWriter   io.Writer = os.Stderr
)

var (
	DebugPrefix string = "<7>[DEBUG]   "
	InfoPrefix  string = "<6>[INFO]    "
	NotePrefix  string = "<5>[NOTICE]  "
	WarnPrefix  string = "<4>[WARNING] "
	ErrPrefix   string = "<3>[ERROR]   "
)

var (
	DebugLog *log.Logger = log.New(DebugWriter, DebugPrefix, 0)
	InfoLog  *log.Logger = log.New(InfoWriter, InfoPrefix, 0)
	NoteLog  *log.Logger = log.New(NoteWriter, NotePrefix, log.Lshortfile)
	WarnLog  *log.Logger = log.New(WarnWriter, WarnPrefix, log.Lshortfile)
	ErrLog   *log.Logger = log.New(ErrWriter, ErrPrefix, log.Llongfile)

	DebugTimeLog *log.Logger = log.New(DebugWriter, DebugPrefix, log.LstdFlags)
	InfoTimeLog  *log.Logger = log.New(InfoWriter, InfoPrefix, log.LstdFlags)
	NoteTimeLog  *log.Logger = log.New(NoteWriter, NotePrefix, log.LstdFlags|log.Lshortfile)
	WarnTimeLog  *log.Logger = log.New(WarnWriter, WarnPrefix, log.LstdFlags|log.Lshortfile)
	ErrTimeLog   *log.Logger = log.New(ErrWriter, ErrPrefix, log.LstdFlags|log.Llongfile)
)

// SetLevel discards writers below lvl ("debug", "info", "notice", "warn",
// "err").
func SetLevel(lvl string) {
	switch lvl {
	case "err", "fatal":
		WarnWriter = io.Discard
		fallthrough
	case "warn":
		InfoWriter = io.Discard
		fallthrough
	case "notice":
		NoteWriter = io.Discard
		fallthrough
	case "info":
		DebugWriter = io.Discard
	case "debug":
	default:
		fmt.Printf("tcspclog: invalid level %q, using \"debug\"\n", lvl)
		SetLevel("debug")
	}
}

// SetDateTime switches on/off time.Date prefixing of log lines.
func SetDateTime(on bool) {
	logDateTime = on
}

func printStr(v ...any) string { return fmt.Sprint(v...) }

func Debug(v ...any) { emit(DebugWriter, DebugLog, DebugTimeLog, printStr(v...)) }
func Info(v ...any)  { emit(InfoWriter, InfoLog, InfoTimeLog, printStr(v...)) }
func Note(v ...any)  { emit(NoteWriter, NoteLog, NoteTimeLog, printStr(v...)) }
func Warn(v ...any)  { emit(WarnWriter, WarnLog, WarnTimeLog, printStr(v...)) }
func Error(v ...any) { emit(ErrWriter, ErrLog, ErrTimeLog, printStr(v...)) }

func Debugf(format string, v ...any) { emit(DebugWriter, DebugLog, DebugTimeLog, fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { emit(InfoWriter, InfoLog, InfoTimeLog, fmt.Sprintf(format, v...)) }
func Notef(format string, v ...any)  { emit(NoteWriter, NoteLog, NoteTimeLog, fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { emit(WarnWriter, WarnLog, WarnTimeLog, fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { emit(ErrWriter, ErrLog, ErrTimeLog, fmt.Sprintf(format, v...)) }

func emit(w io.Writer, plain, timed *log.Logger, out string) {
	if w == io.Discard {
		return
	}
	if logDateTime {
		timed.Output(3, out)
	} else {
		plain.Output(3, out)
	}
}
