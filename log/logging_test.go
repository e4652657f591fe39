/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type bufCloser struct {
	bytes.Buffer
}

func (bc *bufCloser) Close() error { return nil }

func TestLevels(t *testing.T) {
	var bb bufCloser
	l := New(&bb)
	if err := l.SetLevel(WARN); err != nil {
		t.Fatal(err)
	}
	l.Info("dropped")
	l.Warn("kept")
	l.Error("also kept")
	out := bb.String()
	if strings.Contains(out, "dropped") {
		t.Fatal("sub-level record emitted")
	}
	if !strings.Contains(out, "kept") || !strings.Contains(out, "also kept") {
		t.Fatalf("records missing: %q", out)
	}
	if n := strings.Count(out, "\n"); n != 2 {
		t.Fatalf("%d lines", n)
	}
}

func TestStructuredParams(t *testing.T) {
	var bb bufCloser
	l := New(&bb)
	l.Info("mounted", KV("path", "/tmp/x.img"), KV("blocks", 32))
	out := bb.String()
	if !strings.Contains(out, `path="/tmp/x.img"`) {
		t.Fatalf("missing structured param: %q", out)
	}
	if !strings.Contains(out, `blocks="32"`) {
		t.Fatalf("missing numeric param: %q", out)
	}
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		s    string
		want Level
	}{
		{`debug`, DEBUG}, {`INFO`, INFO}, {` warn `, WARN},
		{`WARNING`, WARN}, {`error`, ERROR}, {`CRITICAL`, CRITICAL},
	} {
		got, err := LevelFromString(tc.s)
		if err != nil || got != tc.want {
			t.Fatalf("%q -> %v, %v", tc.s, got, err)
		}
	}
	if _, err := LevelFromString(`chatty`); err == nil {
		t.Fatal("bad level accepted")
	}
}

func TestNewFileAppends(t *testing.T) {
	p := filepath.Join(t.TempDir(), `test.log`)
	l, err := NewFile(p)
	if err != nil {
		t.Fatal(err)
	}
	l.Info("first")
	if err = l.Close(); err != nil {
		t.Fatal(err)
	}
	if l, err = NewFile(p); err != nil {
		t.Fatal(err)
	}
	l.Info("second")
	if err = l.Close(); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "first") || !strings.Contains(string(b), "second") {
		t.Fatalf("append lost a record: %q", b)
	}
}

func TestClosedLoggerRefuses(t *testing.T) {
	var bb bufCloser
	l := New(&bb)
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if err := l.Info("late"); err != ErrNotOpen {
		t.Fatalf("write after close: %v", err)
	}
	if err := l.SetLevel(DEBUG); err != ErrNotOpen {
		t.Fatalf("set level after close: %v", err)
	}
}
