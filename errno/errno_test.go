/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package errno

import (
	"errors"
	"fmt"
	"testing"
)

func TestStrings(t *testing.T) {
	for e := EPERM; e <= ETHREAD; e++ {
		if !e.Valid() {
			t.Fatalf("kind %d invalid", e)
		}
		if e.Error() == `unknown error` {
			t.Fatalf("kind %d has no perror string", e)
		}
	}
	if Errno(0).Valid() || Errno(999).Valid() {
		t.Fatal("out of range kind validated")
	}
}

func TestWrapping(t *testing.T) {
	err := fmt.Errorf("open %q: %w", `foo`, ENOENT)
	if !errors.Is(err, ENOENT) {
		t.Fatal("wrapped kind not classified")
	}
	if errors.Is(err, EACCES) {
		t.Fatal("wrong kind classified")
	}
	var kind Errno
	if !errors.As(err, &kind) || kind != ENOENT {
		t.Fatalf("As extracted %v", kind)
	}
}

func TestPerror(t *testing.T) {
	if s := Perror(`cat`, ENOENT); s != `cat: no such file` {
		t.Fatalf("%q", s)
	}
	if s := Perror(``, EPERM); s != `operation not permitted` {
		t.Fatalf("%q", s)
	}
}
