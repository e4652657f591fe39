/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package main

import (
	"errors"

	shellwords "github.com/mattn/go-shellwords"
)

var (
	ErrEmptyLine     = errors.New("empty command line")
	ErrBadRedirect   = errors.New("redirection requires a path")
	ErrManyRedirects = errors.New("duplicate redirection")
)

// cmdLine is one parsed shell command: the argument vector, optional
// redirection paths, and the background marker.
type cmdLine struct {
	argv      []string
	stdin     string
	stdout    string
	appendOut bool
	bg        bool
}

// parseLine tokenizes with shell quoting rules, then peels the
// redirection operators and a trailing ampersand.
func parseLine(line string) (*cmdLine, error) {
	toks, err := shellwords.Parse(line)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, ErrEmptyLine
	}
	cl := &cmdLine{}
	for i := 0; i < len(toks); i++ {
		switch toks[i] {
		case `<`:
			if i+1 >= len(toks) {
				return nil, ErrBadRedirect
			}
			if cl.stdin != `` {
				return nil, ErrManyRedirects
			}
			i++
			cl.stdin = toks[i]
		case `>`, `>>`:
			if i+1 >= len(toks) {
				return nil, ErrBadRedirect
			}
			if cl.stdout != `` {
				return nil, ErrManyRedirects
			}
			cl.appendOut = toks[i] == `>>`
			i++
			cl.stdout = toks[i]
		case `&`:
			if i != len(toks)-1 {
				return nil, errors.New("& must end the command line")
			}
			cl.bg = true
		default:
			cl.argv = append(cl.argv, toks[i])
		}
	}
	if len(cl.argv) == 0 {
		return nil, ErrEmptyLine
	}
	return cl, nil
}
