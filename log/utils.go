/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package log

import (
	"fmt"
	"strings"

	"github.com/crewjam/rfc5424"
)

// KV builds a structured data parameter from a name and an arbitrary value.
func KV(name string, value interface{}) (r rfc5424.SDParam) {
	r.Name = name
	switch v := value.(type) {
	case string:
		r.Value = v
	default:
		r.Value = fmt.Sprintf("%v", value)
	}
	return
}

func KVErr(err error) rfc5424.SDParam {
	return KV("error", err)
}

func trimPathLength(max int, s string) string {
	//try to trim down on path separators first
	for len(s) > max {
		if idx := strings.IndexByte(s, '/'); idx >= 0 && idx < (len(s)-1) {
			s = s[idx+1:]
			continue
		}
		s = s[len(s)-max:]
	}
	return s
}
