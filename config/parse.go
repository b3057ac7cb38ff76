/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	commentValue = `#`
)

var (
	ErrInvalidLineLocation = errors.New("Invalid line location")
	ErrMissingEquals       = errors.New("Missing equals sign in parameter line")
)

// ParseBool attempts to parse the string v into a boolean. The following will
// return true:
//
//   - "true"
//   - "t"
//   - "yes"
//   - "y"
//   - "1"
//
// The following will return false:
//
//   - "false"
//   - "f"
//   - "no"
//   - "n"
//   - "0"
//
// All other values return an error.
func ParseBool(v string) (r bool, err error) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case `true`:
		fallthrough
	case `t`:
		fallthrough
	case `yes`:
		fallthrough
	case `y`:
		fallthrough
	case `1`:
		r = true
	case `false`:
	case `f`:
	case `0`:
	case `no`:
	case `n`:
	default:
		err = fmt.Errorf("Unknown boolean value %q", v)
	}
	return
}

// ParseUint64 will attempt to turn the given string into an unsigned 64-bit integer.
func ParseUint64(v string) (i uint64, err error) {
	if strings.HasPrefix(v, "0x") {
		i, err = strconv.ParseUint(strings.TrimPrefix(v, "0x"), 16, 64)
	} else {
		i, err = strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	}
	return
}

// ParseInt64 will attempt to turn the given string into a signed 64-bit integer.
func ParseInt64(v string) (i int64, err error) {
	if strings.HasPrefix(v, "0x") {
		i, err = strconv.ParseInt(strings.TrimPrefix(v, "0x"), 16, 64)
	} else {
		i, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	}
	return
}

// trimQuotes removes a single set of matching surrounding single or double
// quotes from the value. Quoted values may contain '=' and '#' characters.
func trimQuotes(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// isQuoted indicates whether the raw value carries surrounding quotes.
func isQuoted(v string) bool {
	return len(v) >= 2 && ((v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\''))
}

// splitParam splits a KEY=VALUE line into its key and cleaned value.
// Surrounding whitespace is trimmed on both sides, the value may be quoted,
// and an unquoted value is truncated at a trailing comment.
func splitParam(ln string) (key, val string, err error) {
	idx := strings.IndexByte(ln, '=')
	if idx < 0 {
		err = ErrMissingEquals
		return
	}
	key = strings.ToUpper(strings.TrimSpace(ln[:idx]))
	val = strings.TrimSpace(ln[idx+1:])
	if isQuoted(val) {
		val = trimQuotes(val)
		return
	}
	//unquoted values cannot contain a comment
	if cidx := strings.Index(val, commentValue); cidx >= 0 {
		val = strings.TrimSpace(val[:cidx])
	}
	return
}

// emptyOrComment indicates the line carries no parameter at all.
func emptyOrComment(ln string) bool {
	ln = strings.TrimSpace(ln)
	return len(ln) == 0 || strings.HasPrefix(ln, commentValue)
}

// lineParameter checks if the line contains the given parameter key.
// The match is case insensitive and requires the key to be the full
// token preceding the equals sign.
func lineParameter(ln, key string) bool {
	if emptyOrComment(ln) {
		return false
	}
	k, _, err := splitParam(ln)
	if err != nil {
		return false
	}
	return strings.EqualFold(k, key)
}

// updateLine rewrites the parameter value at a given line, preserving any
// leading whitespace and trailing comment.
func updateLine(lines []string, key, value string, loc int) (nl []string, err error) {
	if loc >= len(lines) || loc < 0 {
		err = ErrInvalidLineLocation
		return
	}
	if !lineParameter(lines[loc], key) {
		err = fmt.Errorf("line %d does not hold parameter %s", loc, key)
		return
	}
	var comment string
	if idx := strings.Index(lines[loc], commentValue); idx >= 0 && !strings.Contains(lines[loc][:idx], `"`) {
		comment = ` ` + lines[loc][idx:]
	}
	if strings.ContainsAny(value, " \t#") {
		value = `"` + value + `"`
	}
	lead := lines[loc][:len(lines[loc])-len(strings.TrimLeft(lines[loc], " \t"))]
	nl = lines
	nl[loc] = fmt.Sprintf(`%s%s=%s%s`, lead, key, value, comment)
	return
}

// findParameter locates the line holding the given key, -1 if absent.
func findParameter(lines []string, key string) int {
	for i := range lines {
		if lineParameter(lines[i], key) {
			return i
		}
	}
	return -1
}
