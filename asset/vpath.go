// SPDX-FileCopyrightText : © 2026 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

package asset

import (
	"regexp"
	"strings"
)

// rootPattern matches exactly the bracketed virtual root tokens allowed
// by spec §6.2: "[A-Za-z_][A-Za-z0-9_]*".
var rootPattern = regexp.MustCompile(`^\[[A-Za-z_][A-Za-z0-9_]*\]`)

// IsValidVirtualPath reports whether vp is a well formed virtual path:
// a bracketed root, optionally followed by a '/'-separated path with no
// empty, "." or ".." segments. Whether the last segment carries a file
// extension is not checked.
func IsValidVirtualPath(vp string) bool {
	loc := rootPattern.FindStringIndex(vp)
	if loc == nil || loc[0] != 0 {
		return false
	}
	rest := vp[loc[1]:]
	if rest == "" {
		return true // bare root is valid; RegisterEngineAssets never emits one.
	}
	if !strings.HasPrefix(rest, "/") {
		return false
	}
	for _, seg := range strings.Split(rest[1:], "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}

// RootOf returns the bracketed root token of vp, or "" if vp has none.
func RootOf(vp string) string {
	loc := rootPattern.FindStringIndex(vp)
	if loc == nil || loc[0] != 0 {
		return ""
	}
	return vp[loc[0]:loc[1]]
}

// RestOf returns everything after the root token, including the leading
// '/'. Returns "" if vp has no valid root.
func RestOf(vp string) string {
	loc := rootPattern.FindStringIndex(vp)
	if loc == nil || loc[0] != 0 {
		return ""
	}
	return vp[loc[1]:]
}
