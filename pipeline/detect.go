/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import "strings"

// triggerVerbs are the request verbs that suggest a multi-stage build.
var triggerVerbs = []string{
	"build",
	"implement",
	"create",
	"develop",
	"make",
}

// triggerNouns are the deliverables a trigger verb must pair with.
var triggerNouns = []string{
	"app",
	"application",
	"feature",
	"api",
	"service",
	"website",
	"tool",
	"cli",
	"library",
	"module",
	"component",
	"system",
}

// IsMultiStepRequest reports whether the request text asks for work big
// enough to run as a pipeline: a trigger verb followed somewhere by a
// deliverable noun, case-insensitive.
func IsMultiStepRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, verb := range triggerVerbs {
		at := indexWord(lower, verb)
		if at == -1 {
			continue
		}
		rest := lower[at+len(verb):]
		for _, noun := range triggerNouns {
			if indexWord(rest, noun) != -1 {
				return true
			}
		}
	}
	return false
}

// indexWord finds needle in haystack at word boundaries, returning the
// index of the match or -1.
func indexWord(haystack, needle string) int {
	for start := 0; ; {
		i := strings.Index(haystack[start:], needle)
		if i == -1 {
			return -1
		}
		i += start
		end := i + len(needle)
		beforeOK := i == 0 || !isWordChar(haystack[i-1])
		afterOK := end == len(haystack) || !isWordChar(haystack[end])
		if beforeOK && afterOK {
			return i
		}
		start = i + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}
