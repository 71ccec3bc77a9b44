/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package googleprovider adapts the Google GenAI API to the canonical
// completion contract.
//
// Gemini responses carry whole parts rather than framed blocks: text
// arrives as part deltas and each function call arrives complete in a
// single chunk. The streaming path feeds text through the accumulator's
// implicit framing and injects each function call's arguments as one JSON
// fragment; Finish closes the stream in canonical order.
package googleprovider
