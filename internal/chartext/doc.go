// Package chartext derives the canonical logical-character stream of an
// HTML document together with a position map back into its serialized
// form.
//
// The stream is the coordinate system in which annotation boundaries are
// expressed: whitespace runs (including non-breaking spaces) collapse to a
// single space, line-break elements count as exactly one newline, entity
// references decode to one character each, and stripped elements
// contribute nothing. The selection-indexing routine in the editing UI
// implements the same traversal rules; the two must agree character for
// character, so any rule change here has to land in both places. The
// conformance fixtures in conformance_test.go are the shared contract.
package chartext
