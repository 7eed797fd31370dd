// Package annotex exports annotated rich-text documents to paginated
// print PDFs. Given a document and a set of possibly-overlapping
// highlights recorded in logical-character coordinates, it indexes the
// document exactly the way the editing UI does, partitions it into regions
// of constant highlight membership, splices flat block-safe carriers into
// the markup, converts through pandoc with a Lua rendering filter, and
// compiles the assembled LaTeX to PDF.
//
// Every invocation is stateless: all derived structures live and die
// within one Export call, and concurrent exports share nothing but the
// read-only tag palette.
package annotex
