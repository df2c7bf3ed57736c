// Package search is the read boundary of the knowledge base: similarity
// search over embedded chunks, document record and raw content lookup,
// and the administrative retrievability override. Everything here hides
// documents that are not fully ingested.
package search
