// Package reindex re-embeds the stored chunk sets of already-ingested
// documents, for use after switching embedding models. It supports
// progress tracking and retry with exponential backoff; chunk ids and
// texts never change, only the vectors.
package reindex
