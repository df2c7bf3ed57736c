// Package extract normalizes raw uploaded files into a common document
// representation. Each input processor handles one file family (markdown,
// plain text, PDF, DOCX, PPTX, CSV, XLSM) and produces either a markdown
// body or a column-and-rows table, never both.
//
// Processors are pure with respect to storage: they read the raw bytes
// they are given and touch no stores. Routing by file extension is the
// registry's job, one package up.
package extract
