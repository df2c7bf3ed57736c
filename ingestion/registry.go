package ingestion

import (
	"fmt"

	"github.com/fred-agent/knowledge-flow/core"
	"github.com/fred-agent/knowledge-flow/derive"
	"github.com/fred-agent/knowledge-flow/extract"
)

// Registry routes a file extension to its input processor and a normalized
// document to its output processor. Output routing is resolved per
// extension when an override is registered, otherwise by the kind of
// document the input processor produced, so a new markdown-producing
// input processor gets vectorization without a registry edit.
//
// Register everything at startup; lookups are read-only and safe for
// concurrent use afterwards.
type Registry struct {
	inputs  map[string]extract.InputProcessor
	outputs map[string]derive.OutputProcessor
	byKind  map[core.DocumentKind]derive.OutputProcessor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		inputs:  make(map[string]extract.InputProcessor),
		outputs: make(map[string]derive.OutputProcessor),
		byKind:  make(map[core.DocumentKind]derive.OutputProcessor),
	}
}

// RegisterInput maps an extension to an input processor. The extension is
// normalized, so "PDF", "pdf" and ".pdf" are the same key.
func (r *Registry) RegisterInput(extension string, processor extract.InputProcessor) {
	r.inputs[core.NormalizeExtension(extension)] = processor
}

// RegisterOutput maps an extension to an output processor, overriding the
// kind-based default policy for that extension.
func (r *Registry) RegisterOutput(extension string, processor derive.OutputProcessor) {
	r.outputs[core.NormalizeExtension(extension)] = processor
}

// RegisterDefaultOutput sets the output processor used for documents of
// the given kind when no per-extension override exists.
func (r *Registry) RegisterDefaultOutput(kind core.DocumentKind, processor derive.OutputProcessor) {
	r.byKind[kind] = processor
}

// ResolveInput returns the input processor for an extension, or an
// UnsupportedFileTypeError when none is registered.
func (r *Registry) ResolveInput(extension string) (extract.InputProcessor, error) {
	normalized := core.NormalizeExtension(extension)
	processor, found := r.inputs[normalized]
	if !found {
		return nil, &UnsupportedFileTypeError{Extension: normalized}
	}
	return processor, nil
}

// ResolveOutput returns the output processor for an extension and document
// kind. Per-extension overrides win over the kind default.
func (r *Registry) ResolveOutput(extension string, kind core.DocumentKind) (derive.OutputProcessor, error) {
	if processor, found := r.outputs[core.NormalizeExtension(extension)]; found {
		return processor, nil
	}
	if processor, found := r.byKind[kind]; found {
		return processor, nil
	}
	return nil, fmt.Errorf("no output processor for document kind %d", kind)
}

// Supports reports whether an extension has an input processor.
func (r *Registry) Supports(extension string) bool {
	_, found := r.inputs[core.NormalizeExtension(extension)]
	return found
}

// SupportedExtensions lists every extension with an input processor.
func (r *Registry) SupportedExtensions() []string {
	extensions := make([]string, 0, len(r.inputs))
	for extension := range r.inputs {
		extensions = append(extensions, extension)
	}
	return extensions
}
