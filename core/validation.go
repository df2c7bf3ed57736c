// Copyright 2025 Fred Agent Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"fmt"
	"strings"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Uid must be non-zero
//   - Filename must not be empty
//   - Extension must be lower-cased with a leading dot
//   - Metadata keys must not collide with reserved system fields
//
// NOT validated (populated later in the pipeline):
//   - Retrievable (false until the full pipeline succeeds)
//   - LastError (set only on failure)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Uid == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrZeroUID)
	}

	if doc.Filename == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyFilename)
	}

	if !IsValidExtension(doc.Extension) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidDocument, ErrInvalidExtension, doc.Extension)
	}

	for key := range doc.Metadata {
		if IsReservedMetadataKey(key) {
			return fmt.Errorf("%w: %w: %q", ErrInvalidDocument, ErrReservedMetadataKey, key)
		}
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - DocumentUid must be non-zero
//   - Text must not be empty
//
// NOT validated:
//   - Vector (empty until the embed stage runs)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.DocumentUid == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrZeroUID)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyChunkText)
	}

	return nil
}

// ValidateTabularRecord validates a TabularRecord according to domain rules.
func ValidateTabularRecord(record *TabularRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidTabularRecord)
	}

	if record.DocumentUid == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidTabularRecord, ErrZeroUID)
	}

	return nil
}

// IsValidExtension reports whether ext is a dispatch-ready extension:
// lower-cased with a leading dot, e.g. ".pdf".
func IsValidExtension(ext string) bool {
	if len(ext) < 2 || ext[0] != '.' {
		return false
	}
	return ext == strings.ToLower(ext)
}

// IsReservedMetadataKey reports whether key is owned by the ingestion pipeline.
func IsReservedMetadataKey(key string) bool {
	for _, reserved := range ReservedMetadataKeys {
		if key == reserved {
			return true
		}
	}
	return false
}

// NormalizeExtension lower-cases ext and ensures a leading dot, turning raw
// user input ("PDF", "pdf", ".PDF") into a dispatch key.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ext
	}
	if ext[0] != '.' {
		ext = "." + ext
	}
	return ext
}
