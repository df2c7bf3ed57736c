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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidTabularRecord indicates a TabularRecord failed validation.
	ErrInvalidTabularRecord = errors.New("invalid tabular record")

	// ErrEmptyFilename indicates the Filename field is empty.
	ErrEmptyFilename = errors.New("filename cannot be empty")

	// ErrInvalidExtension indicates an extension without a leading dot or with upper-case letters.
	ErrInvalidExtension = errors.New("extension must be lower-cased with a leading dot")

	// ErrReservedMetadataKey indicates processor metadata collides with a system field.
	ErrReservedMetadataKey = errors.New("metadata key is reserved")

	// ErrEmptyChunkText indicates the chunk Text field is empty.
	ErrEmptyChunkText = errors.New("chunk text cannot be empty")

	// ErrZeroUID indicates a document UID of zero where a real one is required.
	ErrZeroUID = errors.New("document uid cannot be zero")
)
