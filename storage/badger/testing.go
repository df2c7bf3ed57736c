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

package badger

import "github.com/fred-agent/knowledge-flow/storage"

// Stores bundles the four store interfaces opened on one shared backend.
type Stores struct {
	Content  storage.ContentStore
	Metadata storage.MetadataStore
	Vector   storage.VectorStore
	Tabular  storage.TabularStore
	Backend  *Backend
}

// Close closes the shared backend.
func (s *Stores) Close() error {
	return s.Backend.Close()
}

// NewMemoryStores creates all four stores on an in-memory backend for testing.
// Caller must close the returned Stores when done.
func NewMemoryStores() (*Stores, error) {
	return openStores("", true)
}

// OpenStores creates all four stores on a persistent backend at filePath.
func OpenStores(filePath string) (*Stores, error) {
	return openStores(filePath, false)
}

func openStores(filePath string, inMemory bool) (*Stores, error) {
	backend, err := OpenBackend(filePath, inMemory)
	if err != nil {
		return nil, err
	}

	content, err := NewContentStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	metadata, err := NewMetadataStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	vector, err := NewVectorStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	tabular, err := NewTabularStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Stores{
		Content:  content,
		Metadata: metadata,
		Vector:   vector,
		Tabular:  tabular,
		Backend:  backend,
	}, nil
}
