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
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for the persisted domain types. Timestamps are
// stored as unix microseconds, vectors and maps with a varint length prefix.

// MUS serializer singletons.
var (
	UIDMUS           = uidMUS{}
	DocumentMUS      = documentMUS{}
	ChunkMUS         = chunkMUS{}
	TabularRecordMUS = tabularRecordMUS{}
)

type uidMUS struct{}

func (uidMUS) Marshal(v UID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (uidMUS) Unmarshal(bs []byte) (UID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return UID(v), n, err
}

func (uidMUS) Size(v UID) int {
	return varint.Uint64.Size(uint64(v))
}

type documentMUS struct{}

func (documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(v.Uid), bs)
	n += ord.String.Marshal(v.Filename, bs[n:])
	n += ord.String.Marshal(v.Extension, bs[n:])
	n += varint.Int64.Marshal(v.Size, bs[n:])
	n += ord.String.Marshal(v.ContentHash, bs[n:])
	n += ord.Bool.Marshal(v.Retrievable, bs[n:])
	n += marshalStringMap(v.Metadata, bs[n:])
	n += ord.String.Marshal(v.LastError, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return n
}

func (documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	var (
		n1  int
		uid uint64
	)
	uid, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Uid = UID(uid)
	if v.Filename, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Extension, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Size, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.ContentHash, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Retrievable, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Metadata, n1, err = unmarshalStringMap(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.LastError, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.CreatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.UpdatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (documentMUS) Size(v Document) (size int) {
	size = varint.Uint64.Size(uint64(v.Uid))
	size += ord.String.Size(v.Filename)
	size += ord.String.Size(v.Extension)
	size += varint.Int64.Size(v.Size)
	size += ord.String.Size(v.ContentHash)
	size += ord.Bool.Size(v.Retrievable)
	size += sizeStringMap(v.Metadata)
	size += ord.String.Size(v.LastError)
	size += sizeTime(v.CreatedAt)
	size += sizeTime(v.UpdatedAt)
	return size
}

type chunkMUS struct{}

func (chunkMUS) Marshal(v Chunk, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(v.DocumentUid), bs)
	n += varint.Uint32.Marshal(v.ChunkId, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += marshalVector(v.Vector, bs[n:])
	n += varint.Uint32.Marshal(v.Start, bs[n:])
	n += varint.Uint32.Marshal(v.End, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	var (
		n1  int
		uid uint64
	)
	uid, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v.DocumentUid = UID(uid)
	if v.ChunkId, n1, err = varint.Uint32.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Vector, n1, err = unmarshalVector(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Start, n1, err = varint.Uint32.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.End, n1, err = varint.Uint32.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (chunkMUS) Size(v Chunk) (size int) {
	size = varint.Uint64.Size(uint64(v.DocumentUid))
	size += varint.Uint32.Size(v.ChunkId)
	size += ord.String.Size(v.Text)
	size += sizeVector(v.Vector)
	size += varint.Uint32.Size(v.Start)
	size += varint.Uint32.Size(v.End)
	return size
}

type tabularRecordMUS struct{}

func (tabularRecordMUS) Marshal(v TabularRecord, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(v.DocumentUid), bs)
	n += varint.Uint32.Marshal(v.RowIndex, bs[n:])
	n += marshalStringMap(v.Fields, bs[n:])
	return n
}

func (tabularRecordMUS) Unmarshal(bs []byte) (v TabularRecord, n int, err error) {
	var (
		n1  int
		uid uint64
	)
	uid, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v.DocumentUid = UID(uid)
	if v.RowIndex, n1, err = varint.Uint32.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Fields, n1, err = unmarshalStringMap(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (tabularRecordMUS) Size(v TabularRecord) (size int) {
	size = varint.Uint64.Size(uint64(v.DocumentUid))
	size += varint.Uint32.Size(v.RowIndex)
	size += sizeStringMap(v.Fields)
	return size
}

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	micro, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micro).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

func marshalVector(v []float32, bs []byte) (n int) {
	n = varint.PositiveInt.Marshal(len(v), bs)
	for _, f := range v {
		n += varint.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.PositiveInt.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	v = make([]float32, length)
	var n1 int
	for i := 0; i < length; i++ {
		if v[i], n1, err = varint.Float32.Unmarshal(bs[n:]); err != nil {
			return nil, n + n1, err
		}
		n += n1
	}
	return v, n, nil
}

func sizeVector(v []float32) (size int) {
	size = varint.PositiveInt.Size(len(v))
	for _, f := range v {
		size += varint.Float32.Size(f)
	}
	return size
}

func marshalStringMap(m map[string]string, bs []byte) (n int) {
	n = varint.PositiveInt.Marshal(len(m), bs)
	for _, key := range sortedKeys(m) {
		n += ord.String.Marshal(key, bs[n:])
		n += ord.String.Marshal(m[key], bs[n:])
	}
	return n
}

func unmarshalStringMap(bs []byte) (m map[string]string, n int, err error) {
	length, n, err := varint.PositiveInt.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	m = make(map[string]string, length)
	var (
		key, value string
		n1         int
	)
	for i := 0; i < length; i++ {
		if key, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n + n1, err
		}
		n += n1
		if value, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n + n1, err
		}
		n += n1
		m[key] = value
	}
	return m, n, nil
}

// sortedKeys keeps map encoding deterministic so byte-identical records
// serialize to byte-identical values.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func sizeStringMap(m map[string]string) (size int) {
	size = varint.PositiveInt.Size(len(m))
	for key, value := range m {
		size += ord.String.Size(key)
		size += ord.String.Size(value)
	}
	return size
}
