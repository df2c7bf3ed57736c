package badger

import (
	"encoding/binary"

	"github.com/fred-agent/knowledge-flow/core"
)

// Key prefixes for the four data families. UIDs are encoded BigEndian so
// lexicographic key order matches numeric UID order during iteration.
const (
	contentKeyPrefix  = "doccon:"
	metadataKeyPrefix = "docmet:"
	chunkKeyPrefix    = "docchk:"
	rowKeyPrefix      = "docrow:"
)

func appendUID(buf []byte, uid core.UID) []byte {
	var enc [8]byte
	binary.BigEndian.PutUint64(enc[:], uint64(uid))
	return append(buf, enc[:]...)
}

func appendIndex(buf []byte, index uint32) []byte {
	var enc [4]byte
	binary.BigEndian.PutUint32(enc[:], index)
	return append(buf, enc[:]...)
}

// makeContentKey generates the key holding a document's raw bytes.
func makeContentKey(uid core.UID) []byte {
	return appendUID([]byte(contentKeyPrefix), uid)
}

// makeMetadataKey generates the key holding a document's metadata record.
func makeMetadataKey(uid core.UID) []byte {
	return appendUID([]byte(metadataKeyPrefix), uid)
}

// makeChunkKey generates the composite key for one chunk.
// Format: prefix + uid(8, BE) + chunkId(4, BE)
func makeChunkKey(uid core.UID, chunkID uint32) []byte {
	return appendIndex(makeChunkPrefix(uid), chunkID)
}

// makeChunkPrefix generates the iteration prefix covering a document's chunk set.
func makeChunkPrefix(uid core.UID) []byte {
	return appendUID([]byte(chunkKeyPrefix), uid)
}

// makeRowKey generates the composite key for one tabular row.
// Format: prefix + uid(8, BE) + rowIndex(4, BE)
func makeRowKey(uid core.UID, rowIndex uint32) []byte {
	return appendIndex(makeRowPrefix(uid), rowIndex)
}

// makeRowPrefix generates the iteration prefix covering a document's row set.
func makeRowPrefix(uid core.UID) []byte {
	return appendUID([]byte(rowKeyPrefix), uid)
}
