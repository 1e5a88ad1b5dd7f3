package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/kbase/core"
	"github.com/poiesic/kbase/storage"
)

// Key prefixes for different data types
const (
	chunkPrefix         = "chk:"
	chunkOwnerPrefix    = "chkown:"
	documentPrefix      = "doc:"
	documentOwnerPrefix = "docown:"
	documentIDSeq       = "docseq"
	chatPrefix          = "chat:"
	chatOwnerPrefix     = "chatown:"
	chatIDSeq           = "chatseq"
)

// appendUint64 writes v in BigEndian order so lexicographic sort works correctly.
func appendUint64(buf []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(buf, v)
}

// idFromKeySuffix decodes the trailing BigEndian ID of an index key.
func idFromKeySuffix(suffix []byte) (core.ID, error) {
	if len(suffix) != 8 {
		return 0, fmt.Errorf("%w: key id is %d bytes", storage.ErrSerializationFailed, len(suffix))
	}
	return core.ID(binary.BigEndian.Uint64(suffix)), nil
}

// makeChunkKey generates a key for a stored chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return appendUint64([]byte(chunkPrefix), uint64(id))
}

// makeChunkOwnerPrefix generates the index prefix for one tenant's chunks.
// Format: prefix:user_id:
func makeChunkOwnerPrefix(userID string) []byte {
	return []byte(chunkOwnerPrefix + userID + ":")
}

// makeChunkOwnerKey generates a composite key for the tenant index.
// Format: prefix:user_id:chunkID
func makeChunkOwnerKey(userID string, id core.ID) []byte {
	return appendUint64(makeChunkOwnerPrefix(userID), uint64(id))
}

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return appendUint64([]byte(documentPrefix), uint64(id))
}

// makeOwnerPrefix generates the partial key of an owner time index.
// Format: prefix ownerID
func makeOwnerPrefix(prefix string, owner core.ID) []byte {
	return appendUint64([]byte(prefix), uint64(owner))
}

// makeOwnerTimeKey generates a composite key for an owner time index.
// Format: prefix ownerID timestamp id
func makeOwnerTimeKey(prefix string, owner core.ID, timestamp time.Time, id core.ID) []byte {
	buf := makeOwnerPrefix(prefix, owner)
	buf = appendUint64(buf, uint64(timestamp.UnixMicro()))
	return appendUint64(buf, uint64(id))
}

// makeOwnerSeekEnd generates the largest key of an owner time index, the
// starting point for reverse iteration.
func makeOwnerSeekEnd(prefix string, owner core.ID) []byte {
	buf := makeOwnerPrefix(prefix, owner)
	buf = appendUint64(buf, ^uint64(0))
	return appendUint64(buf, ^uint64(0))
}

// makeChatKey generates a key for a chat exchange by ID.
func makeChatKey(id core.ID) []byte {
	return appendUint64([]byte(chatPrefix), uint64(id))
}
