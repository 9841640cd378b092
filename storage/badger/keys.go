package badger

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Key prefixes for different data types
const (
	documentPrefix          = "doc"
	documentNamespacePrefix = "docns"
	documentUploaderPrefix  = "docup"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentPrefix, id))
}

// makeNamespaceKey generates a composite key for the namespace index.
// Format: prefix:namespace\x00id
func makeNamespaceKey(namespace, id string) []byte {
	return append(makePartialNamespaceKey(namespace), id...)
}

// makePartialNamespaceKey generates a partial key for namespace scans.
// The NUL terminator keeps "tenant" from matching "tenant:other".
func makePartialNamespaceKey(namespace string) []byte {
	return []byte(documentNamespacePrefix + ":" + namespace + "\x00")
}

// makeUploaderKey generates a composite key for the uploader index.
// Format: prefix:uploader\x00timestamp id
func makeUploaderKey(uploadedBy string, uploadedAt time.Time, id string) []byte {
	prefix := makePartialUploaderKey(uploadedBy)
	buf := make([]byte, len(prefix)+8+len(id))
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(uploadedAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], id)
	return buf
}

// makePartialUploaderKey generates a partial key for uploader scans.
// The NUL terminator keeps "bob" from matching "bobby".
func makePartialUploaderKey(uploadedBy string) []byte {
	return []byte(documentUploaderPrefix + ":" + uploadedBy + "\x00")
}

// makeCheckpointKey generates a key for processor checkpoints.
func makeCheckpointKey(processorType string) []byte {
	return []byte(fmt.Sprintf("%s:chkpt", processorType))
}
