package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/coursefinder/core"
)

// Key prefixes for different data types
const (
	catalogRecordPrefix = "catrec:"
	catalogIdentPrefix  = "catid:"
	catalogIDSeq        = "catrecseq"
	annotationPrefix    = "annrec:"
)

// makeCatalogKey generates a key for a catalog entry by insertion sequence.
// BigEndian so lexicographic iteration yields insertion order.
func makeCatalogKey(seq uint64) []byte {
	buf := make([]byte, len(catalogRecordPrefix)+8)
	offset := copy(buf, catalogRecordPrefix)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeCatalogIdentKey generates the identifier index key used to detect
// refreshed entries for the same course.
func makeCatalogIdentKey(identifier string) []byte {
	return []byte(catalogIdentPrefix + identifier)
}

// makeAnnotationKey generates a key for a cached annotation by course cache key.
func makeAnnotationKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s%d", annotationPrefix, id))
}
