package badger

// Key Layout
// ==========
//
// Records and their secondary indexes share one keyspace, separated by a
// short prefix:
//
//	e:<id>                     -> JSON-encoded metadata.Entity
//	o:<owner>:<id>             -> empty (owner index)
//	p:<owner>:<parent>:<id>    -> empty (parent index, parent empty for root)
//
// Queries scan the most selective index prefix and then load records from
// the "e:" namespace within the same read transaction. Owner and parent are
// immutable after insert, so index keys are written once and removed on
// delete.

const (
	prefixEntity = "e:"
	prefixOwner  = "o:"
	prefixParent = "p:"
)

func keyEntity(id string) []byte {
	return []byte(prefixEntity + id)
}

func keyOwnerIndex(owner, id string) []byte {
	return []byte(prefixOwner + owner + ":" + id)
}

func keyOwnerPrefix(owner string) []byte {
	return []byte(prefixOwner + owner + ":")
}

func keyParentIndex(owner, parent, id string) []byte {
	return []byte(prefixParent + owner + ":" + parent + ":" + id)
}

func keyParentPrefix(owner, parent string) []byte {
	return []byte(prefixParent + owner + ":" + parent + ":")
}

// idFromIndexKey extracts the trailing entity id from an index key.
func idFromIndexKey(key, prefix []byte) string {
	return string(key[len(prefix):])
}
