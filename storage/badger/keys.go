package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/storyowl/storyowl/core"
)

// Key prefixes for different data types
const (
	itemPrefix        = "item"
	itemSourcePrefix  = "itemsrc"
	itemRecencyPrefix = "itemrec"
	profilePrefix     = "prof"
	sessionPrefix     = "sess"
)

// makeItemKey generates a key for an item by ID.
func makeItemKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", itemPrefix, id))
}

// makeItemSourceKey generates a key for the source-id lookup index.
func makeItemSourceKey(sourceId string) []byte {
	return []byte(itemSourcePrefix + ":" + sourceId)
}

// makeItemRecencyKey generates a composite key for the recency index.
// Format: prefix:timestamp:id, written BigEndian so lexicographic iteration
// visits items in insertion order.
func makeItemRecencyKey(insertedAt time.Time, id core.ID) []byte {
	prefix := itemRecencyPrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(insertedAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeProfileKey generates a key for a user profile.
func makeProfileKey(userId string) []byte {
	return []byte(profilePrefix + ":" + userId)
}

// makeSessionKey generates a key for a session's continuation state.
// UserKey and SessionKey never contain "::" (session keys are UUIDs,
// user keys are account ids), so the composite is unambiguous.
func makeSessionKey(userKey, sessionKey string) []byte {
	return []byte(sessionPrefix + ":" + userKey + "::" + sessionKey)
}
