package musehub

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// CommitID computes the stable content hash of a commit's identity
// fields: parents, snapshot, message, author, and timestamp. Two commits
// with identical inputs collide deliberately — push idempotency (persist
// idempotently, skip those already present) relies on this.
func CommitID(parentIDs []string, snapshotID, message, author string, timestamp time.Time) string {
	sorted := append([]string(nil), parentIDs...)
	sort.Strings(sorted)

	h := sha256.New()
	fmt.Fprintf(h, "parents:%s\n", strings.Join(sorted, ","))
	fmt.Fprintf(h, "snapshot:%s\n", snapshotID)
	fmt.Fprintf(h, "message:%s\n", message)
	fmt.Fprintf(h, "author:%s\n", author)
	fmt.Fprintf(h, "timestamp:%d\n", timestamp.UnixNano())

	return hex.EncodeToString(h.Sum(nil))
}

// ObjectID computes the content hash of a binary artefact's bytes.
func ObjectID(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
