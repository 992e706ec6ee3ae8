package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidRef = errors.New("store: invalid ref")

// Area is a logical partition of durable storage.
type Area string

const (
	// AreaLocal survives restarts.
	AreaLocal Area = "local"
	// AreaSession lives as long as the storage backend's session.
	AreaSession Area = "session"
)

// Ref identifies one persisted snapshot.
type Ref struct {
	Area Area
	Key  string
}

// Meta is storage-owned metadata of a snapshot.
type Meta struct {
	SnapshotID string    `json:"snapshot_id,omitempty"`
	ETag       string    `json:"etag,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// Storage loads and saves one encoded snapshot per ref. A missing snapshot
// is reported with ok=false and no error.
type Storage interface {
	Load(ctx context.Context, ref Ref) (data []byte, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, data []byte, meta Meta) (Meta, error)
}

// Watcher reports external writes to a ref. Watch blocks until ctx is done.
type Watcher interface {
	Watch(ctx context.Context, ref Ref, changed func()) error
}

// Identifier is the canonical key of the ref: "<area>/<key>".
func (r Ref) Identifier() (string, error) {
	switch r.Area {
	case AreaLocal, AreaSession:
	default:
		return "", fmt.Errorf("%w: unsupported area %q", ErrInvalidRef, r.Area)
	}
	key := strings.TrimSpace(r.Key)
	if key == "" || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("%w: key %q", ErrInvalidRef, r.Key)
	}
	return fmt.Sprintf("%s/%s", r.Area, key), nil
}

// ETagOf is the content tag storages record for data.
func ETagOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

// stamp fills the storage-owned fields of meta for data.
func stamp(meta Meta, data []byte, now time.Time) Meta {
	out := meta
	out.ETag = ETagOf(data)
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = now.UTC()
	}
	return out
}
