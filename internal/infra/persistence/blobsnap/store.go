// Package blobsnap persists the registry graph as sequenced JSON snapshots
// in a blob store. The newest snapshot is loaded on open; each transaction
// writes a new snapshot before it commits and the oldest beyond the retention
// count are pruned.
package blobsnap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"treeregistry/internal/blob/core"
	"treeregistry/internal/infra/persistence/memory"
	"treeregistry/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

const (
	// Prefix is the key prefix every snapshot is written under.
	Prefix = "snapshots/"
	// DefaultRetain is the number of snapshots kept when Options.Retain is zero.
	DefaultRetain = 5

	formatVersion = "1"
	keyTimeLayout = "20060102T150405.000000000Z"
)

// Options tunes snapshot retention.
type Options struct {
	Retain int
}

// Store persists state to a blob store while reusing the in-memory implementation for transactions.
type Store struct {
	*memory.Store
	blobs  core.Store
	retain int
	mu     sync.Mutex
	seq    uint64
}

// NewStore loads the newest snapshot from blobs, if any, and returns a store
// that snapshots after every successful transaction.
func NewStore(ctx context.Context, blobs core.Store, engine *domain.RulesEngine, opts Options) (*Store, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob store required")
	}
	retain := opts.Retain
	if retain <= 0 {
		retain = DefaultRetain
	}
	s := &Store{Store: memory.NewStore(engine), blobs: blobs, retain: retain}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	infos, err := s.blobs.List(ctx, Prefix)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	if len(infos) == 0 {
		return nil
	}
	infos = ordered(infos)
	latest := infos[len(infos)-1]
	s.seq = keySequence(latest.Key)
	_, rc, err := s.blobs.Get(ctx, latest.Key)
	if err != nil {
		return fmt.Errorf("get snapshot %s: %w", latest.Key, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", latest.Key, err)
	}
	var snapshot memory.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", latest.Key, err)
	}
	s.ImportState(snapshot)
	return nil
}

// RunInTransaction applies fn and writes a new snapshot before the change
// becomes visible; a failed write discards the transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	now := s.NowFunc()()
	return s.Store.RunAndPersist(ctx, fn, func(ctx context.Context, snapshot memory.Snapshot) error {
		return s.persist(ctx, snapshot, now)
	})
}

func (s *Store) persist(ctx context.Context, snapshot memory.Snapshot, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	seq := s.seq + 1
	key := snapshotKey(seq, now)
	_, err = s.blobs.Put(ctx, key, bytes.NewReader(data), core.PutOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"format-version": formatVersion,
			"sequence":       strconv.FormatUint(seq, 10),
			"trees":          strconv.Itoa(len(snapshot.Trees)),
		},
	})
	if err != nil {
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	s.seq = seq
	return s.prune(ctx)
}

func (s *Store) prune(ctx context.Context) error {
	infos, err := s.blobs.List(ctx, Prefix)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	infos = ordered(infos)
	for i := 0; i < len(infos)-s.retain; i++ {
		if _, err := s.blobs.Delete(ctx, infos[i].Key); err != nil {
			return fmt.Errorf("prune snapshot %s: %w", infos[i].Key, err)
		}
	}
	return nil
}

// Snapshots lists the retained snapshot objects, oldest first.
func (s *Store) Snapshots(ctx context.Context) ([]core.Info, error) {
	infos, err := s.blobs.List(ctx, Prefix)
	if err != nil {
		return nil, err
	}
	return ordered(infos), nil
}

// Blobs exposes the backing blob store.
func (s *Store) Blobs() core.Store { return s.blobs }

// snapshotKey leads with a zero-padded sequence so snapshots order by write
// even when the clock stalls or steps back. The timestamp is informational.
func snapshotKey(seq uint64, now time.Time) string {
	return fmt.Sprintf("%s%020d-%s-%s.json", Prefix, seq, now.UTC().Format(keyTimeLayout), uuid.NewString()[:8])
}

// keySequence returns the sequence encoded in key, or 0 for keys written
// before snapshots carried one.
func keySequence(key string) uint64 {
	name := strings.TrimPrefix(key, Prefix)
	head, _, _ := strings.Cut(name, "-")
	seq, err := strconv.ParseUint(head, 10, 64)
	if err != nil {
		return 0
	}
	return seq
}

// ordered sorts snapshot infos oldest first by sequence, then key.
func ordered(infos []core.Info) []core.Info {
	sort.SliceStable(infos, func(i, j int) bool {
		si, sj := keySequence(infos[i].Key), keySequence(infos[j].Key)
		if si != sj {
			return si < sj
		}
		return infos[i].Key < infos[j].Key
	})
	return infos
}
