package repository

import (
	"cmp"
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/okian/league/internal/domain/model"
	"github.com/okian/league/pkg/logger"
	"github.com/okian/league/pkg/metrics"
)

// Treap-based, in-memory Registry implementation.
//
// Ordering: conservative score DESC, then name ASC (deterministic).
// "less" means ranks earlier, so in-order traversal yields the
// leaderboard from best to worst.

// scoreScale controls fixed-point scaling from float64.
const scoreScale = 1_000_000_000

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	scaled := x * scoreScale
	switch {
	case math.IsNaN(scaled):
		return 0
	case scaled >= math.MaxInt64:
		return math.MaxInt64
	case scaled <= math.MinInt64:
		return math.MinInt64
	}
	return scoreFP(math.Round(scaled))
}

type node struct {
	name  string
	score scoreFP
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aName) should appear before (bScore, bName).
func less(aScore scoreFP, aName string, bScore scoreFP, bName string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aName < bName
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

// namePriority derives a stable heap priority from the name.
func namePriority(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}

func insert(n *node, name string, score scoreFP) *node {
	if n == nil {
		return &node{name: name, score: score, prio: namePriority(name), size: 1}
	}
	if less(score, name, n.score, n.name) {
		n.left = insert(n.left, name, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, name, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, name string, score scoreFP) *node {
	if n == nil {
		return nil
	}
	if score == n.score && name == n.name {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, name, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, name, score)
		}
	} else if less(score, name, n.score, n.name) {
		n.left = deleteNode(n.left, name, score)
	} else {
		n.right = deleteNode(n.right, name, score)
	}
	fix(n)
	return n
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, byName map[string]model.Competitor, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, byName, out)
	if len(*out) < limit {
		if c, ok := byName[n.name]; ok {
			*out = append(*out, Entry{Competitor: c, Score: c.Rating.Conservative()})
		}
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, byName, out)
	}
}

// TreapStore keeps the league in memory. It backs tests and dry runs
// where nothing should touch disk; see Snapshot.
type TreapStore struct {
	mu      sync.RWMutex
	root    *node
	byName  map[string]model.Competitor
	records []model.MatchRecord
	cfg     settings
}

var _ Registry = (*TreapStore)(nil)

// NewTreapStore constructs an empty in-memory registry.
func NewTreapStore(opts ...Option) *TreapStore {
	return &TreapStore{
		byName: make(map[string]model.Competitor),
		cfg:    newSettings(opts),
	}
}

// Snapshot copies every competitor and match record of src into a new
// TreapStore. Records keep their creation order; ratings are the current ones.
func Snapshot(ctx context.Context, src Registry, opts ...Option) (*TreapStore, error) {
	competitors, err := src.List(ctx)
	if err != nil {
		return nil, err
	}
	dst := NewTreapStore(opts...)
	var records []model.MatchRecord
	for _, c := range competitors {
		if _, _, err := dst.Upsert(ctx, c); err != nil {
			return nil, err
		}
		hist, err := src.History(ctx, c.Name)
		if err != nil {
			return nil, err
		}
		records = append(records, hist...)
	}
	slices.SortFunc(records, func(a, b model.MatchRecord) int { return cmp.Compare(a.ID, b.ID) })
	for _, rec := range records {
		challenger := dst.byName[rec.Challenger]
		defender := dst.byName[rec.Defender]
		if _, err := dst.CommitBatch(ctx, challenger, defender, rec); err != nil {
			return nil, fmt.Errorf("snapshot record %d: %w", rec.ID, err)
		}
	}
	dst.cfg.logger.Debug(ctx, "registry snapshot taken",
		logger.Int("competitors", len(competitors)),
		logger.Int("records", len(records)),
	)
	return dst, nil
}

// Upsert implements Registry.Upsert.
func (s *TreapStore) Upsert(ctx context.Context, c model.Competitor) (model.Competitor, bool, error) {
	if err := validateCompetitor(c); err != nil {
		return model.Competitor{}, false, err
	}
	s.mu.Lock()
	if existing, ok := s.byName[c.Name]; ok {
		s.mu.Unlock()
		return existing, false, nil
	}
	s.byName[c.Name] = c
	s.root = insert(s.root, c.Name, toFixedPoint(c.Rating.Conservative()))
	count := len(s.byName)
	s.mu.Unlock()

	metrics.UpdateCompetitors(count)
	return c, true, nil
}

// Get implements Registry.Get.
func (s *TreapStore) Get(_ context.Context, name string) (model.Competitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byName[name]
	if !ok {
		return model.Competitor{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return c, nil
}

// List implements Registry.List.
func (s *TreapStore) List(_ context.Context) ([]model.Competitor, error) {
	s.mu.RLock()
	out := make([]model.Competitor, 0, len(s.byName))
	for _, c := range s.byName {
		out = append(out, c)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b model.Competitor) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out, nil
}

// HasHistory implements Registry.HasHistory.
func (s *TreapStore) HasHistory(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records) > 0, nil
}

// CommitBatch implements Registry.CommitBatch. Both ratings and the record
// become visible together under the write lock.
func (s *TreapStore) CommitBatch(_ context.Context, challenger, defender model.Competitor, rec model.MatchRecord) (model.MatchRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRegistryCommitLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := validateBatch(challenger, defender, rec); err != nil {
		return model.MatchRecord{}, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.cfg.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range []string{challenger.Name, defender.Name} {
		if _, ok := s.byName[name]; !ok {
			return model.MatchRecord{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
	}
	s.setRating(challenger)
	s.setRating(defender)
	rec.ID = int64(len(s.records) + 1)
	s.records = append(s.records, rec)
	return rec, nil
}

// setRating re-keys a competitor in the treap. Kind is never changed.
// Caller holds the write lock.
func (s *TreapStore) setRating(c model.Competitor) {
	old := s.byName[c.Name]
	s.root = deleteNode(s.root, old.Name, toFixedPoint(old.Rating.Conservative()))
	old.Rating = c.Rating
	s.byName[c.Name] = old
	s.root = insert(s.root, old.Name, toFixedPoint(old.Rating.Conservative()))
}

// History implements Registry.History.
func (s *TreapStore) History(_ context.Context, name string) ([]model.MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.byName[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	var out []model.MatchRecord
	for _, r := range s.records {
		if r.Challenger == name {
			out = append(out, r)
		}
	}
	return out, nil
}

// Standings implements Registry.Standings in O(limit + log n).
func (s *TreapStore) Standings(_ context.Context, limit int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRegistryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if limit < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, min(limit, len(s.byName)))
	collectTopN(s.root, limit, s.byName, &out)
	assignRanksWithTies(out)
	return out, nil
}

// Count implements Registry.Count.
func (s *TreapStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return nsize(s.root), nil
}

// Close implements Registry.Close.
func (s *TreapStore) Close() error { return nil }
