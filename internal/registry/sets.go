package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"recobot/internal/reco"
	"recobot/internal/storage"
	logx "recobot/pkg/logx"
)

// RecommendationSet is a named list of weighted sources. Creator is empty for
// sets that were provisioned by configuration or hand edits.
type RecommendationSet struct {
	Name    string
	Creator string
	Sources []reco.LocatorSpec
}

type setRecord struct {
	Creator *string            `json:"creator"`
	Sources []reco.LocatorSpec `json:"sources"`
	// Playlists is the older key for Sources; read, never written.
	Playlists []reco.LocatorSpec `json:"playlists,omitempty"`
}

const DefaultSetName = "Default"

// DefaultSet is provisioned when no set document exists.
func DefaultSet() RecommendationSet {
	l, _ := reco.ParseLocator("https://y.qq.com/n/ryqq_v2/playlist/7671500210|1")
	return RecommendationSet{Name: DefaultSetName, Sources: []reco.LocatorSpec{l}}
}

type SetOptions struct {
	Format string
	// Seed is written when the document does not exist yet.
	Seed []RecommendationSet
}

// SetRegistry is the durable name -> RecommendationSet mapping.
//
// Readers get an immutable snapshot; writers are serialised and persist the
// whole document before the new snapshot becomes visible.
type SetRegistry struct {
	writeMu sync.Mutex
	doc     document
	seed    []RecommendationSet

	mu   sync.RWMutex
	sets map[string]RecommendationSet
}

func NewSetRegistry(store storage.Store, opt SetOptions, log logx.Logger) *SetRegistry {
	if log.IsZero() {
		log = logx.Nop()
	}
	seed := opt.Seed
	if seed == nil {
		seed = []RecommendationSet{DefaultSet()}
	}
	return &SetRegistry{
		doc:  document{name: storage.DocSets, store: store, format: opt.Format, log: log},
		seed: seed,
		sets: map[string]RecommendationSet{},
	}
}

// Load replaces the in-memory registry with the persisted document.
//
// A missing document is created from the seed. A malformed one leaves the
// seed in memory and the error is returned for reporting; Create and Delete
// fail with ErrMalformedDocument until a reload reads valid content. changed is false when the content is what this process last
// read or wrote.
func (r *SetRegistry) Load(ctx context.Context) (changed bool, err error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	b, changed, err := r.doc.read(ctx)
	switch {
	case isNotFound(err):
		next := seedMap(r.seed)
		if err := r.doc.write(ctx, encodeSets(next)); err != nil {
			return false, err
		}
		r.swap(next)
		r.doc.log.Info("recommendation sets provisioned", logx.Int("sets", len(next)))
		return true, nil
	case err != nil:
		return false, err
	case !changed:
		return false, nil
	}

	var raw map[string]setRecord
	if err := r.doc.decode(b, &raw); err != nil {
		r.doc.log.Warn("recommendation set document rejected; using defaults, writes disabled until fixed", logx.Err(err))
		r.swap(seedMap(r.seed))
		return true, err
	}
	r.doc.seen(b)
	r.swap(decodeSets(raw, r.doc.log))
	return true, nil
}

func (r *SetRegistry) swap(next map[string]RecommendationSet) {
	r.mu.Lock()
	r.sets = next
	r.mu.Unlock()
}

func (r *SetRegistry) snapshot() map[string]RecommendationSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sets
}

func (r *SetRegistry) Get(name string) (RecommendationSet, bool) {
	s, ok := r.snapshot()[name]
	return s, ok
}

// List returns every set ordered by name.
func (r *SetRegistry) List() []RecommendationSet {
	cur := r.snapshot()
	out := make([]RecommendationSet, 0, len(cur))
	for _, name := range slices.Sorted(maps.Keys(cur)) {
		out = append(out, cur[name])
	}
	return out
}

// Create adds a new set. Invalid locators are dropped; a set with no valid
// source at all is rejected with reco.ErrInvalidLocator.
func (r *SetRegistry) Create(ctx context.Context, name, creator string, sources []reco.LocatorSpec) (RecommendationSet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return RecommendationSet{}, fmt.Errorf("%w: empty name", reco.ErrInvalidLocator)
	}
	valid := reco.FilterValid(sources, r.doc.log)
	if len(valid) == 0 {
		return RecommendationSet{}, fmt.Errorf("%w: set %q has no usable source", reco.ErrInvalidLocator, name)
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	cur := r.snapshot()
	if _, exists := cur[name]; exists {
		return RecommendationSet{}, fmt.Errorf("%w: %q", ErrDuplicateSetName, name)
	}
	set := RecommendationSet{Name: name, Creator: creator, Sources: slices.Clone(valid)}
	next := maps.Clone(cur)
	next[name] = set
	if err := r.doc.write(ctx, encodeSets(next)); err != nil {
		return RecommendationSet{}, err
	}
	r.swap(next)
	return set, nil
}

// Delete removes a set. Only its creator or an administrator may do so; sets
// without a creator are administrator-only.
func (r *SetRegistry) Delete(ctx context.Context, name, actor string, admin bool) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	cur := r.snapshot()
	set, ok := cur[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSetName, name)
	}
	if !admin && (set.Creator == "" || set.Creator != actor) {
		return fmt.Errorf("%w: %q belongs to %q", ErrPermissionDenied, name, set.Creator)
	}
	next := maps.Clone(cur)
	delete(next, name)
	if err := r.doc.write(ctx, encodeSets(next)); err != nil {
		return err
	}
	r.swap(next)
	return nil
}

func seedMap(seed []RecommendationSet) map[string]RecommendationSet {
	m := make(map[string]RecommendationSet, len(seed))
	for _, s := range seed {
		m[s.Name] = s
	}
	return m
}

func decodeSets(raw map[string]setRecord, log logx.Logger) map[string]RecommendationSet {
	out := make(map[string]RecommendationSet, len(raw))
	for name, rec := range raw {
		src := rec.Sources
		if len(src) == 0 {
			src = rec.Playlists
		}
		set := RecommendationSet{Name: name, Sources: reco.FilterValid(src, log.With(logx.String("set", name)))}
		if rec.Creator != nil {
			set.Creator = *rec.Creator
		}
		out[name] = set
	}
	return out
}

func encodeSets(m map[string]RecommendationSet) map[string]setRecord {
	out := make(map[string]setRecord, len(m))
	for name, s := range m {
		rec := setRecord{Sources: s.Sources}
		if rec.Sources == nil {
			rec.Sources = []reco.LocatorSpec{}
		}
		if s.Creator != "" {
			c := s.Creator
			rec.Creator = &c
		}
		out[name] = rec
	}
	return out
}

// MarshalJSON is used by the ops endpoint and the check command.
func (s RecommendationSet) MarshalJSON() ([]byte, error) {
	refs := make([]string, len(s.Sources))
	for i, l := range s.Sources {
		refs[i] = l.Compact()
	}
	return json.Marshal(struct {
		Name    string   `json:"name"`
		Creator string   `json:"creator,omitempty"`
		Sources []string `json:"sources"`
	}{s.Name, s.Creator, refs})
}
