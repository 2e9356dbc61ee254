package patient

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is returned for lookups and patches against unknown patient IDs.
var ErrNotFound = errors.New("patient not found")

// Store is the in-memory roster. The whole collection is replaced atomically
// on load; patches mutate existing records in place. A read-write lock
// serializes patches against each other and against concurrent reads.
//
// Delay flags are recomputed against the store clock on every read so the
// open-journey day count stays current without a background job.
type Store struct {
	mu     sync.RWMutex
	byID   map[string]*Patient
	order  []string
	logger *zap.Logger

	// Clock supplies "today" for flag computation. Overridable in tests.
	Clock func() time.Time
}

// NewStore creates an empty roster store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		byID:   make(map[string]*Patient),
		logger: logger,
		Clock:  time.Now,
	}
}

// ReplaceAll swaps the entire roster for the given records, preserving slice
// order as the listing order. Records are not merged with previous state.
func (s *Store) ReplaceAll(patients []*Patient) {
	byID := make(map[string]*Patient, len(patients))
	order := make([]string, 0, len(patients))
	for _, p := range patients {
		if _, dup := byID[p.ID]; !dup {
			order = append(order, p.ID)
		}
		byID[p.ID] = p
	}

	s.mu.Lock()
	s.byID = byID
	s.order = order
	s.mu.Unlock()

	s.logger.Info("roster replaced", zap.Int("patients", len(order)))
}

// Get returns a copy of the record with freshly computed flags, or
// ErrNotFound.
func (s *Store) Get(id string) (*Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.snapshot(p), nil
}

// List returns all records in roster order with freshly computed flags.
func (s *Store) List() []*Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Patient, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.snapshot(s.byID[id]))
	}
	return out
}

// Len returns the number of records in the roster.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Patch applies a partial update to an existing record. Only fields named in
// the patch are overwritten; everything else is untouched. Returns the
// updated record or ErrNotFound.
func (s *Store) Patch(id string, patch Patch) (*Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}

	if o := patch.Oncology; o != nil {
		if o.DiagnosisDate != nil {
			p.Oncology.DiagnosisDate = o.DiagnosisDate
		}
		if o.StagingDate != nil {
			p.Oncology.StagingDate = o.StagingDate
		}
		if o.TreatmentStartDate != nil {
			p.Oncology.TreatmentStartDate = o.TreatmentStartDate
		}
	}
	if c := patch.Care; c != nil {
		if c.LastVisit != nil {
			p.Care.LastVisit = c.LastVisit
		}
		if c.NextVisit != nil {
			p.Care.NextVisit = c.NextVisit
		}
		if c.Status != nil {
			p.Care.Status = c.Status
		}
	}

	s.logger.Info("patient patched", zap.String("patient_id", id))
	return s.snapshot(p), nil
}

// Filter narrows a roster search. Zero values mean "no constraint".
type Filter struct {
	Query       string
	CancerType  string
	Status      string
	OnlyDelayed bool
}

// Search returns records matching the filter, in roster order.
func (s *Store) Search(f Filter) []*Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Patient
	for _, id := range s.order {
		snap := s.snapshot(s.byID[id])
		if f.Query != "" && !strings.Contains(strings.ToLower(snap.Name), strings.ToLower(f.Query)) {
			continue
		}
		if f.CancerType != "" && !strEqualFold(snap.Cancer.Type, f.CancerType) {
			continue
		}
		if f.Status != "" && !strEqualFold(snap.Care.Status, f.Status) {
			continue
		}
		if f.OnlyDelayed && !snap.Flags.AtrasoEstadiamentoTratamento {
			continue
		}
		out = append(out, snap)
	}
	return out
}

// CancerTypes returns the distinct cancer types present in the roster,
// sorted case-insensitively.
func (s *Store) CancerTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var types []string
	for _, p := range s.byID {
		if p.Cancer.Type == nil {
			continue
		}
		t := strings.TrimSpace(*p.Cancer.Type)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			types = append(types, t)
		}
	}
	sort.Slice(types, func(i, j int) bool {
		return strings.ToLower(types[i]) < strings.ToLower(types[j])
	})
	return types
}

// snapshot copies a record and recomputes its flags as of now.
// Callers must hold at least the read lock.
func (s *Store) snapshot(p *Patient) *Patient {
	cp := p.clone()
	cp.Flags = ComputeFlags(cp.Oncology.DiagnosisDate, cp.Oncology.TreatmentStartDate, DateOf(s.Clock()))
	return cp
}

func strEqualFold(v *string, want string) bool {
	return v != nil && strings.EqualFold(*v, want)
}
