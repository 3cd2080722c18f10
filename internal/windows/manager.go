package windows

import (
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"learnshell/internal/domain"
)

var (
	ErrWindowNotFound     = errors.New("window not found")
	ErrInvalidWindow      = errors.New("invalid window spec")
	ErrDuplicateWindow    = errors.New("window id already used by another kind")
	ErrSearchWindowPinned = errors.New("search window cannot be closed")
	ErrContentMismatch    = errors.New("content does not match window kind")
	ErrStaleRequest       = errors.New("request superseded by a newer one")
)

// Record is one virtual window.
type Record struct {
	ID          string            `json:"id"`
	Kind        domain.WindowKind `json:"type"`
	Content     Content           `json:"content"`
	IsMinimized bool              `json:"isMinimized"`
	IsMaximized bool              `json:"isMaximized"`
	Token       uint64            `json:"token,omitempty"`
}

func (r Record) clone() Record {
	if r.Content != nil {
		r.Content = r.Content.clone()
	}
	return r
}

// Spec describes a window to create. Content may be nil.
type Spec struct {
	ID      string
	Kind    domain.WindowKind
	Content Content
}

// Snapshot is an immutable view of the registry plus the derived views the
// renderer needs.
type Snapshot struct {
	Version        uint64   `json:"version"`
	Windows        []Record `json:"windows"`
	Maximized      *Record  `json:"maximized,omitempty"`
	Tray           []Record `json:"tray"`
	SearchCentered bool     `json:"searchCentered"`
}

// Listener observes registry changes.
type Listener func(Snapshot)

// Manager owns the ordered window registry. All methods are safe for
// concurrent use and each one is atomic with respect to the others.
type Manager struct {
	mu        sync.Mutex
	records   []Record
	version   uint64
	lastToken uint64

	listenerSeq int
	listeners   map[int]Listener
}

// NewManager returns a registry holding only the maximized search window.
func NewManager() *Manager {
	return &Manager{
		records: []Record{{
			ID:          domain.WindowIDSearch,
			Kind:        domain.KindSearch,
			Content:     SearchContent{},
			IsMaximized: true,
		}},
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers fn for change notifications. The returned func removes it.
func (m *Manager) Subscribe(fn Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listenerSeq++
	id := m.listenerSeq
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Create appends a maximized window and demotes every other window. Creating
// an id that already exists with the same kind resets its content, maximizes
// it and invalidates its outstanding request token instead of adding a
// second entry.
func (m *Manager) Create(spec Spec) error {
	content, err := spec.validate()
	if err != nil {
		return err
	}
	return m.mutate(func() error {
		_, err := m.createLocked(spec, content)
		return err
	})
}

// Restart is Create followed by BeginRequest as one atomic step, so no
// completion of an earlier request can land on the reset content.
func (m *Manager) Restart(spec Spec) (uint64, error) {
	content, err := spec.validate()
	if err != nil {
		return 0, err
	}
	var token uint64
	err = m.mutate(func() error {
		index, err := m.createLocked(spec, content)
		if err != nil {
			return err
		}
		token = m.issueLocked(index)
		return nil
	})
	return token, err
}

// Maximize gives id the focus slot and minimizes every other window.
func (m *Manager) Maximize(id string) error {
	return m.mutate(func() error {
		if m.indexOf(id) < 0 {
			return notFound(id)
		}
		m.maximizeLocked(id)
		return nil
	})
}

// Minimize docks id in the tray. Other windows are untouched, so minimizing
// the focused window leaves nothing maximized.
func (m *Manager) Minimize(id string) error {
	return m.mutate(func() error {
		index := m.indexOf(id)
		if index < 0 {
			return notFound(id)
		}
		m.records[index].IsMinimized = true
		m.records[index].IsMaximized = false
		return nil
	})
}

// UpdateContent shallow-merges patch into the window's content.
func (m *Manager) UpdateContent(id string, patch Patch) error {
	return m.mutate(func() error {
		return m.patchLocked(id, patch)
	})
}

// Close removes id from the registry. The search window is pinned.
func (m *Manager) Close(id string) error {
	return m.mutate(func() error {
		index := m.indexOf(id)
		if index < 0 {
			return notFound(id)
		}
		if m.records[index].Kind == domain.KindSearch {
			return ErrSearchWindowPinned
		}
		m.records = append(m.records[:index], m.records[index+1:]...)
		return nil
	})
}

// BeginRequest issues a new token for id. Completions carrying an older
// token are rejected by UpdateIfCurrent.
func (m *Manager) BeginRequest(id string) (uint64, error) {
	var token uint64
	err := m.mutate(func() error {
		index := m.indexOf(id)
		if index < 0 {
			return notFound(id)
		}
		token = m.issueLocked(index)
		return nil
	})
	return token, err
}

// UpdateIfCurrent applies patch only while token is the latest issued for id.
func (m *Manager) UpdateIfCurrent(id string, token uint64, patch Patch) error {
	return m.mutate(func() error {
		index := m.indexOf(id)
		if index < 0 {
			return notFound(id)
		}
		if m.records[index].Token != token {
			return fmt.Errorf("%w: window %q token %d", ErrStaleRequest, id, token)
		}
		return m.patchLocked(id, patch)
	})
}

// IsCurrent reports whether token is still the latest request for id.
func (m *Manager) IsCurrent(id string, token uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	index := m.indexOf(id)
	return index >= 0 && m.records[index].Token == token
}

// Get returns a copy of the window with id.
func (m *Manager) Get(id string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	index := m.indexOf(id)
	if index < 0 {
		return Record{}, false
	}
	return m.records[index].clone(), true
}

// FindByKind returns the first window of kind in registry order.
func (m *Manager) FindByKind(kind domain.WindowKind) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := lo.Find(m.records, func(r Record) bool { return r.Kind == kind })
	if !ok {
		return Record{}, false
	}
	return record.clone(), true
}

// List returns copies of all windows in registry order.
func (m *Manager) List() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked()
}

// Maximized returns the maximized window other than search, if any.
func (m *Manager) Maximized() (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maximizedLocked()
}

// Tray returns the minimized windows other than search.
func (m *Manager) Tray() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trayLocked()
}

// SearchCentered reports whether no window other than search holds the focus slot.
func (m *Manager) SearchCentered() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.maximizedLocked()
	return !ok
}

// Snapshot returns the registry and its derived views at one instant.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) mutate(fn func() error) error {
	m.mu.Lock()
	if err := fn(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.version++
	snapshot := m.snapshotLocked()
	listeners := lo.Values(m.listeners)
	m.mu.Unlock()

	for _, listener := range listeners {
		listener(snapshot)
	}
	return nil
}

func (s Spec) validate() (Content, error) {
	if s.ID == "" || !s.Kind.Valid() {
		return nil, fmt.Errorf("%w: id=%q kind=%q", ErrInvalidWindow, s.ID, s.Kind)
	}
	content := s.Content
	if content == nil {
		content = EmptyContent(s.Kind)
	}
	if content.Variant() != VariantFor(s.Kind) {
		return nil, fmt.Errorf("%w: %s cannot hold %s", ErrContentMismatch, s.Kind, content.Variant())
	}
	return content, nil
}

func (m *Manager) createLocked(spec Spec, content Content) (int, error) {
	index := m.indexOf(spec.ID)
	if index >= 0 {
		if m.records[index].Kind != spec.Kind {
			return -1, fmt.Errorf("%w: %q is %s", ErrDuplicateWindow, spec.ID, m.records[index].Kind)
		}
		m.records[index].Content = content.clone()
		m.issueLocked(index)
	} else {
		m.records = append(m.records, Record{
			ID:      spec.ID,
			Kind:    spec.Kind,
			Content: content.clone(),
		})
		index = len(m.records) - 1
	}
	m.maximizeLocked(spec.ID)
	return index, nil
}

func (m *Manager) issueLocked(index int) uint64 {
	m.lastToken++
	m.records[index].Token = m.lastToken
	return m.lastToken
}

func (m *Manager) maximizeLocked(id string) {
	for i := range m.records {
		focused := m.records[i].ID == id
		m.records[i].IsMaximized = focused
		m.records[i].IsMinimized = !focused
	}
}

func (m *Manager) patchLocked(id string, patch Patch) error {
	index := m.indexOf(id)
	if index < 0 {
		return notFound(id)
	}
	record := &m.records[index]
	if patch == nil {
		return nil
	}
	if patch.Variant() != VariantFor(record.Kind) {
		return fmt.Errorf("%w: %s cannot take %s patch", ErrContentMismatch, record.Kind, patch.Variant())
	}
	current := record.Content
	if current == nil {
		current = EmptyContent(record.Kind)
	}
	record.Content = patch.apply(current)
	return nil
}

func (m *Manager) indexOf(id string) int {
	_, index, ok := lo.FindIndexOf(m.records, func(r Record) bool { return r.ID == id })
	if !ok {
		return -1
	}
	return index
}

func (m *Manager) listLocked() []Record {
	return lo.Map(m.records, func(r Record, _ int) Record { return r.clone() })
}

func (m *Manager) maximizedLocked() (Record, bool) {
	record, ok := lo.Find(m.records, func(r Record) bool {
		return r.IsMaximized && r.Kind != domain.KindSearch
	})
	if !ok {
		return Record{}, false
	}
	return record.clone(), true
}

func (m *Manager) trayLocked() []Record {
	tray := lo.Filter(m.records, func(r Record, _ int) bool {
		return r.IsMinimized && r.Kind != domain.KindSearch
	})
	return lo.Map(tray, func(r Record, _ int) Record { return r.clone() })
}

func (m *Manager) snapshotLocked() Snapshot {
	snapshot := Snapshot{
		Version: m.version,
		Windows: m.listLocked(),
		Tray:    m.trayLocked(),
	}
	if maximized, ok := m.maximizedLocked(); ok {
		snapshot.Maximized = &maximized
	} else {
		snapshot.SearchCentered = true
	}
	return snapshot
}

func notFound(id string) error {
	return fmt.Errorf("%w: %q", ErrWindowNotFound, id)
}
