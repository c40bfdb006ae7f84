package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/kuztatygit/lemfi-qa-homework/shared/apperrors"
	"github.com/kuztatygit/lemfi-qa-homework/shared/models"
)

// MemoryStore keeps identities and ledger entries in process memory. It is
// safe for concurrent use and gives the same guarantees as the Postgres store
// within one process.
type MemoryStore struct {
	mu             sync.RWMutex
	identities     map[int64]models.Identity
	emails         map[string]int64
	entries        []models.LedgerEntry
	nextIdentityID int64
	nextEntryID    int64

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identities: make(map[int64]models.Identity),
		emails:     make(map[string]int64),
		entries:    make([]models.LedgerEntry, 0),
		locks:      make(map[int64]*sync.Mutex),
	}
}

func (m *MemoryStore) identityLock(id int64) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

func (m *MemoryStore) Create(_ context.Context, identity *models.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.emails[identity.Email]; taken {
		return apperrors.ErrDuplicateEmail
	}
	m.nextIdentityID++
	identity.ID = m.nextIdentityID
	m.identities[identity.ID] = cloneIdentity(*identity)
	m.emails[identity.Email] = identity.ID
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, id int64) (*models.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	identity, ok := m.identities[id]
	if !ok {
		return nil, fmt.Errorf("identity %d: %w", id, apperrors.ErrNotFound)
	}
	out := cloneIdentity(identity)
	return &out, nil
}

func (m *MemoryStore) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	m.mu.RLock()
	id, ok := m.emails[email]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("identity %q: %w", email, apperrors.ErrNotFound)
	}
	return m.GetByID(ctx, id)
}

// Save replaces the mutable fields of an identity. It waits for the identity
// lock, so it must not be called from inside WithIdentityLock; use the Tx there.
func (m *MemoryStore) Save(_ context.Context, identity *models.Identity) error {
	lock := m.identityLock(identity.ID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(identity)
}

func (m *MemoryStore) saveLocked(identity *models.Identity) error {
	current, ok := m.identities[identity.ID]
	if !ok {
		return fmt.Errorf("identity %d: %w", identity.ID, apperrors.ErrNotFound)
	}
	// Email and credential are fixed at registration.
	updated := cloneIdentity(*identity)
	updated.Email = current.Email
	updated.PasswordHash = current.PasswordHash
	updated.CreatedAt = current.CreatedAt
	m.identities[identity.ID] = updated
	return nil
}

// Append records an entry outside a unit of work. Like Save it waits for the
// owner's identity lock.
func (m *MemoryStore) Append(_ context.Context, entry *models.LedgerEntry) (int64, error) {
	lock := m.identityLock(entry.OwnerID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.identities[entry.OwnerID]; !ok {
		return 0, fmt.Errorf("owner %d: %w", entry.OwnerID, apperrors.ErrNotFound)
	}
	m.nextEntryID++
	entry.ID = m.nextEntryID
	m.entries = append(m.entries, *entry)
	return entry.ID, nil
}

func (m *MemoryStore) ListByOwner(_ context.Context, ownerID int64) ([]models.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.LedgerEntry, 0)
	for _, e := range m.entries {
		if e.OwnerID == ownerID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *MemoryStore) DeleteByID(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.entries {
		if e.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("payment %d: %w", id, apperrors.ErrNotFound)
}

func (m *MemoryStore) WithIdentityLock(ctx context.Context, id int64, fn func(tx Tx, identity *models.Identity) error) error {
	lock := m.identityLock(id)
	lock.Lock()
	defer lock.Unlock()

	identity, err := m.GetByID(ctx, id)
	if err != nil {
		return err
	}

	tx := &memoryTx{store: m}
	if err := fn(tx, identity); err != nil {
		return err
	}
	return tx.commit()
}

func (m *MemoryStore) Close() error { return nil }

// memoryTx buffers writes until commit so that a failing function leaves no
// partial state behind.
type memoryTx struct {
	store      *MemoryStore
	entries    []models.LedgerEntry
	identities []models.Identity
}

func (t *memoryTx) AppendEntry(_ context.Context, entry *models.LedgerEntry) (int64, error) {
	t.store.mu.Lock()
	t.store.nextEntryID++
	entry.ID = t.store.nextEntryID
	t.store.mu.Unlock()

	t.entries = append(t.entries, *entry)
	return entry.ID, nil
}

func (t *memoryTx) SaveIdentity(_ context.Context, identity *models.Identity) error {
	t.identities = append(t.identities, cloneIdentity(*identity))
	return nil
}

func (t *memoryTx) commit() error {
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, identity := range t.identities {
		if _, ok := m.identities[identity.ID]; !ok {
			return fmt.Errorf("identity %d: %w", identity.ID, apperrors.ErrNotFound)
		}
	}
	for _, e := range t.entries {
		if _, ok := m.identities[e.OwnerID]; !ok {
			return fmt.Errorf("owner %d: %w", e.OwnerID, apperrors.ErrNotFound)
		}
	}
	for i := range t.identities {
		if err := m.saveLocked(&t.identities[i]); err != nil {
			return err
		}
	}
	m.entries = append(m.entries, t.entries...)
	return nil
}

func cloneIdentity(i models.Identity) models.Identity {
	out := i
	if i.FirstName != nil {
		v := *i.FirstName
		out.FirstName = &v
	}
	if i.Surname != nil {
		v := *i.Surname
		out.Surname = &v
	}
	if i.PersonalID != nil {
		v := *i.PersonalID
		out.PersonalID = &v
	}
	return out
}

// compile-time checks
var (
	_ Store = (*MemoryStore)(nil)
	_ Tx    = (*memoryTx)(nil)
)
