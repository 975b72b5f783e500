package service_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/commercehq/staff-access-service/internal/domain"
	"github.com/commercehq/staff-access-service/internal/repository"
)

// fixture bundles in-memory implementations of the repository interfaces so
// service tests can exercise full flows without a database.
type fixture struct {
	staff    *fakeStaffRepo
	sessions *fakeSessionRepo
	activity *fakeActivityRepo
	cache    *fakeSessionCache
}

func newFixture() *fixture {
	staff := &fakeStaffRepo{
		byID:    map[string]*domain.StaffUser{},
		rolesOf: map[string][]string{},
		permsOf: map[string][]string{},
	}
	sessions := &fakeSessionRepo{byID: map[string]*domain.StaffSession{}}
	staff.sessions = sessions
	sessions.staff = staff
	return &fixture{
		staff:    staff,
		sessions: sessions,
		activity: &fakeActivityRepo{},
		cache:    &fakeSessionCache{entries: map[string]*domain.SessionContext{}},
	}
}

func (f *fixture) addStaff(id, name, email, hash string, active bool, roles, perms []string) {
	f.staff.byID[id] = &domain.StaffUser{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsActive:     active,
	}
	f.staff.rolesOf[id] = roles
	f.staff.permsOf[id] = perms
}

type fakeStaffRepo struct {
	mu       sync.Mutex
	byID     map[string]*domain.StaffUser
	rolesOf  map[string][]string
	permsOf  map[string][]string
	sessions *fakeSessionRepo
	// knownRoles, when set, makes AssignRole behave like the real foreign
	// key on staff_roles.role_id.
	knownRoles map[string]bool
}

func (r *fakeStaffRepo) Create(_ context.Context, staff *domain.StaffUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if strings.EqualFold(existing.Email, staff.Email) {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	staff.ID = "staff-" + staff.Email
	staff.CreatedAt = time.Now()
	staff.UpdatedAt = staff.CreatedAt
	r.byID[staff.ID] = staff
	return nil
}

func (r *fakeStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	staff, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *staff
	return &copied, nil
}

func (r *fakeStaffRepo) access(staff *domain.StaffUser) *domain.StaffAccess {
	return &domain.StaffAccess{
		StaffUser:   *staff,
		Roles:       append([]string{}, r.rolesOf[staff.ID]...),
		Permissions: append([]string{}, r.permsOf[staff.ID]...),
	}
}

func (r *fakeStaffRepo) GetAccessByEmail(_ context.Context, email string) (*domain.StaffAccess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, staff := range r.byID {
		if strings.EqualFold(staff.Email, email) {
			return r.access(staff), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeStaffRepo) GetAccessByID(_ context.Context, id string) (*domain.StaffAccess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	staff, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r.access(staff), nil
}

func (r *fakeStaffRepo) List(_ context.Context, _ repository.StaffFilter) ([]domain.StaffUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.StaffUser
	for _, staff := range r.byID {
		result = append(result, *staff)
	}
	return result, nil
}

func (r *fakeStaffRepo) AssignRole(_ context.Context, staffID, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.knownRoles != nil && !r.knownRoles[roleID] {
		return &pgconn.PgError{Code: "23503"}
	}
	for _, existing := range r.rolesOf[staffID] {
		if existing == roleID {
			return nil
		}
	}
	r.rolesOf[staffID] = append(r.rolesOf[staffID], roleID)
	return nil
}

func (r *fakeStaffRepo) RecordLoginFailure(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	staff, ok := r.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	staff.FailedLoginAttempts++
	now := time.Now()
	staff.LastFailedLoginAt = &now
	return nil
}

func (r *fakeStaffRepo) RecordLoginSuccess(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	staff, ok := r.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	staff.FailedLoginAttempts = 0
	now := time.Now()
	staff.LastLoginAt = &now
	if staff.PasswordChangedAt == nil {
		staff.PasswordChangedAt = &now
	}
	return nil
}

func (r *fakeStaffRepo) StampLogout(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	staff, ok := r.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now()
	staff.LastLogoutAt = &now
	return nil
}

func (r *fakeStaffRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	staff, ok := r.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	staff.PasswordHash = hash
	now := time.Now()
	staff.PasswordChangedAt = &now
	return nil
}

func (r *fakeStaffRepo) ChangePasswordRevokingSessions(ctx context.Context, staffID, keepSessionID, hash string) ([]string, error) {
	if err := r.UpdatePasswordHash(ctx, staffID, hash); err != nil {
		return nil, err
	}
	return r.sessions.revokeWhere(staffID, keepSessionID), nil
}

func (r *fakeStaffRepo) Deactivate(_ context.Context, id string) ([]string, error) {
	r.mu.Lock()
	staff, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return nil, pgx.ErrNoRows
	}
	staff.IsActive = false
	r.mu.Unlock()
	return r.sessions.revokeWhere(id, ""), nil
}

type fakeSessionRepo struct {
	mu    sync.Mutex
	byID  map[string]*domain.StaffSession
	staff *fakeStaffRepo
}

func (r *fakeSessionRepo) Create(_ context.Context, session *domain.StaffSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session.CreatedAt = time.Now()
	copied := *session
	r.byID[session.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id string) (*domain.StaffSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *session
	return &copied, nil
}

func (r *fakeSessionRepo) GetRecordByToken(_ context.Context, token string) (*repository.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.byID {
		if session.Token != token {
			continue
		}
		staff, ok := r.staff.byID[session.StaffID]
		if !ok {
			return nil, pgx.ErrNoRows
		}
		return &repository.SessionRecord{
			SessionID:   session.ID,
			StaffID:     staff.ID,
			Name:        staff.Name,
			Email:       staff.Email,
			StaffActive: staff.IsActive,
			Roles:       append([]string{}, r.staff.rolesOf[staff.ID]...),
			Permissions: append([]string{}, r.staff.permsOf[staff.ID]...),
			ExpiresAt:   session.ExpiresAt,
			RevokedAt:   session.RevokedAt,
		}, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeSessionRepo) Revoke(_ context.Context, id string) (*domain.StaffSession, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.byID[id]
	if !ok {
		return nil, false, pgx.ErrNoRows
	}
	if session.RevokedAt != nil {
		copied := *session
		return &copied, true, nil
	}
	now := time.Now()
	session.RevokedAt = &now
	copied := *session
	return &copied, false, nil
}

func (r *fakeSessionRepo) ListByStaff(_ context.Context, staffID string) ([]domain.StaffSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.StaffSession
	for _, session := range r.byID {
		if session.StaffID == staffID {
			result = append(result, *session)
		}
	}
	return result, nil
}

func (r *fakeSessionRepo) revokeWhere(staffID, keepSessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var tokens []string
	for _, session := range r.byID {
		if session.StaffID != staffID || session.ID == keepSessionID || session.RevokedAt != nil {
			continue
		}
		session.RevokedAt = &now
		tokens = append(tokens, session.Token)
	}
	return tokens
}

type fakeActivityRepo struct {
	mu      sync.Mutex
	entries []domain.ActivityEntry
	failing bool
}

func (r *fakeActivityRepo) Insert(_ context.Context, entry *domain.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return pgx.ErrTxClosed
	}
	entry.ID = int64(len(r.entries) + 1)
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeActivityRepo) List(_ context.Context, filter domain.ActivityFilter) ([]domain.ActivityEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.ActivityEntry
	for _, entry := range r.entries {
		if filter.StaffID != nil && (entry.StaffID == nil || *entry.StaffID != *filter.StaffID) {
			continue
		}
		if filter.Action != nil && !strings.Contains(entry.Action, *filter.Action) {
			continue
		}
		result = append(result, entry)
	}
	return result, nil
}

func (r *fakeActivityRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []string
	for _, entry := range r.entries {
		result = append(result, entry.Action)
	}
	return result
}

type fakeSessionCache struct {
	mu      sync.Mutex
	entries map[string]*domain.SessionContext
}

func (c *fakeSessionCache) Get(_ context.Context, token string) (*domain.SessionContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sessCtx, ok := c.entries[token]
	return sessCtx, ok
}

func (c *fakeSessionCache) Set(_ context.Context, token string, sessCtx *domain.SessionContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[token] = sessCtx
}

func (c *fakeSessionCache) Purge(_ context.Context, tokens ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, token := range tokens {
		delete(c.entries, token)
	}
}
