package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/commercehq/staff-access-service/internal/auth"
	"github.com/commercehq/staff-access-service/internal/domain"
	"github.com/commercehq/staff-access-service/internal/events"
	"github.com/commercehq/staff-access-service/internal/repository"
	"github.com/commercehq/staff-access-service/internal/service"
	"github.com/commercehq/staff-access-service/internal/worker"
)

func newStaffService(fx *fixture, rbac *fakeRBACRepo) *service.StaffService {
	dispatcher := events.NewInMemoryDispatcher()
	writer := service.NewAuditWriter(fx.activity, zap.NewNop())
	worker.StartAuditWorker(dispatcher, writer)
	return service.NewStaffService(service.StaffDependencies{
		StaffRepo:    fx.staff,
		RBACRepo:     rbac,
		SessionRepo:  fx.sessions,
		ActivityRepo: fx.activity,
		Cache:        fx.cache,
		Audit:        service.NewAuditLogger(dispatcher, zap.NewNop()),
	})
}

func TestCreateStaff(t *testing.T) {
	fx := newFixture()
	rbac := newFakeRBACRepo()
	role := &domain.Role{Name: "support"}
	require.NoError(t, rbac.CreateRole(context.Background(), role))
	fx.staff.knownRoles = map[string]bool{role.ID: true}
	svc := newStaffService(fx, rbac)

	access, err := svc.CreateStaff(context.Background(), adminActor(),
		"Ada Lovelace", "ada@example.com", "initial password", []string{role.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, access.ID)
	assert.True(t, access.IsActive)
	assert.True(t, auth.VerifyPassword(access.PasswordHash, "initial password"))
	assert.Contains(t, fx.activity.actions(), domain.ActionStaffCreated)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.CreateStaff(context.Background(), adminActor(),
			"Other Ada", "ADA@example.com", "another password", nil)
		assertErrorCode(t, err, "CONFLICT")
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := svc.CreateStaff(context.Background(), adminActor(),
			"Bob", "bob@example.com", "some password", []string{"no-such-role"})
		assertErrorCode(t, err, "NOT_FOUND")
	})

	t.Run("validation", func(t *testing.T) {
		cases := map[string]struct{ name, email, password string }{
			"blank name":     {"  ", "x@example.com", "long enough"},
			"blank email":    {"X", "", "long enough"},
			"bad email":      {"X", "not-an-email", "long enough"},
			"short password": {"X", "x@example.com", "short"},
		}
		for name, tc := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := svc.CreateStaff(context.Background(), adminActor(), tc.name, tc.email, tc.password, nil)
				assertErrorCode(t, err, "VALIDATION_FAILED")
			})
		}
	})
}

func TestGetStaff(t *testing.T) {
	fx := newFixture()
	fx.addStaff("staff-1", "Ada", "ada@example.com", "hash", true, []string{"support"}, []string{"orders:read"})
	svc := newStaffService(fx, newFakeRBACRepo())

	access, err := svc.GetStaff(context.Background(), "staff-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", access.Name)
	assert.Equal(t, []string{"support"}, access.Roles)

	_, err = svc.GetStaff(context.Background(), "ghost")
	assertErrorCode(t, err, "NOT_FOUND")
}

func TestAssignRole(t *testing.T) {
	fx := newFixture()
	rbac := newFakeRBACRepo()
	role := &domain.Role{Name: "manager"}
	require.NoError(t, rbac.CreateRole(context.Background(), role))
	fx.addStaff("staff-1", "Ada", "ada@example.com", "hash", true, nil, nil)
	fx.staff.knownRoles = map[string]bool{role.ID: true}
	svc := newStaffService(fx, rbac)

	require.NoError(t, svc.AssignRole(context.Background(), adminActor(), "staff-1", role.ID))
	// Assigning the same role again is a silent no-op.
	require.NoError(t, svc.AssignRole(context.Background(), adminActor(), "staff-1", role.ID))
	assert.Equal(t, []string{role.ID}, fx.staff.rolesOf["staff-1"])

	err := svc.AssignRole(context.Background(), adminActor(), "staff-1", "no-such-role")
	assertErrorCode(t, err, "NOT_FOUND")
}

func TestDisableStaffRevokesSessions(t *testing.T) {
	fx := newFixture()
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	fx.addStaff("staff-1", "Ada", "ada@example.com", hash, true, nil, nil)

	sessions := newSessionService(t, fx)
	result, err := sessions.Login(context.Background(), "ada@example.com", "correct horse", domain.SessionMetadata{})
	require.NoError(t, err)

	svc := newStaffService(fx, newFakeRBACRepo())
	require.NoError(t, svc.DisableStaff(context.Background(), adminActor(), "staff-1"))
	assert.False(t, fx.staff.byID["staff-1"].IsActive)

	sessCtx, err := sessions.Resolve(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Nil(t, sessCtx, "sessions die with the account")

	err = svc.DisableStaff(context.Background(), adminActor(), "ghost")
	assertErrorCode(t, err, "NOT_FOUND")
}

func TestListSessions(t *testing.T) {
	fx := newFixture()
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	fx.addStaff("staff-1", "Ada", "ada@example.com", hash, true, nil, nil)

	sessions := newSessionService(t, fx)
	first, err := sessions.Login(context.Background(), "ada@example.com", "correct horse", domain.SessionMetadata{})
	require.NoError(t, err)
	_, err = sessions.Login(context.Background(), "ada@example.com", "correct horse", domain.SessionMetadata{})
	require.NoError(t, err)

	firstCtx, err := sessions.Resolve(context.Background(), first.Token)
	require.NoError(t, err)
	require.NoError(t, sessions.Logout(context.Background(), firstCtx.SessionID))

	svc := newStaffService(fx, newFakeRBACRepo())
	list, err := svc.ListSessions(context.Background(), "staff-1")
	require.NoError(t, err)
	// Revoked sessions are retained for audit.
	assert.Len(t, list, 2)

	_, err = svc.ListSessions(context.Background(), "ghost")
	assertErrorCode(t, err, "NOT_FOUND")
}

func TestListActivityFilter(t *testing.T) {
	fx := newFixture()
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	fx.addStaff("staff-1", "Ada", "ada@example.com", hash, true, nil, nil)

	sessions := newSessionService(t, fx)
	_, err = sessions.Login(context.Background(), "ada@example.com", "wrong", domain.SessionMetadata{})
	require.Error(t, err)
	_, err = sessions.Login(context.Background(), "ada@example.com", "correct horse", domain.SessionMetadata{})
	require.NoError(t, err)

	svc := newStaffService(fx, newFakeRBACRepo())

	all, err := svc.ListActivity(context.Background(), domain.ActivityFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	action := domain.ActionLoginFailed
	failed, err := svc.ListActivity(context.Background(), domain.ActivityFilter{Action: &action})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	require.NotNil(t, failed[0].StaffID)
	assert.Equal(t, "staff-1", *failed[0].StaffID)
}

var _ repository.StaffRepository = (*fakeStaffRepo)(nil)
var _ repository.SessionRepository = (*fakeSessionRepo)(nil)
var _ repository.ActivityRepository = (*fakeActivityRepo)(nil)
var _ repository.RBACRepository = (*fakeRBACRepo)(nil)
var _ repository.SessionCache = (*fakeSessionCache)(nil)
