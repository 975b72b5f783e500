package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/commercehq/staff-access-service/internal/domain"
	"github.com/commercehq/staff-access-service/internal/events"
	"github.com/commercehq/staff-access-service/internal/service"
	"github.com/commercehq/staff-access-service/internal/worker"
)

// fakeRBACRepo mimics the Postgres constraint behaviour the service maps to
// domain errors: unique violations on names and codes, foreign key
// violations on unknown permission ids.
type fakeRBACRepo struct {
	mu          sync.Mutex
	nextID      int
	roles       map[string]*domain.Role       // by id
	permissions map[string]*domain.Permission // by id
	grants      map[string]map[string]bool    // role id -> permission id set
}

func newFakeRBACRepo() *fakeRBACRepo {
	return &fakeRBACRepo{
		roles:       map[string]*domain.Role{},
		permissions: map[string]*domain.Permission{},
		grants:      map[string]map[string]bool{},
	}
}

func (r *fakeRBACRepo) id(prefix string) string {
	r.nextID++
	return fmt.Sprintf("%s-%d", prefix, r.nextID)
}

func (r *fakeRBACRepo) CreateRole(_ context.Context, role *domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.roles {
		if existing.Name == role.Name {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	role.ID = r.id("role")
	copied := *role
	r.roles[role.ID] = &copied
	r.grants[role.ID] = map[string]bool{}
	return nil
}

func (r *fakeRBACRepo) GetRoleByID(_ context.Context, id string) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *role
	return &copied, nil
}

func (r *fakeRBACRepo) ListRoles(_ context.Context) ([]domain.RoleWithPermissions, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.RoleWithPermissions
	for id, role := range r.roles {
		var codes []string
		for permID := range r.grants[id] {
			codes = append(codes, r.permissions[permID].Code)
		}
		sort.Strings(codes)
		result = append(result, domain.RoleWithPermissions{Role: *role, Permissions: codes})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *fakeRBACRepo) CreatePermission(_ context.Context, permission *domain.Permission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.permissions {
		if existing.Code == permission.Code {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	permission.ID = r.id("perm")
	copied := *permission
	r.permissions[permission.ID] = &copied
	return nil
}

func (r *fakeRBACRepo) GetPermissionByCode(_ context.Context, code string) (*domain.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, permission := range r.permissions {
		if permission.Code == code {
			copied := *permission
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRBACRepo) ListPermissions(_ context.Context) ([]domain.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Permission
	for _, permission := range r.permissions {
		result = append(result, *permission)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (r *fakeRBACRepo) AddRolePermission(_ context.Context, roleID, permissionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.permissions[permissionID]; !ok {
		return &pgconn.PgError{Code: "23503"}
	}
	r.grants[roleID][permissionID] = true
	return nil
}

func (r *fakeRBACRepo) ReplaceRolePermissions(_ context.Context, roleID string, permissionIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := map[string]bool{}
	for _, permissionID := range permissionIDs {
		if _, ok := r.permissions[permissionID]; !ok {
			return &pgconn.PgError{Code: "23503"}
		}
		next[permissionID] = true
	}
	r.grants[roleID] = next
	return nil
}

func (r *fakeRBACRepo) Seed(ctx context.Context, permissions []domain.PermissionSeed, roles []domain.RoleSeed) error {
	idByCode := map[string]string{}
	for _, seed := range permissions {
		existing, err := r.GetPermissionByCode(ctx, seed.Code)
		if err == nil {
			idByCode[seed.Code] = existing.ID
			continue
		}
		permission := &domain.Permission{Code: seed.Code, Description: seed.Description}
		if err := r.CreatePermission(ctx, permission); err != nil {
			return err
		}
		idByCode[seed.Code] = permission.ID
	}
	for _, seed := range roles {
		var roleID string
		r.mu.Lock()
		for id, role := range r.roles {
			if role.Name == seed.Name {
				roleID = id
			}
		}
		r.mu.Unlock()
		if roleID == "" {
			role := &domain.Role{Name: seed.Name, Description: seed.Description}
			if err := r.CreateRole(ctx, role); err != nil {
				return err
			}
			roleID = role.ID
		}
		ids := make([]string, 0, len(seed.Permissions))
		for _, code := range seed.Permissions {
			id, ok := idByCode[code]
			if !ok {
				return fmt.Errorf("role %s references unknown permission code %s", seed.Name, code)
			}
			ids = append(ids, id)
		}
		if err := r.ReplaceRolePermissions(ctx, roleID, ids); err != nil {
			return err
		}
	}
	return nil
}

func newAccessService(fx *fixture, rbac *fakeRBACRepo) *service.AccessService {
	dispatcher := events.NewInMemoryDispatcher()
	writer := service.NewAuditWriter(fx.activity, zap.NewNop())
	worker.StartAuditWorker(dispatcher, writer)
	return service.NewAccessService(rbac, service.NewAuditLogger(dispatcher, zap.NewNop()))
}

func adminActor() *domain.SessionContext {
	return &domain.SessionContext{
		SessionID:   "sess-admin",
		StaffID:     "staff-admin",
		Name:        "Root",
		Email:       "root@example.com",
		Roles:       []string{"super_admin"},
		Permissions: []string{"roles:manage", "roles:read"},
	}
}

func TestCreateRole(t *testing.T) {
	fx := newFixture()
	rbac := newFakeRBACRepo()
	svc := newAccessService(fx, rbac)

	role, err := svc.CreateRole(context.Background(), adminActor(), "  auditor  ", "Read-only audit access")
	require.NoError(t, err)
	assert.Equal(t, "auditor", role.Name)
	assert.NotEmpty(t, role.ID)
	assert.Contains(t, fx.activity.actions(), domain.ActionRoleCreated)

	_, err = svc.CreateRole(context.Background(), adminActor(), "auditor", "duplicate")
	assertErrorCode(t, err, "CONFLICT")

	_, err = svc.CreateRole(context.Background(), adminActor(), "   ", "")
	assertErrorCode(t, err, "VALIDATION_FAILED")
}

func TestCreatePermission(t *testing.T) {
	fx := newFixture()
	rbac := newFakeRBACRepo()
	svc := newAccessService(fx, rbac)

	permission, err := svc.CreatePermission(context.Background(), adminActor(), "refunds:approve", "Approve refunds")
	require.NoError(t, err)
	assert.Equal(t, "refunds:approve", permission.Code)

	_, err = svc.CreatePermission(context.Background(), adminActor(), "refunds:approve", "")
	assertErrorCode(t, err, "CONFLICT")
}

func TestRolePermissionAssignment(t *testing.T) {
	fx := newFixture()
	rbac := newFakeRBACRepo()
	svc := newAccessService(fx, rbac)

	role, err := svc.CreateRole(context.Background(), adminActor(), "auditor", "")
	require.NoError(t, err)
	read, err := svc.CreatePermission(context.Background(), adminActor(), "logs:read", "")
	require.NoError(t, err)
	manage, err := svc.CreatePermission(context.Background(), adminActor(), "roles:manage", "")
	require.NoError(t, err)

	require.NoError(t, svc.AddRolePermission(context.Background(), adminActor(), role.ID, read.ID))

	err = svc.AddRolePermission(context.Background(), adminActor(), "no-such-role", read.ID)
	assertErrorCode(t, err, "NOT_FOUND")
	err = svc.AddRolePermission(context.Background(), adminActor(), role.ID, "no-such-permission")
	assertErrorCode(t, err, "NOT_FOUND")

	require.NoError(t, svc.SetRolePermissions(context.Background(), adminActor(), role.ID, []string{manage.ID}))
	roles, err := svc.ListRoles(context.Background())
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, []string{"roles:manage"}, roles[0].Permissions)
}

func TestSeedStandardCatalogueIsIdempotent(t *testing.T) {
	fx := newFixture()
	rbac := newFakeRBACRepo()
	svc := newAccessService(fx, rbac)

	require.NoError(t, svc.SeedStandardCatalogue(context.Background()))

	firstRoles, err := svc.ListRoles(context.Background())
	require.NoError(t, err)
	firstPerms, err := svc.ListPermissions(context.Background())
	require.NoError(t, err)
	require.Len(t, firstRoles, len(service.StandardRoles))
	require.Len(t, firstPerms, len(service.StandardPermissions))

	require.NoError(t, svc.SeedStandardCatalogue(context.Background()))

	secondRoles, err := svc.ListRoles(context.Background())
	require.NoError(t, err)
	secondPerms, err := svc.ListPermissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, firstRoles, secondRoles)
	assert.Equal(t, firstPerms, secondPerms)

	byName := map[string][]string{}
	for _, role := range secondRoles {
		byName[role.Name] = role.Permissions
	}
	assert.Len(t, byName["super_admin"], len(service.StandardPermissions))
	assert.NotContains(t, byName["admin"], "roles:manage")
	assert.ElementsMatch(t, []string{"orders:read", "users:read"}, byName["support"])
	assert.ElementsMatch(t, []string{"orders:read", "products:read"}, byName["viewer"])
}
