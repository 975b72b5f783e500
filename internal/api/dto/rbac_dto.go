package dto

// RoleRequest payload for creating a role.
type RoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RoleResponse pairs a role with its permission codes.
type RoleResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// PermissionRequest payload for creating a permission.
type PermissionRequest struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// PermissionResponse view of one permission.
type PermissionResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// RolePermissionRequest attaches one permission to a role.
type RolePermissionRequest struct {
	PermissionID string `json:"permission_id"`
}

// SetRolePermissionsRequest replaces a role's full permission set.
type SetRolePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids"`
}
