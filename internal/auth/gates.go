package auth

import "github.com/iliyamo/volunteer-map/internal/apierr"

// RequireAuthenticated fails with 401 when there is no identity.
func RequireAuthenticated(id *Identity) error {
	if id == nil {
		return apierr.Unauthorized("Unauthorized")
	}
	return nil
}

// RequireRole fails with 401 without an identity and 403 for any other role.
func RequireRole(id *Identity, role string) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	if id.Role != role {
		return apierr.Forbidden("Forbidden")
	}
	return nil
}

// RequireOwnerOrAdmin passes for the owner of a resource or any admin.
// ownerID is nil when the resource was never loaded, which is a 400.
func RequireOwnerOrAdmin(id *Identity, ownerID *uint64) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	if ownerID == nil {
		return apierr.BadRequest("missing resource")
	}
	if id.ID != *ownerID && !id.IsAdmin() {
		return apierr.Forbidden("Forbidden")
	}
	return nil
}
