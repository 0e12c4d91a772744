package billing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium-workspace/backend/internal/models"
)

func TestResolvePersonal(t *testing.T) {
	orgID := uuid.New()
	// Personal billing needs no org and no delegation flags, for any role.
	for _, role := range []models.Role{
		models.RoleMember, models.RoleOrgMember, models.RoleOrgAdmin,
		models.RoleCafeManager, models.RoleAdmin,
	} {
		t.Run(string(role), func(t *testing.T) {
			u := &models.User{Role: role, OrganizationID: &orgID}
			d, err := Resolve(u, models.BilledToPersonal, KindRoom)
			require.NoError(t, err)
			assert.Equal(t, models.BilledToPersonal, d.BilledTo)
			assert.Nil(t, d.OrgID) // personal decisions never carry an org
		})
	}
}

func TestResolveOrganization(t *testing.T) {
	orgID := uuid.New()

	t.Run("no organization", func(t *testing.T) {
		u := &models.User{Role: models.RoleMember, CanChargeRoomToOrg: true}
		_, err := Resolve(u, models.BilledToOrganization, KindRoom)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("room flag missing fails for every role", func(t *testing.T) {
		for _, role := range []models.Role{
			models.RoleMember, models.RoleOrgMember, models.RoleOrgAdmin,
			models.RoleCafeManager, models.RoleAdmin,
		} {
			u := &models.User{Role: role, OrganizationID: &orgID, CanChargeCafeToOrg: true}
			_, err := Resolve(u, models.BilledToOrganization, KindRoom)
			assert.ErrorIs(t, err, ErrUnauthorized, "role %s", role)
		}
	})

	t.Run("cafe flag missing", func(t *testing.T) {
		u := &models.User{Role: models.RoleOrgMember, OrganizationID: &orgID, CanChargeRoomToOrg: true}
		_, err := Resolve(u, models.BilledToOrganization, KindCafe)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("room delegation granted", func(t *testing.T) {
		u := &models.User{Role: models.RoleOrgMember, OrganizationID: &orgID, CanChargeRoomToOrg: true}
		d, err := Resolve(u, models.BilledToOrganization, KindRoom)
		require.NoError(t, err)
		assert.Equal(t, models.BilledToOrganization, d.BilledTo)
		require.NotNil(t, d.OrgID)
		assert.Equal(t, orgID, *d.OrgID)
	})

	t.Run("cafe delegation granted", func(t *testing.T) {
		u := &models.User{Role: models.RoleOrgMember, OrganizationID: &orgID, CanChargeCafeToOrg: true}
		d, err := Resolve(u, models.BilledToOrganization, KindCafe)
		require.NoError(t, err)
		require.NotNil(t, d.OrgID)
		assert.Equal(t, orgID, *d.OrgID)
	})

	t.Run("org id is copied, not aliased", func(t *testing.T) {
		u := &models.User{Role: models.RoleOrgMember, OrganizationID: &orgID, CanChargeRoomToOrg: true}
		d, err := Resolve(u, models.BilledToOrganization, KindRoom)
		require.NoError(t, err)
		assert.NotSame(t, u.OrganizationID, d.OrgID)
	})
}

func TestResolveUnknownTarget(t *testing.T) {
	u := &models.User{Role: models.RoleMember}
	_, err := Resolve(u, models.BilledTo("company"), KindRoom)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
