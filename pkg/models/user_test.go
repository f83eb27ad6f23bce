package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRoleLevel(t *testing.T) {
	assert.Equal(t, 1, RoleViewer.Level())
	assert.Equal(t, 2, RoleEditor.Level())
	assert.Equal(t, 3, RoleAdmin.Level())
	assert.Equal(t, 0, UserRole("ROOT").Level())
	assert.Equal(t, 0, UserRole("").Level())
}

func TestPasswordHashNeverSerialized(t *testing.T) {
	user := User{
		ID:           "user-1",
		Email:        "amina@example.org",
		PasswordHash: "$2a$10$secret",
		Name:         "Amina",
		Role:         RoleEditor,
	}

	data, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.NotContains(t, string(data), "password")
}
