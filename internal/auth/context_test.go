package auth

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserContextRoundTrip(t *testing.T) {
	user := &UserContext{Email: "u@example.com", TenantID: "t", ObjectID: "o", Token: "secret"}
	ctx := WithUserContext(context.Background(), user)

	got, ok := UserFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, user, got)
}

func TestUserFromContextAbsent(t *testing.T) {
	got, ok := UserFromContext(context.Background())
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestUserContextStringRedactsToken(t *testing.T) {
	user := &UserContext{Email: "u@example.com", Token: "super-secret-token"}

	for _, rendered := range []string{
		user.String(),
		fmt.Sprintf("%v", user),
		fmt.Sprintf("%+v", user),
		fmt.Sprintf("%#v", user),
	} {
		assert.NotContains(t, rendered, "super-secret-token")
		assert.Contains(t, rendered, "u@example.com")
	}
}
