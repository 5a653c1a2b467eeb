package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIdentity(t *testing.T) {
	t.Run("lowercases 24-hex object ids", func(t *testing.T) {
		id, err := NormalizeIdentity("507F1F77BCF86CD799439011")
		require.NoError(t, err)
		assert.Equal(t, Identity("507f1f77bcf86cd799439011"), id)
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		id, err := NormalizeIdentity("  507f1f77bcf86cd799439011\n")
		require.NoError(t, err)
		assert.Equal(t, Identity("507f1f77bcf86cd799439011"), id)
	})

	t.Run("leaves non-hex identities untouched", func(t *testing.T) {
		id, err := NormalizeIdentity("Admin-User-42")
		require.NoError(t, err)
		assert.Equal(t, Identity("Admin-User-42"), id)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := NormalizeIdentity("   ")
		require.Error(t, err)
	})

	t.Run("two representations of the same user converge", func(t *testing.T) {
		a, err := NormalizeIdentity("507f191e810c19729de860ea")
		require.NoError(t, err)
		b, err := NormalizeIdentity(" 507F191E810C19729DE860EA ")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestIdentityIsZero(t *testing.T) {
	assert.True(t, Identity("").IsZero())
	assert.False(t, Identity("507f1f77bcf86cd799439011").IsZero())
}
