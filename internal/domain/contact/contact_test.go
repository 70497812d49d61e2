package contact

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContact(t *testing.T) {
	tenantID := uuid.New()

	t.Run("creates active contact", func(t *testing.T) {
		c, err := NewContact(tenantID, 1, "  Juan Perez ", ContactTypeCustomer)
		require.NoError(t, err)
		assert.Equal(t, "Juan Perez", c.Name)
		assert.Equal(t, StatusActive, c.Status)
		assert.Equal(t, tenantID, c.TenantID)
		assert.True(t, c.IsNew())
		assert.NotNil(t, c.Metadata)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewContact(tenantID, 1, "   ", ContactTypeCustomer)
		assert.Error(t, err)
	})

	t.Run("rejects invalid type", func(t *testing.T) {
		_, err := NewContact(tenantID, 1, "Ana", ContactType("vendor"))
		assert.Error(t, err)
	})
}

func TestContact_SetCreditLimit(t *testing.T) {
	c, err := NewContact(uuid.New(), 1, "Ana", ContactTypeSupplier)
	require.NoError(t, err)

	require.NoError(t, c.SetCreditLimit(decimal.NewFromInt(500)))
	assert.True(t, c.CreditLimit.Equal(decimal.NewFromInt(500)))
	assert.Error(t, c.SetCreditLimit(decimal.NewFromInt(-1)))
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Juan Perez", "juanperez"},
		{"juan  perez", "juanperez"},
		{" JUAN\tPEREZ\n", "juanperez"},
		{"José Núñez", "josénúñez"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), tt.in)
	}
}

func TestPhoneDigits(t *testing.T) {
	assert.Equal(t, "8091234567", PhoneDigits("(809) 123-4567"))
	assert.Equal(t, "18091234567", PhoneDigits("+1 809 123 4567"))
	assert.Equal(t, "", PhoneDigits("n/a"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.com "))
}
