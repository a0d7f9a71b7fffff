package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := generateOTP()
		require.NoError(t, err)
		assert.Len(t, code, otpDigits)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9', code)
		}
	}
}

func TestOTPStore(t *testing.T) {
	newStore := func(ttl time.Duration) *OTPStore {
		store := NewOTPStore(ttl, 3)
		codes := []string{"111111", "222222", "333333"}
		store.genFunc = func() (string, error) {
			code := codes[0]
			codes = codes[1:]
			return code, nil
		}
		return store
	}

	t.Run("single use", func(t *testing.T) {
		store := newStore(time.Minute)
		code, err := store.Issue("A@Test.test ")
		require.NoError(t, err)
		assert.True(t, store.Pending("a@test.test"))
		assert.NoError(t, store.Verify("a@test.test", code))
		assert.Equal(t, ErrOTPExpired, store.Verify("a@test.test", code))
	})

	t.Run("resend replaces code", func(t *testing.T) {
		store := newStore(time.Minute)
		first, _ := store.Issue("a@test.test")
		second, _ := store.Issue("a@test.test")
		assert.Equal(t, ErrOTPInvalid, store.Verify("a@test.test", first))
		assert.NoError(t, store.Verify("a@test.test", second))
	})

	t.Run("max attempts", func(t *testing.T) {
		store := newStore(time.Minute)
		code, _ := store.Issue("a@test.test")
		assert.Equal(t, ErrOTPInvalid, store.Verify("a@test.test", "000000"))
		assert.Equal(t, ErrOTPInvalid, store.Verify("a@test.test", "000000"))
		assert.Equal(t, ErrOTPTooManyAttempts, store.Verify("a@test.test", "000000"))
		assert.Equal(t, ErrOTPExpired, store.Verify("a@test.test", code))
	})

	t.Run("expired", func(t *testing.T) {
		store := newStore(10 * time.Millisecond)
		code, _ := store.Issue("a@test.test")
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, ErrOTPExpired, store.Verify("a@test.test", code))
	})
}
