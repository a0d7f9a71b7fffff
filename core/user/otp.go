package user

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const otpDigits = 6

var (
	ErrOTPInvalid         = errors.New("invalid verification code")
	ErrOTPExpired         = errors.New("verification code expired or not found")
	ErrOTPTooManyAttempts = errors.New("too many attempts, request a new verification code")

	otpMax = big.NewInt(1_000_000)
)

type otpEntry struct {
	code     string
	attempts int
}

// OTPStore keeps one pending code per key (email). Codes are single use and
// invalidated after maxAttempts failed checks.
type OTPStore struct {
	mu          sync.Mutex
	codes       *cache.Cache
	ttl         time.Duration
	maxAttempts int
	genFunc     func() (string, error) // mockable
}

func NewOTPStore(ttl time.Duration, maxAttempts int) *OTPStore {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &OTPStore{
		codes:       cache.New(ttl, 2*ttl),
		ttl:         ttl,
		maxAttempts: maxAttempts,
		genFunc:     generateOTP,
	}
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpMax)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

func otpKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Issue creates a fresh code for key, replacing any pending one.
func (s *OTPStore) Issue(key string) (string, error) {
	code, err := s.genFunc()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes.Set(otpKey(key), &otpEntry{code: code}, s.ttl)
	return code, nil
}

// Verify consumes the pending code for key when it matches.
func (s *OTPStore) Verify(key, code string) error {
	key = otpKey(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	item, found := s.codes.Get(key)
	if !found {
		return ErrOTPExpired
	}
	entry := item.(*otpEntry)
	if entry.attempts >= s.maxAttempts {
		return ErrOTPTooManyAttempts
	}
	if entry.code != strings.TrimSpace(code) {
		entry.attempts++
		if entry.attempts >= s.maxAttempts {
			s.codes.Delete(key)
			return ErrOTPTooManyAttempts
		}
		return ErrOTPInvalid
	}
	s.codes.Delete(key)
	return nil
}

// Pending reports whether key has an unexpired code.
func (s *OTPStore) Pending(key string) bool {
	_, found := s.codes.Get(otpKey(key))
	return found
}
