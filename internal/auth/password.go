package auth

import (
	"fmt"

	"github.com/alexedwards/argon2id"
)

// Argon2Params configures Argon2id hashing. Populated from internal/config.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// dummyHash is compared against on every failed lookup so that a login
// attempt against a non-existent email takes the same time as one against a
// real email with a wrong password.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=2$c29tZXNhbHRzb21lc2FsdA$c29tZWhhc2hzb21laGFzaHNvbWVoYXNoc29tZWhhc2g"

// HashPassword hashes a plaintext password with Argon2id using the given
// parameters. Exported for bootstrap/admin-onboarding flows that create
// Users outside of Login.
func HashPassword(password string, p Argon2Params) (string, error) {
	params := &argon2id.Params{
		Memory:      p.Memory,
		Iterations:  p.Iterations,
		Parallelism: p.Parallelism,
		SaltLength:  p.SaltLength,
		KeyLength:   p.KeyLength,
	}
	hash, err := argon2id.CreateHash(password, params)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func verifyPassword(password, hash string) (bool, error) {
	match, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return false, fmt.Errorf("verify password: %w", err)
	}
	return match, nil
}
