package auth

// PasswordHasher adapts HashPassword/VerifyPassword to the narrow user.Hasher interface so internal/user never has
// to import internal/auth directly.
type PasswordHasher struct {
	Params PasswordParams
}

// NewPasswordHasher builds a PasswordHasher from the configured argon2id cost parameters.
func NewPasswordHasher(params PasswordParams) PasswordHasher {
	return PasswordHasher{Params: params}
}

func (h PasswordHasher) Hash(password string) (string, error) {
	p := h.Params
	return HashPassword(password, p.Memory, p.Iterations, p.Parallelism, p.SaltLength, p.KeyLength)
}

func (h PasswordHasher) Verify(password, hash string) (bool, error) {
	return VerifyPassword(password, hash)
}
