package userservice

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const passwordCost = 12

// unknownUserHash is what a login for an unknown username is checked against,
// so it costs the same bcrypt round as a wrong password.
var unknownUserHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("unknown user"), passwordCost)
	return hash
})

func (p *Password) set(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), passwordCost)
	if err != nil {
		return err
	}

	p.Plain = pwd
	p.Hash = hash

	return nil
}

// matches reports whether pwd is the password behind the stored hash.
func (p *Password) matches(pwd string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(p.Hash, []byte(pwd))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

func burnPasswordCheck(pwd string) {
	_ = bcrypt.CompareHashAndPassword(unknownUserHash(), []byte(pwd))
}
