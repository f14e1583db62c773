package auth

import (
	"context"
	"errors"
	"regexp"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/users"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,7}$`)

const minPasswordLength = 5

// Result is the discriminated outcome of a login or registration attempt.
// Reason is empty on success and a human-readable failure reason otherwise.
type Result struct {
	OK     bool
	Reason string
}

func success() Result { return Result{OK: true} }

func fail(reason string) Result { return Result{Reason: reason} }

type Service struct {
	users *users.Repository
}

func NewService(repo *users.Repository) *Service {
	return &Service{users: repo}
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// VerifyLogin checks the credentials against the stored hash. It has no
// side effects and does not distinguish storage errors from the caller's
// perspective beyond returning them.
func (s *Service) VerifyLogin(ctx context.Context, email, password string) (Result, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return fail("no user with that email"), nil
		}
		return Result{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return fail("incorrect password"), nil
	}
	return success(), nil
}

// Register validates the signup form and inserts the user. Checks run in
// order and the first failure wins; the insert itself is a single row, so
// a duplicate email leaves no partial state behind.
func (s *Service) Register(ctx context.Context, email, firstName, password, repeatedPassword string) (Result, error) {
	if !emailPattern.MatchString(email) {
		return fail("invalid email"), nil
	}
	// Characters, not bytes: a four-rune multibyte password is still short.
	if utf8.RuneCountInString(password) < minPasswordLength {
		return fail("password too short"), nil
	}
	if password != repeatedPassword {
		return fail("passwords do not match"), nil
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return Result{}, err
	}

	u := users.User{
		Email:        email,
		FirstName:    firstName,
		PasswordHash: hashed,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			return fail("email already exists"), nil
		}
		return Result{}, err
	}
	return success(), nil
}
