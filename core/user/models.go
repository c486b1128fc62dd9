package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/studentdir/core"
)

// Role is the authorization level of a caller. It is resolved once, when the user authenticates.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
)

// ResolveRole returns RoleAdmin for the designated admin email and RoleTeacher for everyone else.
func ResolveRole(email, adminEmail string) Role {
	if adminEmail != "" && core.CleanString(email, true /* lower */) == core.CleanString(adminEmail, true /* lower */) {
		return RoleAdmin
	}
	return RoleTeacher
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleTeacher
}

// Caller is the authenticated identity a request is made on behalf of.
type Caller struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// Caller builds the request identity of u, with its role resolved against adminEmail.
func (u User) Caller(adminEmail string) Caller {
	return Caller{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  ResolveRole(u.Email, adminEmail),
	}
}

// NewUser contains information needed to create (or reset) a User from the admin CLI.
type NewUser struct {
	Name     string `json:"name" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,pwdminlen,pwdnotallnum"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
