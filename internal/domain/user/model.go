package user

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shorouk/radiology/internal/platform/apperr"
	"github.com/shorouk/radiology/internal/platform/auth"
	"github.com/shorouk/radiology/pkg/formfield"
)

const minPasswordLen = 6

// User maps to the users table. PasswordHash is an Argon2id PHC string and is
// never serialised.
type User struct {
	ID           uuid.UUID  `json:"user_id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	Role         string     `json:"role"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) DisplayRole() string {
	return auth.DisplayRole(u.Role)
}

func (u *User) Principal() *auth.Principal {
	return &auth.Principal{
		UserID:   u.ID.String(),
		Username: u.Username,
		FullName: u.FullName,
		Role:     u.Role,
	}
}

// View adds the display label to the JSON shape.
type View struct {
	*User
	RoleLabel string `json:"display_role"`
}

func NewView(u *User) View {
	return View{User: u, RoleLabel: u.DisplayRole()}
}

// Input is the admin create/update payload. Password is required on create
// and optional on update; IsActive defaults to true when absent.
type Input struct {
	Username string                 `json:"username" form:"username"`
	Email    string                 `json:"email" form:"email"`
	FullName string                 `json:"full_name" form:"full_name"`
	Role     string                 `json:"role" form:"role"`
	Password string                 `json:"password" form:"password"`
	IsActive formfield.OptionalFlag `json:"is_active" form:"is_active"`
	// SignatureData optionally provisions the user's stored signature. Blank
	// leaves any existing signature untouched.
	SignatureData string `json:"signature_data" form:"signature_data"`
}

func (in *Input) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	in.Role = strings.TrimSpace(in.Role)
	in.SignatureData = strings.TrimSpace(in.SignatureData)
}

func (in Input) validate(requirePassword bool) error {
	var problems []string
	if len([]rune(in.Username)) < 3 {
		problems = append(problems, "Username must be at least 3 characters long")
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		problems = append(problems, "Valid email address is required")
	}
	if len([]rune(in.FullName)) < 2 {
		problems = append(problems, "Full name must be at least 2 characters long")
	}
	if !auth.ValidRole(in.Role) {
		problems = append(problems, "Role must be admin, nurse or physician")
	}
	if (requirePassword || in.Password != "") && len(in.Password) < minPasswordLen {
		problems = append(problems, "Password must be at least 6 characters long")
	}
	if len(problems) > 0 {
		return apperr.Validation("%s", strings.Join(problems, "; "))
	}
	return nil
}

// ListFilter narrows the admin user list. Status is "active", "inactive" or
// empty for both.
type ListFilter struct {
	Search string
	Role   string
	Status string
}
