package userkit

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/uptrace/bun"
)

// RoleTitle is the canonical name of a role, e.g. "Refinery" or "Superuser".
type RoleTitle string

// Built-in roles.
const (
	// RoleRefinery is held by every admin user. Its membership count tells whether
	// the system has been initialized.
	RoleRefinery RoleTitle = "Refinery"

	// RoleSuperuser grants every registered plugin regardless of grants.
	RoleSuperuser RoleTitle = "Superuser"
)

// String returns the title.
func (t RoleTitle) String() string {
	return string(t)
}

// CanonicalRoleTitle converts a role name to its stored form. Segments separated
// by underscores or spaces get their first letter upper-cased and are joined; the
// rest of each segment is kept as given, so the conversion is idempotent and
// titles compare case-sensitively:
//
//	CanonicalRoleTitle("superuser")        // "Superuser"
//	CanonicalRoleTitle("translator_admin") // "TranslatorAdmin"
//	CanonicalRoleTitle("TranslatorAdmin")  // "TranslatorAdmin"
//	CanonicalRoleTitle("SUPERUSER")        // "SUPERUSER", a different role
func CanonicalRoleTitle(s string) RoleTitle {
	segments := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || unicode.IsSpace(r)
	})

	var b strings.Builder
	for _, seg := range segments {
		first, size := utf8.DecodeRuneInString(seg)
		b.WriteRune(unicode.ToUpper(first))
		b.WriteString(seg[size:])
	}
	return RoleTitle(b.String())
}

// ParseRoleTitle accepts a role name given as a string or RoleTitle and returns its
// canonical form. Role entities are rejected: callers must pass the title, not the row.
func ParseRoleTitle(title any) (RoleTitle, error) {
	switch v := title.(type) {
	case Role, *Role:
		return "", NewError(ErrInvalidArgument, "role should be the title of the role not a role object")
	case RoleTitle:
		return CanonicalRoleTitle(string(v)), nil
	case string:
		return CanonicalRoleTitle(v), nil
	default:
		return "", NewError(ErrInvalidArgument, fmt.Sprintf("unsupported role title type %T", title))
	}
}

// Role is a named tag shared by many users.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID        string    `bun:"id,pk,type:uuid"`
	Title     RoleTitle `bun:"title,notnull,unique"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// RoleUser is the membership row joining a user to a role.
type RoleUser struct {
	bun.BaseModel `bun:"table:roles_users,alias:ru"`

	UserID    string    `bun:"user_id,pk,type:uuid"`
	RoleID    string    `bun:"role_id,pk,type:uuid"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// roleTitles extracts the titles of a list of roles.
func roleTitles(roles []Role) []RoleTitle {
	titles := make([]RoleTitle, 0, len(roles))
	for _, r := range roles {
		titles = append(titles, r.Title)
	}
	return titles
}

func containsTitle(titles []RoleTitle, title RoleTitle) bool {
	for _, t := range titles {
		if t == title {
			return true
		}
	}
	return false
}
