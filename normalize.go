package userkit

import (
	"regexp"
	"strings"
)

var repeatedSpaces = regexp.MustCompile(` {2,}`)

// NormalizeUsername lower-cases a username, trims surrounding whitespace and
// collapses runs of two or more spaces into one. It is idempotent.
//
// The unique index on users.username compares literal values, so every variant
// of the same name must reach storage in this form.
func NormalizeUsername(username string) string {
	return stripUsername(downcaseUsername(username))
}

func downcaseUsername(username string) string {
	if username == "" {
		return username
	}
	return strings.ToLower(username)
}

func stripUsername(username string) string {
	if username == "" {
		return username
	}
	return repeatedSpaces.ReplaceAllString(strings.TrimSpace(username), " ")
}

// normalize applies identity normalization before every validation pass.
func (u *User) normalize() {
	u.Username = NormalizeUsername(u.Username)
}
