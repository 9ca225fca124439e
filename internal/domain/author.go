package domain

import "strings"

// AuthorKind classifies who wrote a message. Only automated authors are
// subject to duplicate filtering.
type AuthorKind string

const (
	AuthorUnknown   AuthorKind = ""
	AuthorHuman     AuthorKind = "human"
	AuthorAutomated AuthorKind = "automated"
	AuthorSystem    AuthorKind = "system"
)

// ParseAuthorKind maps a wire value to an AuthorKind. The empty string is
// valid and means "not tagged by the producer".
func ParseAuthorKind(s string) (AuthorKind, bool) {
	switch AuthorKind(strings.ToLower(strings.TrimSpace(s))) {
	case AuthorUnknown:
		return AuthorUnknown, true
	case AuthorHuman:
		return AuthorHuman, true
	case AuthorAutomated:
		return AuthorAutomated, true
	case AuthorSystem:
		return AuthorSystem, true
	}
	return AuthorUnknown, false
}
