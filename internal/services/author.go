package services

import (
	"strings"

	"github.com/tbourn/go-chat-dedup/internal/domain"
)

// Default author classification settings.
var (
	DefaultAutomationPrefixes = []string{"ai_", "bot_", "npc_"}
	DefaultSystemAuthorID     = "system"
)

// AuthorClassifier decides which messages are subject to duplicate
// filtering. An explicit AuthorKind from the producer always wins; the
// user-id conventions below only apply to producers that do not send one.
type AuthorClassifier struct {
	Prefixes []string // user ids starting with any of these are automated
	SystemID string   // reserved id for system announcements
}

// DefaultAuthorClassifier returns the classifier for the built-in conventions.
func DefaultAuthorClassifier() AuthorClassifier {
	return AuthorClassifier{
		Prefixes: append([]string(nil), DefaultAutomationPrefixes...),
		SystemID: DefaultSystemAuthorID,
	}
}

// Kind resolves the author kind of a message. Matching on the user id is
// case-sensitive. A missing or empty user id counts as human.
func (a AuthorClassifier) Kind(userID *string, explicit domain.AuthorKind) domain.AuthorKind {
	if explicit != domain.AuthorUnknown {
		return explicit
	}
	id := domain.Deref(userID)
	if id == "" {
		return domain.AuthorHuman
	}
	if a.SystemID != "" && id == a.SystemID {
		return domain.AuthorSystem
	}
	for _, p := range a.Prefixes {
		if p != "" && strings.HasPrefix(id, p) {
			return domain.AuthorAutomated
		}
	}
	return domain.AuthorHuman
}
