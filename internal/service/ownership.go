package service

import (
	"strings"

	"github.com/amine-dev/localq/internal/apperror"
)

// authorizeOwner is the single ownership rule shared by every deletable
// resource. Both sides of the comparison are normalized the same way so
// Questions and Answers can never drift into inconsistent authorization
// behavior.
//
// resource names the thing being protected ("question", "answer") and only
// appears in the error message.
func authorizeOwner(resource, authorID, requesterID string) error {
	if normalizeID(authorID) == "" || normalizeID(authorID) != normalizeID(requesterID) {
		return apperror.Forbidden("only the author may delete this " + resource)
	}
	return nil
}

// normalizeID canonicalizes a user identifier for comparison. IDs travel
// through tokens, URLs, and database rows; trimming guards against
// whitespace sneaking in at any of those boundaries.
func normalizeID(id string) string {
	return strings.TrimSpace(id)
}
