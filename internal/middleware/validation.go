package middleware

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// Field length limits matching database schema constraints.
const (
	MaxTokenLen     = 128 // casting_tokens.token
	MaxCandidateLen = 64  // elections.candidates entries
	MaxElectionID   = 64  // elections.id
	MaxRankEntries  = 50  // sanity cap; real elections have far fewer candidates
)

var (
	// tokenRe matches casting tokens: opaque URL-safe strings.
	tokenRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	// electionIDRe matches election identifiers.
	electionIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateToken checks that a casting token is well-formed. Whether it is
// known, unused, and attached to an active election is the store's call.
func ValidateToken(token string) (string, string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "token is required"
	}
	if len(token) > MaxTokenLen {
		return "", "token must be at most 128 characters"
	}
	if !tokenRe.MatchString(token) {
		return "", "token contains invalid characters"
	}
	return token, ""
}

// ValidateElectionID checks that an election ID is well-formed.
func ValidateElectionID(id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "electionId is required"
	}
	if len(id) > MaxElectionID {
		return "", "electionId must be at most 64 characters"
	}
	if !electionIDRe.MatchString(id) {
		return "", "electionId contains invalid characters"
	}
	return id, ""
}

// ValidateRankedChoices performs shape checks on a submitted ranking: the
// entries must be present, non-empty, and within schema limits. Whether the
// ranking is a permutation of the election's candidate set is decided inside
// the casting transaction, where the candidate list is loaded.
func ValidateRankedChoices(choices []string) ([]string, string) {
	if len(choices) == 0 {
		return nil, "rankedChoices is required"
	}
	if len(choices) > MaxRankEntries {
		return nil, "rankedChoices has too many entries"
	}
	out := make([]string, len(choices))
	for i, c := range choices {
		c = strings.TrimSpace(c)
		if c == "" {
			return nil, "rankedChoices entries must not be empty"
		}
		if len(c) > MaxCandidateLen {
			return nil, "rankedChoices entries must be at most 64 characters"
		}
		out[i] = c
	}
	return out, ""
}
