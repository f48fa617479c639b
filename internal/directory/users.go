package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"labreserve/internal/repoapi"
)

// ErrUnknownUser is returned when a username has no exact match.
var ErrUnknownUser = errors.New("unknown user")

const searchLimit = 10

// UserSearcher queries the repository's user search endpoint.
type UserSearcher interface {
	SearchUsers(ctx context.Context, q string, limit int) ([]repoapi.UserCandidate, error)
}

// Users validates collaborator names against the user directory.
type Users struct {
	search UserSearcher
	logger zerolog.Logger
}

// NewUsers creates a validator backed by search.
func NewUsers(search UserSearcher, logger zerolog.Logger) *Users {
	return &Users{
		search: search,
		logger: logger.With().Str("component", "users").Logger(),
	}
}

// Validate returns the directory's spelling of name. Search results are
// fuzzy, so only an exact case-insensitive hit counts.
func (u *Users) Validate(ctx context.Context, name string) (repoapi.UserCandidate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return repoapi.UserCandidate{}, fmt.Errorf("%w: empty name", ErrUnknownUser)
	}

	hits, err := u.search.SearchUsers(ctx, name, searchLimit)
	if err != nil {
		return repoapi.UserCandidate{}, fmt.Errorf("search users: %w", err)
	}
	for _, hit := range hits {
		if strings.EqualFold(hit.Username, name) {
			return hit, nil
		}
	}

	u.logger.Debug().Str("username", name).Int("candidates", len(hits)).Msg("no exact user match")
	return repoapi.UserCandidate{}, fmt.Errorf("%w: %s", ErrUnknownUser, name)
}
