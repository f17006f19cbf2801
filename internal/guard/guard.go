// Package guard abstracts the acting identity's capabilities. Authentication
// and role computation happen outside this service; handlers construct a
// Guardian from verified JWT claims and the chat pipelines only ask yes/no
// capability questions.
package guard

import (
	"context"
	"strings"

	"github.com/apt-crowd/discourse/internal/models"
)

// Guardian answers capability queries for one acting identity.
type Guardian interface {
	UserID() uint
	CanReadChannel(ctx context.Context, channel models.Channel) bool
}

type userGuardian struct {
	userID uint
	role   string
}

// New builds a Guardian for the given user and role. Public channels are
// readable by any authenticated user; private channels require a staff role.
func New(userID uint, role string) Guardian {
	return &userGuardian{userID: userID, role: strings.ToLower(strings.TrimSpace(role))}
}

func (g *userGuardian) UserID() uint {
	return g.userID
}

func (g *userGuardian) CanReadChannel(_ context.Context, channel models.Channel) bool {
	if g.userID == 0 {
		return false
	}
	if !channel.Private {
		return true
	}
	switch g.role {
	case "admin", "moderator", "staff":
		return true
	default:
		return false
	}
}
