package moderation

import (
	"strconv"

	"github.com/iamwavecut/groupwarden/internal/policy/permissions"
)

type actorKind uint8

const (
	actorUser actorKind = iota
	actorAnonymousAdmin
)

// Actor is the principal issuing a command: an individual user or the anonymous admin identity.
type Actor struct {
	kind   actorKind
	userID int64
}

func IndividualUser(userID int64) Actor {
	return Actor{kind: actorUser, userID: userID}
}

func AnonymousAdmin() Actor {
	return Actor{kind: actorAnonymousAdmin}
}

func (a Actor) IsAnonymous() bool {
	return a.kind == actorAnonymousAdmin
}

// UserID is zero for the anonymous admin.
func (a Actor) UserID() int64 {
	return a.userID
}

// LedgerID is the id recorded as the issuing principal of a ledger row.
func (a Actor) LedgerID() int64 {
	if a.IsAnonymous() {
		return permissions.AnonymousAdminBotID
	}
	return a.userID
}

func (a Actor) String() string {
	if a.IsAnonymous() {
		return "anonymous admin"
	}
	return strconv.FormatInt(a.userID, 10)
}
