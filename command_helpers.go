package account

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// requireSession enforces the authorization gate shared by every
// account mutation: no valid session, no storage access.
func requireSession(s Session) (uuid.UUID, error) {
	if s == nil {
		return uuid.Nil, ErrUnauthorized
	}

	id, err := s.GetUserUUID()
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrUnauthorized
	}

	return id, nil
}

// asRichError normalizes any error escaping a workflow transaction so
// internal detail never reaches the caller.
func asRichError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}

	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}

func actorFromSession(s Session) ActorRef {
	if s == nil {
		return ActorRef{Type: "system"}
	}
	return ActorRef{ID: s.GetUserID(), Type: "user"}
}
