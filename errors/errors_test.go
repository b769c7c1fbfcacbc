package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Wrappers_Match_Sentinels(t *testing.T) {
	req := require.New(t)

	req.ErrorIs(NotFound("conversation not found"), ErrNotFound)
	req.ErrorIs(Forbidden("not a member"), ErrForbidden)
	req.ErrorIs(BadRequest("missing payload"), ErrBadRequest)
}

func Test_ClientMessage_Masks_Internals(t *testing.T) {
	req := require.New(t)

	req.Equal("not found: message not found", ClientMessage(NotFound("message not found")))
	req.Equal("authentication failed", ClientMessage(ErrAuthFailure))

	// Storage and key detail never leaks
	internal := fmt.Errorf("badger: key msg:abc corrupted")
	req.Equal("internal error", ClientMessage(internal))
	req.Equal("internal error", ClientMessage(errors.New("dial tcp: refused")))
}
