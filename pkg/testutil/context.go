package testutil

import (
	"net/http"

	id "quantumtrust/pkg/domain"
	authmw "quantumtrust/pkg/platform/middleware/auth"
)

// WithActor sets the actor header the way the upstream gateway would.
func WithActor(req *http.Request, userID id.UserID) *http.Request {
	req.Header.Set(authmw.HeaderUserID, userID.String())
	return req
}
