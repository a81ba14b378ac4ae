package http

import (
	"context"
	"net/http"

	"zenbank/internal/log"
	"zenbank/internal/session"
)

type ctxKey int

const sessionCtxKey ctxKey = iota

// sessionLookup chooses whether a request counts as user activity.
type sessionLookup int

const (
	touch sessionLookup = iota
	peek
)

// requireSession resolves the bearer token to a live session. Expired
// sessions answer 401 with code session_expired.
func (s *Server) requireSession(mode sessionLookup, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			UnauthorizedError(CodeUnauthorized, "missing bearer token").Write(w)
			return
		}

		var (
			sess *session.Session
			err  error
		)
		if mode == touch {
			sess, err = s.sessions.Touch(token)
		} else {
			sess, err = s.sessions.Get(token)
		}
		if err != nil {
			writeError(w, r, "session", err)
			return
		}

		ctx := context.WithValue(r.Context(), sessionCtxKey, sess)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, sess.UserID))
		next(w, r.WithContext(ctx))
	}
}

// sessionFrom returns the session stored by requireSession.
func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionCtxKey).(*session.Session)
	return sess
}
