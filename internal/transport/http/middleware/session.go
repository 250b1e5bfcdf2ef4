package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"filingchat/internal/auth"
	"filingchat/internal/transport/http/response"
)

const ContextSessionKey = "session"

// Session attaches the caller's session to the request when one can be
// resolved. It never rejects a request; handlers decide how to answer
// anonymous callers.
func Session(resolver auth.SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sess, err := resolver.Resolve(c.Request); err == nil && sess != nil {
			c.Set(ContextSessionKey, sess)
		}
		c.Next()
	}
}

// RequireSession rejects anonymous callers with the JSON envelope.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentSession(c) == nil {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}

func CurrentSession(c *gin.Context) *auth.Session {
	v, ok := c.Get(ContextSessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*auth.Session)
	return sess
}
