package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Authentication is an external collaborator; this middleware only lifts the
// identity it established into the request context. The upstream gateway is
// expected to set X-Actor and X-Role after verifying credentials.

const (
	actorKey = "actor"
	roleKey  = "role"
)

func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetHeader("X-Actor")
		if actor == "" {
			actor = "anonymous"
		}
		c.Set(actorKey, actor)
		c.Set(roleKey, c.GetHeader("X-Role"))
		c.Next()
	}
}

// Actor returns the acting user for the request.
func Actor(c *gin.Context) string {
	v, _ := c.Get(actorKey)
	s, _ := v.(string)
	return s
}

// RequireRole rejects requests whose established role is not in roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, _ := c.Get(roleKey)
		role, _ := v.(string)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
	}
}
