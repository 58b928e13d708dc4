package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gateprep-backend/internal/model"
	"github.com/stemsi/gateprep-backend/internal/response"
)

// RequireStudent allows only callers holding the student role.
func RequireStudent() gin.HandlerFunc {
	return requireCapability(model.Identity.IsStudent, response.ErrStudentAccessOnly)
}

// RequireAuthor allows professors and staff.
func RequireAuthor() gin.HandlerFunc {
	return requireCapability(model.Identity.CanAuthorTests, response.ErrAuthorAccessOnly)
}

func requireCapability(allowed func(model.Identity) bool, code response.ErrCode) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if !allowed(id) {
			response.AbortFail(c, http.StatusForbidden, code)
			return
		}
		c.Next()
	}
}
