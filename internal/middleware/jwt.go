package middleware

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sams-edu/attendance-api/internal/models"
	appErrors "github.com/sams-edu/attendance-api/pkg/errors"
	"github.com/sams-edu/attendance-api/pkg/response"
)

// ContextActorKey is the gin context key storing the resolved Actor.
const ContextActorKey = "currentActor"

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

type studentResolver interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

type facultyResolver interface {
	FindByUserID(ctx context.Context, userID string) (*models.Faculty, error)
}

// Auth requires a valid access token and resolves the caller into an Actor:
// role from the claims, then the matching profile row. A faculty or student
// token without a profile is rejected rather than passed through half-formed.
func Auth(tokens tokenValidator, students studentResolver, faculty facultyResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		actor := models.Actor{UserID: claims.UserID, Role: claims.Role}
		switch claims.Role {
		case models.RoleFaculty:
			profile, err := faculty.FindByUserID(c.Request.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "faculty profile not found"))
				} else {
					response.Error(c, appErrors.ErrInternal)
				}
				c.Abort()
				return
			}
			actor.FacultyID = profile.ID
		case models.RoleStudent:
			profile, err := students.FindByUserID(c.Request.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "student profile not found"))
				} else {
					response.Error(c, appErrors.ErrInternal)
				}
				c.Abort()
				return
			}
			actor.StudentID = profile.ID
		}

		c.Set(ContextActorKey, actor)
		c.Next()
	}
}
