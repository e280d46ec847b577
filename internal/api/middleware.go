package api

import (
	"log"
	"net/http"
	"strings"

	"stemforge/internal/identity"
	"stemforge/internal/plans"

	"github.com/gin-gonic/gin"
)

const authContextKey = "auth"

// AuthContext is attached to the gin context by AuthRequired and carries
// everything downstream handlers need about the caller.
type AuthContext struct {
	User        *identity.User
	Profile     *identity.Profile
	Plan        plans.Plan
	Role        string
	Limits      plans.Limits
	AccessToken string
}

// GetAuth retrieves the AuthContext set by AuthRequired.
func GetAuth(c *gin.Context) (*AuthContext, bool) {
	v, ok := c.Get(authContextKey)
	if !ok {
		return nil, false
	}
	auth, ok := v.(*AuthContext)
	return auth, ok
}

// AuthRequired resolves the bearer token against the identity provider,
// provisions a profile on first sight, and attaches identity + effective
// limits to the request context.
//
// Provider read failures degrade to free-plan defaults so a flaky provider
// does not take the upload path down; a failed profile *creation* is fatal
// for the request.
func AuthRequired(provider identity.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing authorization header"})
			return
		}

		accessToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if accessToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		user, err := provider.GetUser(c.Request.Context(), accessToken)
		if err != nil {
			log.Printf("Identity provider rejected token resolution: %v", err)
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid access token"})
			return
		}

		profile, status := resolveProfile(c, provider, user)
		if profile == nil {
			c.AbortWithStatusJSON(status, gin.H{"error": "Failed to authenticate request"})
			return
		}

		plan := plans.Resolve(profile.Plan)
		limits := plans.Effective(plan, plans.Overrides{
			MonthlyRenderLimit:  profile.MonthlyRenderLimit,
			UploadOverrideBytes: profile.UploadOverrideBytes,
		})

		c.Set(authContextKey, &AuthContext{
			User:        user,
			Profile:     profile,
			Plan:        plan,
			Role:        profile.Role,
			Limits:      limits,
			AccessToken: accessToken,
		})
		c.Next()
	}
}

// resolveProfile fetches the caller's profile, creating one lazily on first
// sight. A nil result carries the HTTP status to answer with.
func resolveProfile(c *gin.Context, provider identity.Provider, user *identity.User) (*identity.Profile, int) {
	ctx := c.Request.Context()

	profile, err := provider.GetProfile(ctx, user.ID)
	if err != nil {
		// Read failure: fall back to a free-plan view rather than failing
		// the request. Usage tracking is best effort.
		log.Printf("Unable to fetch profile for %s: %v", user.ID, err)
		return defaultProfile(user), http.StatusOK
	}
	if profile != nil {
		return profile, http.StatusOK
	}

	created, err := provider.CreateProfile(ctx, user)
	if err != nil {
		log.Printf("Unable to provision profile for %s: %v", user.ID, err)
		return nil, http.StatusInternalServerError
	}
	if created == nil {
		// Provider not configured for writes; proceed with defaults.
		return defaultProfile(user), http.StatusOK
	}
	return created, http.StatusOK
}

func defaultProfile(user *identity.User) *identity.Profile {
	return &identity.Profile{
		ID:    user.ID,
		Email: user.Email,
		Plan:  plans.DefaultKey,
		Role:  "user",
	}
}

// RequireRole gates a route to the given roles. Must run after AuthRequired.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth, ok := GetAuth(c)
		if !ok || auth.Role == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		if len(allowedRoles) == 0 {
			c.Next()
			return
		}
		for _, role := range allowedRoles {
			if auth.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}
