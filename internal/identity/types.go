package identity

import "context"

// User is the identity resolved from an access token.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Profile is the per-user record stored at the provider. Nullable columns
// map to pointers; nil means "use the plan default".
type Profile struct {
	ID                  string `json:"id"`
	Email               string `json:"email,omitempty"`
	Plan                string `json:"plan"`
	Role                string `json:"role"`
	MonthlyRenderCount  int64  `json:"monthly_render_count"`
	MonthlyRenderLimit  *int64 `json:"monthly_render_limit"`
	UploadOverrideBytes *int64 `json:"upload_override_bytes"`
}

// Provider resolves identities and manages profiles at the external
// identity/profile service. Implementations must treat "absent" as a
// (nil, nil) result so callers can distinguish it from transport failures.
type Provider interface {
	// GetUser resolves an opaque access token to a verified user, or
	// (nil, nil) when the token is unknown or the provider rejects it.
	GetUser(ctx context.Context, accessToken string) (*User, error)
	// GetProfile fetches the profile for a user ID, (nil, nil) when absent.
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	// CreateProfile provisions a fresh free-plan profile for user.
	CreateProfile(ctx context.Context, user *User) (*Profile, error)
	// IncrementRenderCount records one render against the profile and
	// returns the updated row.
	IncrementRenderCount(ctx context.Context, userID string, currentCount int64) (*Profile, error)
}
