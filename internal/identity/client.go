package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"stemforge/internal/config"
	"stemforge/internal/plans"
)

const profileColumns = "id,plan,role,monthly_render_count,monthly_render_limit,upload_override_bytes"

// Client talks to the hosted identity provider (Supabase-style REST API).
// Auth endpoints take the caller's access token as bearer; profile endpoints
// use the service role key.
type Client struct {
	Config *config.Config
}

func NewClient(cfg *config.Config) *Client {
	return &Client{Config: cfg}
}

func (c *Client) configured() bool {
	return c.Config.SupabaseURL != "" && c.Config.SupabaseServiceRoleKey != ""
}

// sendRequest performs one provider call and returns the body plus status.
// Only transport and encoding problems surface as errors; HTTP error
// statuses are left to the caller, which usually degrades to "absent".
func (c *Client) sendRequest(ctx context.Context, method, reqURL string, body interface{}, headers map[string]string) ([]byte, int, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, 0, err
	}

	req.Header.Set("apikey", c.Config.SupabaseServiceRoleKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+c.Config.SupabaseServiceRoleKey)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	return respBody, resp.StatusCode, nil
}

// GetUser resolves an access token via the provider's auth endpoint.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" || !c.configured() {
		return nil, nil
	}

	reqURL := fmt.Sprintf("%s/auth/v1/user", c.Config.SupabaseURL)
	body, status, err := c.sendRequest(ctx, "GET", reqURL, nil, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, nil
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, nil
	}
	return &user, nil
}

// GetProfile fetches the profile row for userID, (nil, nil) when absent.
func (c *Client) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" || !c.configured() {
		return nil, nil
	}

	reqURL := fmt.Sprintf("%s/rest/v1/profiles?id=eq.%s&select=%s",
		c.Config.SupabaseURL, url.QueryEscape(userID), profileColumns)
	body, status, err := c.sendRequest(ctx, "GET", reqURL, nil, nil)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, fmt.Errorf("fetch profile: status %d - %s", status, string(body))
	}

	var profiles []Profile
	if err := json.Unmarshal(body, &profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	return &profiles[0], nil
}

// CreateProfile provisions a free-plan profile for a first-seen user.
func (c *Client) CreateProfile(ctx context.Context, user *User) (*Profile, error) {
	if user == nil || !c.configured() {
		return nil, nil
	}

	free := plans.Resolve(plans.DefaultKey)
	payload := map[string]interface{}{
		"id":                    user.ID,
		"email":                 user.Email,
		"plan":                  free.Key,
		"role":                  "user",
		"monthly_render_count":  0,
		"monthly_render_limit":  free.MaxMonthlyRenders,
		"upload_override_bytes": nil,
	}

	reqURL := fmt.Sprintf("%s/rest/v1/profiles", c.Config.SupabaseURL)
	body, status, err := c.sendRequest(ctx, "POST", reqURL, payload, map[string]string{
		"Prefer": "return=representation",
	})
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, fmt.Errorf("provision profile: status %d - %s", status, string(body))
	}

	return decodeProfile(body)
}

// IncrementRenderCount records one render. The read-modify-write is not
// guarded; concurrent uploads by the same user may under-count.
func (c *Client) IncrementRenderCount(ctx context.Context, userID string, currentCount int64) (*Profile, error) {
	if userID == "" || !c.configured() {
		return nil, nil
	}

	nextCount := currentCount + 1
	reqURL := fmt.Sprintf("%s/rest/v1/profiles?id=eq.%s",
		c.Config.SupabaseURL, url.QueryEscape(userID))
	body, status, err := c.sendRequest(ctx, "PATCH", reqURL,
		map[string]interface{}{"monthly_render_count": nextCount},
		map[string]string{"Prefer": "return=representation"})
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, fmt.Errorf("increment render count: status %d - %s", status, string(body))
	}

	return decodeProfile(body)
}

// ResetAllRenderCounts zeroes monthly_render_count on every profile that has
// used quota, returning the number of rows touched. Used by the monthly
// maintenance tool, not by the request path.
func (c *Client) ResetAllRenderCounts(ctx context.Context) (int, error) {
	if !c.configured() {
		return 0, fmt.Errorf("identity provider is not configured")
	}

	reqURL := fmt.Sprintf("%s/rest/v1/profiles?monthly_render_count=gt.0", c.Config.SupabaseURL)
	body, status, err := c.sendRequest(ctx, "PATCH", reqURL,
		map[string]interface{}{"monthly_render_count": 0},
		map[string]string{"Prefer": "return=representation"})
	if err != nil {
		return 0, err
	}
	if status >= 400 {
		return 0, fmt.Errorf("reset render counts: status %d - %s", status, string(body))
	}

	var rows []Profile
	if err := json.Unmarshal(body, &rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// decodeProfile handles the provider returning either a single object or a
// one-element array under Prefer: return=representation.
func decodeProfile(body []byte) (*Profile, error) {
	var profiles []Profile
	if err := json.Unmarshal(body, &profiles); err == nil {
		if len(profiles) == 0 {
			return nil, nil
		}
		return &profiles[0], nil
	}
	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
