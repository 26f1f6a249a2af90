package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dakshkumar96/Reclaim-sub000/internal/challenge"
)

// httpClient talks to the Reclaim REST API.
type httpClient struct {
	baseURL      string
	serviceToken string
	client       *http.Client
}

// NewHTTPClient creates a backend client against the given base URL.
// serviceToken is sent as a bearer token on every request.
func NewHTTPClient(baseURL, serviceToken string) Client {
	return &httpClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		serviceToken: strings.TrimSpace(serviceToken),
		client:       &http.Client{Timeout: 10 * time.Second},
	}
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *httpClient) do(ctx context.Context, method, path, userID string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceToken)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("reclaim api status %d", resp.StatusCode)
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !envelope.Success {
		return &RejectionError{Message: envelope.Message}
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
	}
	return nil
}

func (c *httpClient) FetchProfile(ctx context.Context, userID string) (Profile, error) {
	var out struct {
		Profile Profile `json:"profile"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/profile", userID, nil, &out); err != nil {
		return Profile{}, err
	}
	return out.Profile, nil
}

func (c *httpClient) ListChallenges(ctx context.Context) ([]challenge.Challenge, error) {
	var out struct {
		Challenges []challenge.Challenge `json:"challenges"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/challenges", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Challenges, nil
}

func (c *httpClient) ListActiveChallenges(ctx context.Context, userID string) ([]*challenge.Enrollment, error) {
	var out struct {
		ActiveChallenges []*challenge.Enrollment `json:"active_challenges"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/challenges/active", userID, nil, &out); err != nil {
		return nil, err
	}
	return out.ActiveChallenges, nil
}

func (c *httpClient) StartChallenge(ctx context.Context, userID, challengeID string) (StartResult, error) {
	body := map[string]string{"challenge_id": challengeID}
	var out StartResult
	if err := c.do(ctx, http.MethodPost, "/api/challenges/start", userID, body, &out); err != nil {
		return StartResult{}, err
	}
	return out, nil
}

func (c *httpClient) CheckIn(ctx context.Context, userID, challengeID string) (CheckInResult, error) {
	body := map[string]string{"challenge_id": challengeID}
	var out CheckInResult
	if err := c.do(ctx, http.MethodPost, "/api/challenges/checkin", userID, body, &out); err != nil {
		return CheckInResult{}, err
	}
	return out, nil
}

func (c *httpClient) ListUserBadges(ctx context.Context, userID string) ([]BadgeRecord, error) {
	var out struct {
		Badges []BadgeRecord `json:"badges"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/badges/user", userID, nil, &out); err != nil {
		return nil, err
	}
	return out.Badges, nil
}

func (c *httpClient) ListLeaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	var out struct {
		Leaderboard []LeaderboardEntry `json:"leaderboard"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/leaderboard", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Leaderboard, nil
}
