package sleep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/fitness/v1"
	"google.golang.org/api/option"

	"github.com/teslashibe/go-wraith/internal/httpc"
	"github.com/teslashibe/go-wraith/internal/log"
)

// Google Fit constants.
const (
	// SleepActivityType is the Fit activity type for sleep sessions.
	SleepActivityType = 72

	// FitLookback is how far back sessions are summed.
	FitLookback = 30 * time.Hour

	MsgFitSynced = "Google Fit sleep synced"
)

var (
	// ErrFitNotConfigured is returned when client credentials are missing.
	ErrFitNotConfigured = errors.New("sleep: GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required")

	// ErrFitNotAuthenticated is returned when no token is available.
	ErrFitNotAuthenticated = errors.New("sleep: not authenticated with Google Fit")

	// ErrNoSleepSessions is returned when the lookback holds no sleep.
	ErrNoSleepSessions = errors.New("sleep: no sleep sessions found")
)

// FitConfig configures the Google Fit client.
type FitConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "http://localhost:8080/api/fit/callback"
	TokenPath    string // Path to store token (default: ~/.wraith/fit_token.json)
}

// FitClient reads last night's sleep from Google Fit.
type FitClient struct {
	config    *oauth2.Config
	tokenPath string

	mu      sync.RWMutex
	token   *oauth2.Token
	service *fitness.Service
}

// NewFitClient creates a Fit client and loads a stored token if present.
func NewFitClient(cfg FitConfig) (*FitClient, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrFitNotConfigured
	}
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = "http://localhost:8080/api/fit/callback"
	}
	if cfg.TokenPath == "" {
		homeDir, _ := os.UserHomeDir()
		cfg.TokenPath = filepath.Join(homeDir, ".wraith", "fit_token.json")
	}

	c := &FitClient{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{fitness.FitnessSleepReadScope},
			Endpoint:     google.Endpoint,
		},
		tokenPath: cfg.TokenPath,
	}

	if err := c.loadToken(); err == nil {
		if err := c.initService(); err != nil {
			c.token = nil
		}
	}
	return c, nil
}

// IsAuthenticated returns true if the client has a usable token.
func (c *FitClient) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != nil && c.service != nil
}

// AuthURL returns the consent URL.
func (c *FitClient) AuthURL(state string) string {
	return c.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// HandleCallback exchanges the authorization code and stores the token.
func (c *FitClient) HandleCallback(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	token, err := c.config.Exchange(httpc.OAuthContext(ctx), code)
	if err != nil {
		return fmt.Errorf("sleep: exchange code: %w", err)
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	if err := c.saveToken(); err != nil {
		log.Warn("failed to save fit token", "error", err)
	}
	return c.initService()
}

// LastSleepHours sums sleep sessions over the lookback ending at now and
// returns the total in hours, rounded to 0.01.
func (c *FitClient) LastSleepHours(ctx context.Context, now time.Time) (float64, error) {
	c.mu.RLock()
	svc := c.service
	c.mu.RUnlock()
	if svc == nil {
		return 0, ErrFitNotAuthenticated
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := svc.Users.Sessions.List("me").
		StartTime(now.Add(-FitLookback).UTC().Format(time.RFC3339)).
		EndTime(now.UTC().Format(time.RFC3339)).
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("sleep: list fit sessions: %w", err)
	}

	total := SumSleep(resp.Session)
	if total <= 0 {
		return 0, ErrNoSleepSessions
	}
	return math.Round(total.Hours()*100) / 100, nil
}

// SumSleep totals the positive durations of sleep sessions.
func SumSleep(sessions []*fitness.Session) time.Duration {
	var total time.Duration
	for _, s := range sessions {
		if s == nil || s.ActivityType != SleepActivityType {
			continue
		}
		if d := s.EndTimeMillis - s.StartTimeMillis; d > 0 {
			total += time.Duration(d) * time.Millisecond
		}
	}
	return total
}

func (c *FitClient) initService() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == nil {
		return ErrFitNotAuthenticated
	}

	ctx := httpc.OAuthContext(context.Background())
	svc, err := fitness.NewService(ctx, option.WithHTTPClient(c.config.Client(ctx, c.token)))
	if err != nil {
		return fmt.Errorf("sleep: create fitness service: %w", err)
	}
	c.service = svc
	return nil
}

func (c *FitClient) loadToken() error {
	data, err := os.ReadFile(c.tokenPath)
	if err != nil {
		return err
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return err
	}

	c.mu.Lock()
	c.token = &token
	c.mu.Unlock()
	return nil
}

func (c *FitClient) saveToken() error {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token == nil {
		return ErrFitNotAuthenticated
	}
	if err := os.MkdirAll(filepath.Dir(c.tokenPath), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.tokenPath, data, 0600)
}
