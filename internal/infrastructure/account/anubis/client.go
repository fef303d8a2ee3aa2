package anubis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/arisan/internal/domain/user"
	"github.com/riskibarqy/arisan/internal/platform/cache"
	"github.com/riskibarqy/arisan/internal/platform/logging"
	"github.com/riskibarqy/arisan/internal/platform/resilience"
	"github.com/riskibarqy/arisan/internal/usecase"
)

const (
	defaultCacheTTL   = 2 * time.Minute
	maxResponseBytes  = 1 << 20
	adminKeyHeaderKey = "x-admin-key"
)

var errAnubisTransient = crerr.New("anubis transient failure")

type Config struct {
	BaseURL        string
	IntrospectPath string
	AdminKey       string
	CacheTTL       time.Duration
	Circuit        resilience.CircuitBreakerConfig
}

// Client verifies access tokens against the anubis introspection endpoint.
// Active principals are cached by token hash.
type Client struct {
	httpClient    *http.Client
	introspectURL string
	adminKey      string
	breaker       *resilience.CircuitBreaker
	principals    *cache.Store[user.Principal]
	logger        *logging.Logger
}

func NewClient(httpClient *http.Client, cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}

	return &Client{
		httpClient:    httpClient,
		introspectURL: buildURL(cfg.BaseURL, cfg.IntrospectPath),
		adminKey:      strings.TrimSpace(cfg.AdminKey),
		breaker:       resilience.NewCircuitBreakerFromConfig(cfg.Circuit),
		principals:    cache.NewStore[user.Principal](cfg.CacheTTL),
		logger:        logger.Named("anubis"),
	}
}

func (c *Client) VerifyAccessToken(ctx context.Context, token string) (user.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return user.Principal{}, fmt.Errorf("%w: token is required", usecase.ErrUnauthorized)
	}

	return c.principals.GetOrLoad(ctx, hashToken(token), func(ctx context.Context) (user.Principal, error) {
		var principal user.Principal
		err := c.breaker.ExecuteClassified(ctx, func(ctx context.Context) error {
			var err error
			principal, err = c.introspect(ctx, token)
			return err
		}, isCircuitFailure)

		switch {
		case err == nil:
			return principal, nil
		case crerr.Is(err, resilience.ErrCircuitOpen):
			return user.Principal{}, fmt.Errorf("%w: anubis circuit open", usecase.ErrDependencyUnavailable)
		case isCircuitFailure(err):
			c.logger.WarnContext(ctx, "anubis introspection unavailable", "error", err)
			return user.Principal{}, fmt.Errorf("%w: %w", usecase.ErrDependencyUnavailable, err)
		default:
			return user.Principal{}, err
		}
	})
}

func (c *Client) introspect(ctx context.Context, token string) (user.Principal, error) {
	encoded, err := sonic.Marshal(introspectRequest{Token: token})
	if err != nil {
		return user.Principal{}, crerr.Wrap(err, "marshal introspect request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.introspectURL, bytes.NewReader(encoded))
	if err != nil {
		return user.Principal{}, crerr.Wrap(err, "create introspect request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.adminKey != "" {
		req.Header.Set(adminKeyHeaderKey, c.adminKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return user.Principal{}, crerr.Mark(crerr.Wrap(err, "request introspection to anubis"), errAnubisTransient)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return user.Principal{}, crerr.Mark(crerr.Wrap(err, "read introspect response"), errAnubisTransient)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return user.Principal{}, fmt.Errorf("%w: introspection denied", usecase.ErrUnauthorized)
	case resp.StatusCode == http.StatusForbidden:
		// The admin key was refused; callers cannot fix this.
		c.logger.WarnContext(ctx, "anubis rejected admin key", "status_code", resp.StatusCode)
		return user.Principal{}, fmt.Errorf("%w: anubis rejected admin key", usecase.ErrDependencyUnavailable)
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		return user.Principal{}, crerr.Mark(crerr.Newf("anubis introspection failed with status %d", resp.StatusCode), errAnubisTransient)
	case resp.StatusCode != http.StatusOK:
		c.logger.WarnContext(ctx, "anubis introspection non-200", "status_code", resp.StatusCode)
		return user.Principal{}, crerr.Newf("anubis introspection failed with status %d", resp.StatusCode)
	}

	var decoded introspectResponse
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return user.Principal{}, crerr.Wrap(err, "unmarshal introspect response")
	}
	if !decoded.Active {
		return user.Principal{}, fmt.Errorf("%w: inactive token", usecase.ErrUnauthorized)
	}
	if strings.TrimSpace(decoded.UserID) == "" {
		return user.Principal{}, crerr.New("invalid introspect response: user_id is empty")
	}

	return user.Principal{
		UserID: decoded.UserID,
		Email:  decoded.Email,
		Name:   decoded.Name,
	}, nil
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Active bool   `json:"active"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}
