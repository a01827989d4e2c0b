package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dca-grid-console/internal/config"
	"dca-grid-console/internal/models"
	"dca-grid-console/internal/session"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client is the typed gateway to the bot service. Every call carries
// the session's bearer token and is retried at most once, on the single
// authorization failure the session manager handles; any other failure
// propagates immediately.
type Client struct {
	http    *resty.Client
	session *session.Manager
	logger  *zap.Logger
	limiter *rate.Limiter
}

// NewClient creates a gateway against the configured backend.
func NewClient(cfg *config.Backend, sess *session.Manager, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetHeader("Content-Type", "application/json")

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		http:    client,
		session: sess,
		logger:  logger,
		limiter: limiter,
	}
}

// authorized runs build through the session manager, waiting on the
// rate limiter before each attempt.
func (c *Client) authorized(ctx context.Context, build func(r *resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	return c.session.Do(ctx, func(token string) (*resty.Response, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}
		return build(c.http.R().SetContext(ctx).SetAuthToken(token))
	})
}

// errorBody is the failure shape the backend responds with.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// checkResponse folds a transport result into the error taxonomy. The
// session manager's re-authentication signal passes through untouched
// so the caller can tell "log in again" apart from "server unreachable".
func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		if errors.Is(err, session.ErrReauthenticate) {
			return err
		}
		return &NetworkError{Err: err}
	}
	if resp == nil || resp.RawResponse == nil {
		return &NetworkError{}
	}
	if !resp.IsError() {
		return nil
	}

	message := resp.Status()
	var body errorBody
	if jerr := json.Unmarshal(resp.Body(), &body); jerr == nil && len(body.Detail) > 0 {
		var detail string
		if json.Unmarshal(body.Detail, &detail) == nil && detail != "" {
			message = detail
		}
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: message}
}

// SetupBotConfig registers the configuration with the backend and
// returns the created record.
func (c *Client) SetupBotConfig(ctx context.Context, cfg *models.Configuration) (*models.BotConfigRecord, error) {
	var wire botConfigResponseWire
	resp, err := c.authorized(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(configToWire(cfg)).SetResult(&wire).Post("/bot_config/setup/")
	})
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("failed to set up bot config: %w", err)
	}
	rec := configRecordFromWire(&wire)
	return &rec, nil
}

// StartBot opens the first cycle for the configuration.
func (c *Client) StartBot(ctx context.Context, configID uuid.UUID) (*models.BotIdentity, error) {
	var wire startResponseWire
	resp, err := c.authorized(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&wire).Post(fmt.Sprintf("/bot_config/%s/start/", configID))
	})
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("failed to start bot: %w", err)
	}

	identity := &models.BotIdentity{ConfigID: configID}
	if wire.CycleID != uuid.Nil {
		id := wire.CycleID
		identity.CycleID = &id
	}
	c.logger.Info("Bot started", zap.String("config_id", configID.String()))
	return identity, nil
}

// StopBot closes the running bot for the configuration.
func (c *Client) StopBot(ctx context.Context, configID uuid.UUID) error {
	resp, err := c.authorized(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.Post(fmt.Sprintf("/bot_config/%s/stop/", configID))
	})
	if err := checkResponse(resp, err); err != nil {
		return fmt.Errorf("failed to stop bot: %w", err)
	}
	c.logger.Info("Bot stopped", zap.String("config_id", configID.String()))
	return nil
}

// GetBotConfig fetches one configuration record.
func (c *Client) GetBotConfig(ctx context.Context, configID uuid.UUID) (*models.BotConfigRecord, error) {
	var wire botConfigResponseWire
	resp, err := c.authorized(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&wire).Get(fmt.Sprintf("/bot_config/%s/", configID))
	})
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("failed to get bot config: %w", err)
	}
	rec := configRecordFromWire(&wire)
	return &rec, nil
}

// ListBotConfigs fetches every configuration of the operator.
func (c *Client) ListBotConfigs(ctx context.Context) ([]models.BotConfigRecord, error) {
	var wire []botConfigResponseWire
	resp, err := c.authorized(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&wire).Get("/bot_config/")
	})
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("failed to list bot configs: %w", err)
	}

	records := make([]models.BotConfigRecord, 0, len(wire))
	for i := range wire {
		records = append(records, configRecordFromWire(&wire[i]))
	}
	return records, nil
}

// GetLastActiveConfig fetches the most recently active configuration,
// nil when the operator has none.
func (c *Client) GetLastActiveConfig(ctx context.Context) (*models.BotConfigRecord, error) {
	var wire *botConfigResponseWire
	resp, err := c.authorized(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&wire).Get("/bot_config/last-active/")
	})
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("failed to get last active config: %w", err)
	}
	if wire == nil || wire.ID == uuid.Nil {
		return nil, nil
	}
	rec := configRecordFromWire(wire)
	return &rec, nil
}

// GetCycle fetches one cycle by id.
func (c *Client) GetCycle(ctx context.Context, cycleID uuid.UUID) (*models.CurrentCycle, error) {
	var wire cycleWire
	resp, err := c.authorized(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&wire).Get(fmt.Sprintf("/cycles/%s", cycleID))
	})
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("failed to get cycle: %w", err)
	}
	return cycleFromWire(&wire), nil
}

// GetStats fetches the dashboard snapshot for the configuration.
func (c *Client) GetStats(ctx context.Context, configID uuid.UUID) (*models.DashboardSnapshot, error) {
	var wire statsWire
	resp, err := c.authorized(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&wire).
			SetQueryParam("config_id", configID.String()).
			Get("/stats/")
	})
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return snapshotFromWire(&wire), nil
}

// GetTrailingStats fetches the trailing take-profit view for the
// configuration.
func (c *Client) GetTrailingStats(ctx context.Context, configID uuid.UUID) (*models.TrailingStats, error) {
	var wire trailingStatsWire
	resp, err := c.authorized(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&wire).
			Get(fmt.Sprintf("/bot_config/%s/trailing-stats/", configID))
	})
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("failed to get trailing stats: %w", err)
	}
	return trailingFromWire(&wire), nil
}

// CheckBalance validates the exchange credentials by fetching the quote
// balance through the backend.
func (c *Client) CheckBalance(ctx context.Context, apiKey, apiSecret string) (*models.Balance, error) {
	var wire balanceWire
	resp, err := c.authorized(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(balanceRequestWire{APIKey: apiKey, APISecret: apiSecret}).
			SetResult(&wire).
			Post("/user/balance/")
	})
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("failed to check balance: %w", err)
	}
	balance := balanceFromWire(&wire)
	return &balance, nil
}
