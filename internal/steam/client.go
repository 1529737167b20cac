package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/starford/idlepick/internal/apperr"
	"github.com/starford/idlepick/internal/models"
)

// DefaultBaseURL is the public Steam Web API host.
const DefaultBaseURL = "https://api.steampowered.com"

const (
	resolveVanityPath = "/ISteamUser/ResolveVanityURL/v1/"
	ownedGamesPath    = "/IPlayerService/GetOwnedGames/v1/"
)

// CatalogSource fetches the owned-game catalog of a SteamID64.
type CatalogSource interface {
	OwnedGames(ctx context.Context, apiKey, steamID string, cov Coverage) ([]models.Entry, error)
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// RequestsPerSecond throttles outgoing calls; zero or less disables it.
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// Client is a minimal Steam Web API client. It implements VanityLookup and
// CatalogSource.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
	limiter   *rate.Limiter
}

var (
	_ VanityLookup  = (*Client)(nil)
	_ CatalogSource = (*Client)(nil)
)

// NewClient builds a Client, defaulting to DefaultBaseURL and a 30s timeout.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		http:      hc,
		userAgent: opts.UserAgent,
		limiter:   limiter,
	}
}

type vanityResponse struct {
	Response struct {
		Success int    `json:"success"`
		SteamID string `json:"steamid"`
		Message string `json:"message"`
	} `json:"response"`
}

// ResolveVanity calls ISteamUser/ResolveVanityURL.
func (c *Client) ResolveVanity(ctx context.Context, apiKey, vanity string) (string, error) {
	q := url.Values{}
	q.Set("key", apiKey)
	q.Set("vanityurl", vanity)

	var out vanityResponse
	if err := c.getJSON(ctx, resolveVanityPath, q, &out); err != nil {
		return "", err
	}
	if out.Response.Success != 1 || out.Response.SteamID == "" {
		msg := out.Response.Message
		if msg == "" {
			msg = "no match"
		}
		return "", fmt.Errorf("could not resolve to SteamID64: %s", msg)
	}
	return out.Response.SteamID, nil
}

type ownedGamesResponse struct {
	Response struct {
		GameCount int            `json:"game_count"`
		Games     []models.Entry `json:"games"`
	} `json:"response"`
}

// OwnedGames calls IPlayerService/GetOwnedGames with app info in English.
func (c *Client) OwnedGames(ctx context.Context, apiKey, steamID string, cov Coverage) ([]models.Entry, error) {
	q := url.Values{}
	q.Set("key", apiKey)
	q.Set("steamid", steamID)
	q.Set("include_appinfo", "1")
	q.Set("language", "en")
	cov.apply(q)

	var out ownedGamesResponse
	if err := c.getJSON(ctx, ownedGamesPath, q, &out); err != nil {
		return nil, err
	}
	if out.Response.Games == nil {
		return []models.Entry{}, nil
	}
	return out.Response.Games, nil
}

// getJSON performs a throttled GET and decodes the body. Every failure wraps
// apperr.ErrTransport; the API key never appears in the error text.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrTransport, err)
	}

	endpoint := c.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", apperr.ErrTransport, redact(err))
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrTransport, redact(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%w: %s returned %s", apperr.ErrTransport, path, resp.Status)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<20)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", apperr.ErrTransport, path, err)
	}
	return nil
}

// redact strips the query string from url.Error values, which would
// otherwise carry the API key.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		if u, perr := url.Parse(ue.URL); perr == nil {
			u.RawQuery = ""
			return &url.Error{Op: ue.Op, URL: u.String(), Err: ue.Err}
		}
		return &url.Error{Op: ue.Op, URL: "<redacted>", Err: ue.Err}
	}
	return err
}
