package jikan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jikan4/jikan4/cache"
	"github.com/jikan4/jikan4/call"
	"github.com/jikan4/jikan4/observe"
	"github.com/jikan4/jikan4/resilience"
)

const (
	component = "jikan"

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 8 << 20

	requestIDHeader = "X-Request-Id"
)

// Request is a GET against an endpoint relative to the base URL.
type Request struct {
	Endpoint string
	Params   map[string]string
}

// Response is a successful API response.
type Response struct {
	StatusCode int
	Body       []byte
	// RequestID is the X-Request-Id sent with the HTTP request that produced
	// this response. A cache hit returns the ID of that original request.
	RequestID string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Config.Timeout is ignored when set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithMiddleware instruments requests, cache lookups and throttling.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(c *Client) {
		if mw != nil {
			c.mw = mw
		}
	}
}

// WithSingleflight coalesces concurrent identical requests that miss the cache.
func WithSingleflight() Option {
	return func(c *Client) { c.dedup = true }
}

// Client fetches Jikan resources through a rate limiter and response cache.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Caching: only 2xx responses are cached; errors are returned unchanged
//     and the next identical call goes to the network again.
//   - Isolation: limiter and cache are per Client.
type Client struct {
	cfg     Config
	http    *http.Client
	mw      *observe.Middleware
	logger  observe.Logger
	dedup   bool
	limiter *resilience.RateLimiter
	request call.Callable[Request, Response]
	fetch   *cache.Memoizer[Request, Response]
}

// New creates a client. Config is validated and normalized first.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg: cfg,
		mw:  observe.NewMiddleware(nil, nil, nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}

	metrics := c.mw.Metrics()
	c.logger = c.mw.Logger().WithCall(observe.CallMeta{Component: component, Name: "http"})

	limiter, err := resilience.NewRateLimiter(cfg.RateLimit,
		resilience.WithCallMeta(observe.CallMeta{Component: component, Name: "ratelimit"}),
		resilience.WithMetrics(metrics),
		resilience.WithLogger(c.mw.Logger()),
	)
	if err != nil {
		return nil, fmt.Errorf("jikan: %w", err)
	}
	c.limiter = limiter

	responses, err := cache.NewLRU[Response](cfg.CacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("jikan: %w", err)
	}

	request := call.Chain[Request, Response](
		call.Func[Request, Response](c.do),
		observe.Wrapper[Request, Response](c.mw, observe.CallMeta{Component: component, Name: "request"}),
		resilience.Limiting[Request, Response](limiter),
	)

	memoOpts := []cache.Option{
		cache.WithCallMeta(observe.CallMeta{Component: component, Name: "cache"}),
		cache.WithMetrics(metrics),
		cache.WithLogger(c.mw.Logger()),
	}
	if c.dedup {
		memoOpts = append(memoOpts, cache.WithSingleflight())
	}
	c.request = request
	c.fetch = cache.Memoize(responses, request, memoOpts...)

	return c, nil
}

// Config returns the normalized configuration.
func (c *Client) Config() Config { return c.cfg }

// Limiter returns the client's rate limiter.
func (c *Client) Limiter() *resilience.RateLimiter { return c.limiter }

// Fetcher returns the full request pipeline as a Callable.
func (c *Client) Fetcher() call.Callable[Request, Response] { return c.fetch }

// Get performs req through the cache and rate limiter.
func (c *Client) Get(ctx context.Context, req Request) (Response, error) {
	return c.fetch.Call(ctx, req)
}

// GetAnime fetches /anime/{id}.
func (c *Client) GetAnime(ctx context.Context, id int) (*Anime, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidID, id)
	}
	return getData[Anime](ctx, c, AnimeRequest(id))
}

// GetManga fetches /manga/{id}.
func (c *Client) GetManga(ctx context.Context, id int) (*Manga, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidID, id)
	}
	return getData[Manga](ctx, c, MangaRequest(id))
}

// GetCharacter fetches /characters/{id}.
func (c *Client) GetCharacter(ctx context.Context, id int) (*Character, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidID, id)
	}
	return getData[Character](ctx, c, CharacterRequest(id))
}

// SearchAnime queries /anime.
func (c *Client) SearchAnime(ctx context.Context, params SearchParams) (*AnimeSearch, error) {
	if strings.TrimSpace(params.Query) == "" {
		return nil, ErrEmptyQuery
	}

	var result AnimeSearch
	if err := c.getJSON(ctx, params.Request(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AnimeFetcher adapts GetAnime to a Callable for use with call.Go.
func (c *Client) AnimeFetcher() call.Callable[int, *Anime] {
	return call.Func[int, *Anime](c.GetAnime)
}

// MangaFetcher adapts GetManga to a Callable.
func (c *Client) MangaFetcher() call.Callable[int, *Manga] {
	return call.Func[int, *Manga](c.GetManga)
}

// CharacterFetcher adapts GetCharacter to a Callable.
func (c *Client) CharacterFetcher() call.Callable[int, *Character] {
	return call.Func[int, *Character](c.GetCharacter)
}

// Ping requests the API root, bypassing the cache. It still takes a rate
// limit slot.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.request.Call(ctx, Request{})
	return err
}

// CacheLen returns the number of cached responses.
func (c *Client) CacheLen() int { return c.fetch.Cache().Len() }

// CacheCap returns the cache capacity.
func (c *Client) CacheCap() int { return c.fetch.Cache().Cap() }

// ClearCache drops every cached response.
func (c *Client) ClearCache() { c.fetch.Cache().Clear() }

// CacheKey returns the cache key used for req.
func (c *Client) CacheKey(req Request) cache.Key { return c.fetch.Key(req) }

// CacheContains reports whether key is cached.
func (c *Client) CacheContains(key cache.Key) bool { return c.fetch.Cache().Contains(key) }

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// AnimeRequest is the request GetAnime issues.
func AnimeRequest(id int) Request {
	return Request{Endpoint: "anime/" + strconv.Itoa(id)}
}

// MangaRequest is the request GetManga issues.
func MangaRequest(id int) Request {
	return Request{Endpoint: "manga/" + strconv.Itoa(id)}
}

// CharacterRequest is the request GetCharacter issues.
func CharacterRequest(id int) Request {
	return Request{Endpoint: "characters/" + strconv.Itoa(id)}
}

// SearchParams are the /anime search filters. Zero values are omitted.
type SearchParams struct {
	Query   string
	Type    string // tv, movie, ova, special, ona, music
	Status  string // airing, complete, upcoming
	OrderBy string
	Sort    string // asc, desc
	Page    int
	Limit   int
	SFW     bool
}

// Request is the request SearchAnime issues for p.
func (p SearchParams) Request() Request {
	params := map[string]string{"q": strings.TrimSpace(p.Query)}
	set := func(k, v string) {
		if v != "" {
			params[k] = v
		}
	}
	set("type", p.Type)
	set("status", p.Status)
	set("order_by", p.OrderBy)
	set("sort", p.Sort)
	if p.Page > 0 {
		params["page"] = strconv.Itoa(p.Page)
	}
	if p.Limit > 0 {
		params["limit"] = strconv.Itoa(p.Limit)
	}
	if p.SFW {
		params["sfw"] = "true"
	}
	return Request{Endpoint: "anime", Params: params}
}

func getData[T any](ctx context.Context, c *Client, req Request) (*T, error) {
	var env envelope[T]
	if err := c.getJSON(ctx, req, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) getJSON(ctx context.Context, req Request, v any) error {
	resp, err := c.fetch.Call(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("jikan: decode %s: %w", req.Endpoint, err)
	}
	return nil
}

// do performs the HTTP round trip. Non-2xx statuses become *APIError.
func (c *Client) do(ctx context.Context, req Request) (Response, error) {
	endpoint := strings.TrimLeft(req.Endpoint, "/")
	target := c.cfg.BaseURL
	if endpoint != "" {
		target += "/" + endpoint
	}
	if len(req.Params) > 0 {
		q := make(url.Values, len(req.Params))
		for k, v := range req.Params {
			q.Set(k, v)
		}
		target += "?" + q.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Response{}, fmt.Errorf("jikan: build request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(requestIDHeader, requestID)
	if c.cfg.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("jikan: GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{}, fmt.Errorf("jikan: read %s: %w", endpoint, err)
	}

	c.logger.Debug(ctx, "http response",
		observe.F("endpoint", endpoint),
		observe.F("status", resp.StatusCode),
		observe.F("request_id", requestID),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, newAPIError(resp.StatusCode, endpoint, requestID, body)
	}
	return Response{StatusCode: resp.StatusCode, Body: body, RequestID: requestID}, nil
}
