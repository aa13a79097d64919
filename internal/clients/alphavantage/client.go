// Package alphavantage provides a client for the Alpha Vantage quote API.
//
// The provider reports most failures inside HTTP-200 bodies ("soft
// errors"), so every successful response is probed for known error
// markers before strict decoding. Quote requests additionally race
// against a timeout so a hung transport can never block the caller.
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/papertrader/papertrader/internal/common"
	"github.com/papertrader/papertrader/internal/models"
)

// Failure taxonomy surfaced to callers. Match with errors.Is.
var (
	ErrInvalidURL        = errors.New("invalid request URL")
	ErrNetwork           = errors.New("network error")
	ErrDecoding          = errors.New("failed to decode response")
	ErrNoData            = errors.New("no data received")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrInvalidSymbol     = errors.New("stock symbol not found")
	ErrMalformedResponse = errors.New("unexpected response format")
	ErrTimeout           = errors.New("request timed out")
)

const (
	DefaultBaseURL      = "https://www.alphavantage.co/query"
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultQuoteTimeout = 15 * time.Second
	DefaultRateLimit    = 5 // requests per second
)

// Client issues symbol-search and quote requests against Alpha Vantage.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	logger       *common.Logger
	limiter      *rate.Limiter
	quoteTimeout time.Duration
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the request rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithHTTPClient sets the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithQuoteTimeout bounds how long a single Quote call may take
func WithQuoteTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.quoteTimeout = timeout
	}
}

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultHTTPTimeout,
		},
		limiter:      rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:       common.NewSilentLogger(),
		quoteTimeout: DefaultQuoteTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Search looks up instruments matching query. A query shorter than two
// characters after trimming returns no matches without a request.
// Search is advisory: transport and decode failures come back as an
// empty result, but a detected rate-limit marker is propagated.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchMatch, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("function", "SYMBOL_SEARCH")
	params.Set("keywords", query)

	body, err := c.get(ctx, params)
	if err != nil {
		if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrInvalidURL) {
			return nil, err
		}
		c.logger.Debug().Err(err).Str("query", query).Msg("Search request failed, returning no results")
		return nil, nil
	}

	if err := sniffSoftError(body, false); err != nil {
		if errors.Is(err, ErrRateLimited) {
			return nil, err
		}
		c.logger.Debug().Err(err).Str("query", query).Msg("Search soft error, returning no results")
		return nil, nil
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Debug().Err(err).Str("query", query).Msg("Search decode failed, returning no results")
		return nil, nil
	}

	matches := make([]models.SearchMatch, 0, len(resp.BestMatches))
	for _, m := range resp.BestMatches {
		// The provider sometimes omits the type field; keep untyped
		// entries alongside equities.
		if m.Type != "" && !strings.Contains(m.Type, "Equity") {
			continue
		}
		matches = append(matches, models.SearchMatch{
			Symbol:     m.Symbol,
			Name:       m.Name,
			Type:       m.Type,
			Region:     m.Region,
			Currency:   m.Currency,
			MatchScore: m.MatchScore,
		})
	}

	return matches, nil
}

// Quote fetches a current quote for symbol. The fetch races against the
// configured timeout; if the timer wins the fetch is cancelled and the
// call fails with ErrTimeout.
func (c *Client) Quote(ctx context.Context, symbol string) (*models.Stock, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		stock *models.Stock
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		stock, err := c.fetchQuote(ctx, strings.ToUpper(symbol))
		done <- outcome{stock, err}
	}()

	timer := time.NewTimer(c.quoteTimeout)
	defer timer.Stop()

	select {
	case o := <-done:
		return o.stock, o.err
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) fetchQuote(ctx context.Context, symbol string) (*models.Stock, error) {
	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	if err := sniffSoftError(body, true); err != nil {
		return nil, err
	}

	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, ErrDecoding
	}

	// The provider returns an empty quote object inside a 200 for
	// unknown symbols; that is a domain error, not a parse success.
	if resp.GlobalQuote.Symbol == "" {
		return nil, ErrInvalidSymbol
	}

	return &models.Stock{
		Symbol: resp.GlobalQuote.Symbol,
		// Company name lookup is a separate endpoint; the symbol stands in.
		CompanyName:   resp.GlobalQuote.Symbol,
		CurrentPrice:  ParseDecimal(resp.GlobalQuote.Price),
		PriceChange:   ParseDecimal(resp.GlobalQuote.Change),
		PercentChange: ParsePercent(resp.GlobalQuote.ChangePercent),
	}, nil
}

// Ping verifies provider reachability with a lightweight search.
func (c *Client) Ping(ctx context.Context) bool {
	matches, err := c.Search(ctx, "AAPL")
	if err != nil {
		return false
	}
	return len(matches) > 0
}

// get performs a rate-limited GET and returns the raw 200 body.
func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, ErrNetwork
	}

	params.Set("apikey", c.apiKey)
	reqURL := c.baseURL + "?" + params.Encode()
	if _, err := url.ParseRequestURI(reqURL); err != nil {
		return nil, ErrInvalidURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, ErrInvalidURL
	}

	c.logger.Debug().Str("function", params.Get("function")).Msg("Alpha Vantage request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ErrNetwork
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrNetwork
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrNetwork
	}
	if len(body) == 0 {
		return nil, ErrNoData
	}

	return body, nil
}

// sniffSoftError probes a 200 body for provider-level error markers
// before any strict decoding. The provider's error payloads do not match
// the success schema, so sniffing must come first or every soft error
// would surface as a generic decode failure.
func sniffSoftError(body []byte, expectQuote bool) error {
	var probe map[string]any
	if err := json.Unmarshal(body, &probe); err != nil {
		// Not a JSON object; leave it for the structural decoder.
		return nil
	}

	if msg, ok := probe["Error Message"].(string); ok && msg != "" {
		return ErrInvalidSymbol
	}

	if note, ok := probe["Note"].(string); ok {
		if strings.Contains(strings.ToLower(note), "rate limit") {
			return ErrRateLimited
		}
	}

	if expectQuote {
		if quote, ok := probe["Global Quote"].(map[string]any); ok && len(quote) == 0 {
			return ErrInvalidSymbol
		}
	}

	if len(probe) == 0 {
		return ErrMalformedResponse
	}

	return nil
}

// quoteResponse mirrors the provider's GLOBAL_QUOTE schema. All numeric
// values arrive as quoted strings under terse numeric-code field names.
type quoteResponse struct {
	GlobalQuote struct {
		Symbol        string `json:"01. symbol"`
		Open          string `json:"02. open"`
		High          string `json:"03. high"`
		Low           string `json:"04. low"`
		Price         string `json:"05. price"`
		Volume        string `json:"06. volume"`
		LatestDay     string `json:"07. latest trading day"`
		PreviousClose string `json:"08. previous close"`
		Change        string `json:"09. change"`
		ChangePercent string `json:"10. change percent"`
	} `json:"Global Quote"`
}

// searchResponse mirrors the provider's SYMBOL_SEARCH schema.
type searchResponse struct {
	BestMatches []struct {
		Symbol     string `json:"1. symbol"`
		Name       string `json:"2. name"`
		Type       string `json:"3. type"`
		Region     string `json:"4. region"`
		Currency   string `json:"8. currency"`
		MatchScore string `json:"9. matchScore"`
	} `json:"bestMatches"`
}
