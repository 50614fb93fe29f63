// SPDX-License-Identifier: MIT

package panelapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/talosproj/talos/internal/cache"
	"github.com/talosproj/talos/internal/log"
	"github.com/talosproj/talos/internal/telemetry"
	"github.com/talosproj/talos/internal/variant"
)

// DefaultBaseURL is the PanelApp Australia panels endpoint.
const DefaultBaseURL = "https://panelapp.agha.umccr.org/api/v1/panels"

var hpoTermRe = regexp.MustCompile(`HP:[0-9]+`)

// Client queries the PanelApp API with rate limiting, retries and
// response caching. PanelApp is a shared public service; the limiter is
// deliberately polite.
type Client struct {
	base       string
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
	userAgent  string
	cache      cache.Cache
	cacheTTL   time.Duration
	logger     zerolog.Logger
	rnd        *rand.Rand
	mu         sync.Mutex
}

// Options configures the PanelApp client behaviour.
type Options struct {
	Timeout        time.Duration
	MaxRetries     int
	Backoff        time.Duration
	MaxBackoff     time.Duration
	RateLimit      rate.Limit
	RateLimitBurst int
	UserAgent      string
	Cache          cache.Cache
	CacheTTL       time.Duration
}

const (
	// Panel payloads run to megabytes; the timeout covers the full body.
	defaultTimeout        = 60 * time.Second
	defaultRetries        = 3
	defaultBackoff        = 500 * time.Millisecond
	defaultMaxBackoff     = 8 * time.Second
	defaultRateLimit      = 4
	defaultRateLimitBurst = 4
	defaultCacheTTL       = 24 * time.Hour
)

// NewClient creates a PanelApp client. An empty base uses the PanelApp
// Australia endpoint.
func NewClient(base string, opts Options) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	nopts := normalizeOptions(opts)

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{
			Timeout:   nopts.Timeout,
			Transport: transport,
		},
		limiter:    rate.NewLimiter(nopts.RateLimit, nopts.RateLimitBurst),
		maxRetries: nopts.MaxRetries,
		backoff:    nopts.Backoff,
		maxBackoff: nopts.MaxBackoff,
		userAgent:  nopts.UserAgent,
		cache:      nopts.Cache,
		cacheTTL:   nopts.CacheTTL,
		logger:     log.WithComponent("panelapp"),
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter only
	}
}

func normalizeOptions(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultRetries
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(defaultRateLimit)
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = defaultRateLimitBurst
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = "talos-pipeline"
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNoOpCache()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	return opts
}

// PanelResponse is the subset of a PanelApp panel payload the pipeline
// reads.
type PanelResponse struct {
	ID      int         `json:"id"`
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Genes   []PanelGene `json:"genes"`
}

// PanelGene is one gene entity on a panel.
type PanelGene struct {
	EntityName        string   `json:"entity_name"`
	EntityType        string   `json:"entity_type"`
	ConfidenceLevel   string   `json:"confidence_level"`
	ModeOfInheritance string   `json:"mode_of_inheritance"`
	GeneData          GeneData `json:"gene_data"`
}

// GeneData carries the per-build Ensembl annotations. The outer key is
// the genome build, the inner key the Ensembl release.
type GeneData struct {
	EnsemblGenes map[string]map[string]EnsemblGene `json:"ensembl_genes"`
}

// EnsemblGene is one build's Ensembl annotation for a gene.
type EnsemblGene struct {
	EnsemblID string `json:"ensembl_id"`
	Location  string `json:"location"`
}

// GRCh38 returns the gene's Ensembl ID and chromosome on GRCh38, or
// empty strings when the panel entry lacks the annotation. The build key
// is matched case-insensitively because PanelApp capitalises it oddly.
func (g GeneData) GRCh38() (ensg, chrom string) {
	for build, byRelease := range g.EnsemblGenes {
		if !strings.EqualFold(build, "grch38") {
			continue
		}
		// A single release key is expected; take the lowest for determinism.
		releases := make([]string, 0, len(byRelease))
		for release := range byRelease {
			releases = append(releases, release)
		}
		sort.Strings(releases)
		if len(releases) == 0 {
			continue
		}
		annotation := byRelease[releases[0]]
		ensg = annotation.EnsemblID
		chrom, _, _ = strings.Cut(annotation.Location, ":")
	}
	return ensg, chrom
}

// Panel fetches one panel, optionally pinned to a version.
func (c *Client) Panel(ctx context.Context, panelID int, version string) (*PanelResponse, error) {
	url := fmt.Sprintf("%s/%d", c.base, panelID)
	if version != "" {
		url += "?version=" + version
	}

	var resp PanelResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("panel %d: %w", panelID, err)
	}
	return &resp, nil
}

// panelsPage is one page of the panel listing endpoint.
type panelsPage struct {
	Next    *string `json:"next"`
	Results []struct {
		ID                int      `json:"id"`
		RelevantDisorders []string `json:"relevant_disorders"`
	} `json:"results"`
}

// PanelsByHPO walks the paginated panel listing and collects panel IDs
// per HP term found in each panel's relevant disorders.
func (c *Client) PanelsByHPO(ctx context.Context) (map[string]variant.IntSet, error) {
	byHPO := make(map[string]variant.IntSet)

	next := c.base + "/"
	for next != "" {
		var page panelsPage
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("panel listing: %w", err)
		}
		for _, panel := range page.Results {
			disorders := strings.Join(panel.RelevantDisorders, " ")
			for _, term := range hpoTermRe.FindAllString(disorders, -1) {
				if byHPO[term] == nil {
					byHPO[term] = variant.NewIntSet()
				}
				byHPO[term].Add(panel.ID)
			}
		}
		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}

	c.logger.Info().Int("terms", len(byHPO)).Msg("collected panels by phenotype term")
	return byHPO, nil
}

// getJSON fetches a URL through the cache and decodes the payload.
func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	key := "panelapp:" + url
	if body, ok := c.cache.Get(ctx, key); ok {
		return json.Unmarshal(body, v)
	}

	body, err := c.fetch(ctx, url)
	if err != nil {
		return err
	}
	c.cache.Set(ctx, key, body, c.cacheTTL)
	return json.Unmarshal(body, v)
}

// fetch performs a GET with rate limiting and retries on transient
// failures. Client errors such as 404 surface immediately: a retired
// panel will not come back on retry.
func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	tracer := telemetry.Tracer("talos.panelapp")
	ctx, span := tracer.Start(ctx, "panelapp.request", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	maxAttempts := c.maxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

		resp, err := c.http.Do(req)
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		span.SetAttributes(telemetry.HTTPAttributes(http.MethodGet, routeLabel(url), url, status)...)
		span.SetAttributes(attribute.Int("attempt", attempt))

		if err == nil && status == http.StatusOK {
			body, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = readErr
			} else {
				span.SetStatus(codes.Ok, "")
				return body, nil
			}
		} else if err != nil {
			lastErr = err
		} else {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status %d", status)
			if status >= http.StatusBadRequest && status < http.StatusInternalServerError && status != http.StatusTooManyRequests {
				break
			}
		}

		if attempt == maxAttempts {
			break
		}

		wait := c.backoffFor(attempt - 1)
		c.logger.Warn().Err(lastErr).Str("url", url).Dur("backoff", wait).Msg("panelapp request retry")
		if err := sleepWithContext(ctx, wait); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return nil, lastErr
}

func (c *Client) backoffFor(attempt int) time.Duration {
	wait := c.backoff * time.Duration(1<<attempt)
	if wait > c.maxBackoff {
		wait = c.maxBackoff
	}
	jitter := time.Duration(c.randInt63n(int64(wait/5 + 1)))
	return wait + jitter
}

func (c *Client) randInt63n(n int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rnd.Int63n(n)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func routeLabel(url string) string {
	if i := strings.Index(url, "?"); i >= 0 {
		return url[:i]
	}
	return url
}
