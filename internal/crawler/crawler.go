// Package crawler drives a full run: page the board listing, fetch each
// thread's opening post, classify, aggregate. Strictly sequential with a
// politeness delay between network calls.
package crawler

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/ngascope/ngascope/internal/classify"
	"github.com/ngascope/ngascope/internal/config"
	"github.com/ngascope/ngascope/internal/fetcher"
	"github.com/ngascope/ngascope/internal/observability"
	"github.com/ngascope/ngascope/internal/parser"
	"github.com/ngascope/ngascope/internal/stats"
	"github.com/ngascope/ngascope/internal/types"
)

// State represents the run's current lifecycle phase.
type State int32

const (
	StateStart State = iota
	StatePaging
	StateFetchingContent
	StateClassifying
	StateAggregating
	StateDone
	StateAuthRequired
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StatePaging:
		return "paging"
	case StateFetchingContent:
		return "fetching_content"
	case StateClassifying:
		return "classifying"
	case StateAggregating:
		return "aggregating"
	case StateDone:
		return "done"
	case StateAuthRequired:
		return "auth_required"
	default:
		return "unknown"
	}
}

// Crawler owns the in-progress post list for a run. Nothing else mutates it.
type Crawler struct {
	cfg     *config.Config
	client  *fetcher.Client
	listing *parser.ListingParser
	content *parser.ContentExtractor
	engine  *classify.Engine // nil in degraded (collection-only) mode
	metrics *observability.Metrics
	limiter *rate.Limiter
	logger  *slog.Logger
	state   atomic.Int32
	walled  atomic.Bool
}

// New wires up a Crawler. Pass a nil engine to run in degraded mode where
// stubs and content are still collected but classification is defaulted.
func New(cfg *config.Config, client *fetcher.Client, engine *classify.Engine, metrics *observability.Metrics, logger *slog.Logger) (*Crawler, error) {
	listing, err := parser.NewListingParser(cfg.Forum.BaseURL, logger)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if cfg.Crawl.RequestDelay > 0 {
		limit = rate.Every(cfg.Crawl.RequestDelay)
	}

	return &Crawler{
		cfg:     cfg,
		client:  client,
		listing: listing,
		content: parser.NewContentExtractor(cfg.Content.MaxLength, logger),
		engine:  engine,
		metrics: metrics,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With("component", "crawler"),
	}, nil
}

// State returns the current run phase.
func (c *Crawler) State() State {
	return State(c.state.Load())
}

func (c *Crawler) setState(s State) {
	c.state.Store(int32(s))
	c.logger.Debug("state transition", "state", s.String())
}

// Run executes a complete crawl. Per-page and per-post failures are
// isolated; only an auth wall terminates paging early, and even then the
// already-collected posts flow through classification and aggregation.
// Cancellation is honored between posts and pages, never mid-post, so
// accumulated results stay intact.
func (c *Crawler) Run(ctx context.Context) (*types.Report, error) {
	c.setState(StatePaging)
	stubs := c.collectStubs(ctx)

	c.setState(StateFetchingContent)
	posts := c.fetchContents(ctx, stubs)

	c.setState(StateClassifying)
	posts = c.classifyPosts(ctx, posts)

	c.setState(StateAggregating)
	statistics := stats.Aggregate(posts)

	if c.walled.Load() {
		c.setState(StateAuthRequired)
	} else {
		c.setState(StateDone)
	}
	c.logger.Info("run complete",
		"state", c.State().String(),
		"posts", len(posts),
		"metrics", c.metrics.Snapshot(),
	)

	return &types.Report{
		Posts:       posts,
		Statistics:  statistics,
		GeneratedAt: time.Now(),
	}, nil
}

// collectStubs pages the board listing until the page budget is exhausted,
// a page comes back empty, or the auth wall appears.
func (c *Crawler) collectStubs(ctx context.Context) []types.PostStub {
	maxPages := c.cfg.Crawl.MaxPages
	if maxPages > c.cfg.Crawl.PagesHardCap {
		c.logger.Warn("page budget exceeds hard cap, clamping",
			"requested", maxPages,
			"cap", c.cfg.Crawl.PagesHardCap,
		)
		maxPages = c.cfg.Crawl.PagesHardCap
	}

	seen := make(map[string]bool)
	var stubs []types.PostStub

	for page := 1; page <= maxPages; page++ {
		if ctx.Err() != nil {
			c.logger.Warn("run interrupted during paging", "page", page)
			break
		}
		if err := c.limiter.Wait(ctx); err != nil {
			break
		}

		params := url.Values{}
		params.Set("fid", c.cfg.Forum.ForumID)
		params.Set("page", strconv.Itoa(page))

		_, body, err := c.client.Fetch(ctx, c.cfg.Forum.ListingURL, params)
		if err != nil {
			// One bad page never aborts the run.
			c.metrics.PageErrors.Add(1)
			c.logger.Error("listing page fetch failed", "page", page, "error", err)
			continue
		}
		c.metrics.PagesFetched.Add(1)

		if strings.Contains(string(body), c.cfg.Forum.AuthMarker) {
			c.walled.Store(true)
			c.setState(StateAuthRequired)
			c.logger.Error("login required, stopping paging",
				"page", page,
				"collected", len(stubs),
			)
			break
		}

		pageStubs, err := c.listing.Parse(body)
		if err != nil {
			c.metrics.PageErrors.Add(1)
			c.logger.Error("listing page unparseable", "page", page, "error", err)
			continue
		}
		if len(pageStubs) == 0 {
			c.logger.Info("empty listing page, stopping paging", "page", page)
			break
		}

		added := 0
		for _, s := range pageStubs {
			if seen[s.TopicID] {
				continue
			}
			seen[s.TopicID] = true
			stubs = append(stubs, s)
			added++
		}
		c.metrics.StubsParsed.Add(int64(added))
		c.logger.Info("listing page parsed", "page", page, "stubs", added)
	}

	c.logger.Info("paging finished", "total_stubs", len(stubs))
	return stubs
}

// fetchContents retrieves and extracts each thread's opening post. A fetch
// failure yields an empty content string for that post, never an abort.
func (c *Crawler) fetchContents(ctx context.Context, stubs []types.PostStub) []types.ClassifiedPost {
	posts := make([]types.ClassifiedPost, 0, len(stubs))

	for i, stub := range stubs {
		if ctx.Err() != nil {
			c.logger.Warn("run interrupted during content fetch",
				"fetched", i,
				"remaining", len(stubs)-i,
			)
			break
		}
		if err := c.limiter.Wait(ctx); err != nil {
			break
		}

		c.logger.Debug("fetching post content",
			"index", i+1,
			"total", len(stubs),
			"title", stub.Title,
		)

		content := ""
		_, body, err := c.client.Fetch(ctx, stub.URL, nil)
		if err != nil {
			c.metrics.ContentErrors.Add(1)
			c.logger.Error("post content fetch failed",
				"title", stub.Title,
				"url", stub.URL,
				"error", err,
			)
		} else {
			c.metrics.ContentFetched.Add(1)
			content = c.content.Extract(body)
		}

		posts = append(posts, types.ClassifiedPost{
			PostStub: stub,
			Content:  content,
		})
	}

	return posts
}

// classifyPosts delegates to the classification engine, or defaults every
// record when the run is degraded.
func (c *Crawler) classifyPosts(ctx context.Context, posts []types.ClassifiedPost) []types.ClassifiedPost {
	if c.engine == nil {
		c.logger.Warn("classification disabled, defaulting all posts", "posts", len(posts))
		for i := range posts {
			posts[i].Classification = types.ClassificationResult{
				Categories: []string{classify.CategoryOther},
				Keywords:   []string{},
				Confidence: 0,
			}
			posts[i].ProcessedAt = time.Now()
			posts[i].Error = types.ErrOllamaDisabled.Error()
		}
		return posts
	}

	classified := c.engine.BatchClassify(ctx, posts)
	for _, post := range classified {
		switch {
		case post.Error != "":
			c.metrics.ClassifyErrors.Add(1)
		case post.Classification.Confidence == classify.FallbackConfidence && len(post.Classification.Keywords) == 0:
			c.metrics.Fallbacks.Add(1)
			c.metrics.Classified.Add(1)
		default:
			c.metrics.Classified.Add(1)
		}
	}
	return classified
}
