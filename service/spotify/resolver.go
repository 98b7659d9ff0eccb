package spotify

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/time/rate"

	"github.com/teal-fm/moodmix/config"
	"github.com/teal-fm/moodmix/models"
)

// TrackSearcher is the single catalog call the resolver needs.
type TrackSearcher interface {
	SearchTrack(ctx context.Context, token, query string) (*spotify.FullTrack, error)
}

// cacheEntry holds a resolved match and its expiration time.
type cacheEntry struct {
	id, uri   string
	expiresAt time.Time
}

// Resolver maps suggested tracks to catalog entries. A miss of any kind is
// reported as not found; it never fails the caller.
type Resolver struct {
	searcher TrackSearcher
	limiter  *rate.Limiter
	cleaner  *TitleCleaner // nil disables cleaning
	logger   *slog.Logger

	cache    map[string]cacheEntry
	cacheMu  sync.RWMutex
	cacheTTL time.Duration
}

func NewResolver(searcher TrackSearcher, searchRPS float64, cfg config.ResolveConfig, logger *slog.Logger) *Resolver {
	limit := rate.Inf
	if searchRPS > 0 {
		limit = rate.Limit(searchRPS)
	}
	burst := int(searchRPS)
	if burst < 1 {
		burst = 1
	}

	r := &Resolver{
		searcher: searcher,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger,
		cache:    make(map[string]cacheEntry),
		cacheTTL: cfg.CacheTTL,
	}
	if cfg.CleanTitles {
		r.cleaner = NewTitleCleaner()
	}
	return r
}

// Query builds the search string for t: the cleaned title then the artist.
func (r *Resolver) Query(t models.Track) string {
	name := strings.TrimSpace(t.Name)
	if r.cleaner != nil {
		name, _ = r.cleaner.Clean(name)
	}
	return models.Track{Name: name, Artist: strings.TrimSpace(t.Artist)}.Query()
}

// Resolve returns the first catalog match for t.
func (r *Resolver) Resolve(ctx context.Context, token string, t models.Track) (models.ResolvedTrack, bool) {
	query := r.Query(t)

	if id, uri, ok := r.cached(query); ok {
		r.logger.Debug("resolver cache hit", "query", query)
		return models.ResolvedTrack{Track: t, CatalogID: id, CatalogURI: uri}, true
	}

	if err := r.limiter.Wait(ctx); err != nil {
		r.logger.Warn("search abandoned", "query", query, "err", err)
		return models.ResolvedTrack{}, false
	}

	found, err := r.searcher.SearchTrack(ctx, token, query)
	if err != nil {
		r.logger.Warn("track search failed", "query", query, "err", err)
		return models.ResolvedTrack{}, false
	}
	if found == nil {
		r.logger.Info("no catalog match", "query", query)
		return models.ResolvedTrack{}, false
	}

	id, uri := found.ID.String(), string(found.URI)
	if uri == "" {
		uri = "spotify:track:" + id
	}
	r.store(query, id, uri)

	return models.ResolvedTrack{Track: t, CatalogID: id, CatalogURI: uri}, true
}

func (r *Resolver) cached(query string) (string, string, bool) {
	if r.cacheTTL <= 0 {
		return "", "", false
	}
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	entry, found := r.cache[query]
	if !found || time.Now().After(entry.expiresAt) {
		return "", "", false
	}
	return entry.id, entry.uri, true
}

func (r *Resolver) store(query, id, uri string) {
	if r.cacheTTL <= 0 {
		return
	}
	r.cacheMu.Lock()
	r.cache[query] = cacheEntry{id: id, uri: uri, expiresAt: time.Now().Add(r.cacheTTL)}
	r.cacheMu.Unlock()
}
