package playlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/teal-fm/moodmix/models"
)

// MaxTracks is how many tracks a single attach call accepts.
const MaxTracks = 100

var (
	ErrUnauthenticated      = errors.New("not authenticated with spotify")
	ErrNoTracksFound        = errors.New("no tracks found on spotify")
	ErrPlaylistCreateFailed = errors.New("failed to create playlist")
	ErrTimeout              = errors.New("playlist creation timed out")
	ErrInvalidInput         = errors.New("invalid playlist request")

	// ErrProfileFailed means the token was rejected by the profile call.
	ErrProfileFailed = fmt.Errorf("%w: profile fetch failed", ErrUnauthenticated)
)

// Catalog is the part of the Spotify API the materializer writes through.
type Catalog interface {
	CurrentUserID(ctx context.Context, token string) (string, error)
	CreatePlaylist(ctx context.Context, token, userID, name, description string) (*models.Playlist, error)
	AddTracks(ctx context.Context, token, playlistID string, trackIDs []string) error
}

// Resolver reports the first catalog match for a track, or false.
type Resolver interface {
	Resolve(ctx context.Context, token string, t models.Track) (models.ResolvedTrack, bool)
}

type Request struct {
	PlaylistName        string         `json:"playlistName"`
	PlaylistDescription string         `json:"playlistDescription"`
	Tracks              []models.Track `json:"tracks"`
}

// Validate rejects requests that could never produce a playlist.
func (r Request) Validate() error {
	if strings.TrimSpace(r.PlaylistName) == "" {
		return fmt.Errorf("%w: playlist name is required", ErrInvalidInput)
	}
	if len(r.Tracks) > MaxTracks {
		return fmt.Errorf("%w: at most %d tracks per playlist", ErrInvalidInput, MaxTracks)
	}
	return nil
}

type Result struct {
	Playlist *models.Playlist
	// TracksAdded counts tracks actually attached to the playlist, not the
	// number resolved. It is 0 when Warning is set.
	TracksAdded int
	// Warning is set when the playlist exists but its tracks could not be
	// attached.
	Warning string
}

type Service struct {
	catalog     Catalog
	resolver    Resolver
	concurrency int
	logger      *slog.Logger
}

func NewService(catalog Catalog, resolver Resolver, concurrency int, logger *slog.Logger) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		catalog:     catalog,
		resolver:    resolver,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Materialize turns req into a public Spotify playlist owned by the token's
// user. The first unrecoverable step ends the run; a failed attach does not.
func (s *Service) Materialize(ctx context.Context, token string, req Request) (*Result, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	userID, err := s.catalog.CurrentUserID(ctx, token)
	if err != nil {
		if ctxErr := timedOut(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn("profile fetch failed", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrProfileFailed, err)
	}

	resolved, err := s.resolveAll(ctx, token, req.Tracks)
	if err != nil {
		return nil, err
	}
	s.logger.Info("resolved tracks", "user", userID, "requested", len(req.Tracks), "found", len(resolved))
	if len(resolved) == 0 {
		return nil, ErrNoTracksFound
	}

	playlist, err := s.catalog.CreatePlaylist(ctx, token, userID, req.PlaylistName, req.PlaylistDescription)
	if err != nil {
		if ctxErr := timedOut(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Error("playlist creation failed", "user", userID, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrPlaylistCreateFailed, err)
	}

	ids := make([]string, len(resolved))
	uris := make([]string, len(resolved))
	for i, t := range resolved {
		ids[i] = t.CatalogID
		uris[i] = t.CatalogURI
	}

	result := &Result{Playlist: playlist}
	if err := s.catalog.AddTracks(ctx, token, playlist.ID, ids); err != nil {
		if ctxErr := timedOut(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		// the playlist is kept, empty
		s.logger.Error("adding tracks failed", "playlist", playlist.ID, "err", err)
		result.Warning = "Playlist was created but tracks could not be added"
		return result, nil
	}

	playlist.TrackURIs = uris
	result.TracksAdded = len(uris)
	s.logger.Info("playlist created", "playlist", playlist.ID, "tracks", result.TracksAdded)
	return result, nil
}

// resolveAll resolves every track with at most s.concurrency searches in
// flight. The result keeps input order and drops misses.
func (s *Service) resolveAll(ctx context.Context, token string, tracks []models.Track) ([]models.ResolvedTrack, error) {
	slots := make([]*models.ResolvedTrack, len(tracks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, t := range tracks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if rt, ok := s.resolver.Resolve(gctx, token, t); ok {
				slots[i] = &rt
			}
			return nil
		})
	}
	g.Wait()

	if err := timedOut(ctx); err != nil {
		return nil, err
	}

	resolved := make([]models.ResolvedTrack, 0, len(tracks))
	for _, rt := range slots {
		if rt != nil {
			resolved = append(resolved, *rt)
		}
	}
	return resolved, nil
}

func timedOut(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	default:
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
}
