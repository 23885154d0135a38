package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"birdgate/app/database"
	"birdgate/app/post"
	"birdgate/app/provider"
	"birdgate/app/session"
)

const (
	defaultCount = 20
	maxCount     = 100
)

// Service is the operation façade: every protected operation validates its
// input, passes the session gate, calls the provider once (no retries) and
// normalizes the result.
type Service struct {
	gate       *session.Gate
	client     provider.Client
	normalizer *post.Normalizer
	archive    database.PostRepository
}

// NewService wires the façade. archive may be nil, disabling the
// best-effort post archive.
func NewService(gate *session.Gate, client provider.Client, normalizer *post.Normalizer, archive database.PostRepository) *Service {
	return &Service{
		gate:       gate,
		client:     client,
		normalizer: normalizer,
		archive:    archive,
	}
}

type SearchRequest struct {
	Query     string
	Kind      provider.SearchKind
	Count     int
	StartDate string
	EndDate   string
}

type SearchResult struct {
	Posts       []post.NormalizedPost
	FilteredOut int
}

func (s *Service) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, validationErrorf("query must not be empty")
	}
	kind := req.Kind
	if kind == "" {
		kind = provider.SearchLatest
	}
	if !provider.ValidSearchKind(kind) {
		return nil, validationErrorf(fmt.Sprintf("invalid search kind %q: expected Latest, Top or Media", req.Kind))
	}
	count, err := normalizeCount(req.Count)
	if err != nil {
		return nil, err
	}
	dateRange, err := post.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	if _, err := s.gate.Require(); err != nil {
		return nil, err
	}

	raw, err := s.client.SearchPosts(ctx, req.Query, kind, count)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	posts, filtered := s.normalizer.Posts(raw, dateRange)
	s.archivePosts(posts, "search")

	slog.Info("Search completed", "query", req.Query, "kind", string(kind), "returned", len(posts), "filtered_out", filtered)

	return &SearchResult{Posts: posts, FilteredOut: filtered}, nil
}

func (s *Service) UserTimeline(ctx context.Context, identifier string, kind provider.TimelineKind, count int) ([]post.NormalizedPost, error) {
	if strings.TrimSpace(identifier) == "" {
		return nil, validationErrorf("user identifier must not be empty")
	}
	if kind == "" {
		kind = provider.TimelinePosts
	}
	if !provider.ValidTimelineKind(kind) {
		return nil, validationErrorf(fmt.Sprintf("invalid timeline kind %q: expected Posts, PostsAndReplies or Media", kind))
	}
	normalizedCount, err := normalizeCount(count)
	if err != nil {
		return nil, err
	}

	if _, err := s.gate.Require(); err != nil {
		return nil, err
	}

	userID, err := s.resolveUserID(ctx, identifier)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.UserPosts(ctx, userID, kind, normalizedCount)
	if err != nil {
		return nil, fmt.Errorf("timeline fetch failed: %w", err)
	}

	posts, _ := s.normalizer.Posts(raw, nil)
	s.archivePosts(posts, "timeline")

	slog.Info("Timeline fetched", "user_id", userID, "kind", string(kind), "returned", len(posts))

	return posts, nil
}

func (s *Service) Trends(ctx context.Context, kind string) ([]post.NormalizedTrend, error) {
	if kind == "" {
		kind = "trending"
	}

	if _, err := s.gate.Require(); err != nil {
		return nil, err
	}

	raw, err := s.client.Trends(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("trends fetch failed: %w", err)
	}

	trends := s.normalizer.Trends(raw)

	slog.Info("Trends fetched", "kind", kind, "returned", len(trends))

	return trends, nil
}

type CreatedPost struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

func (s *Service) CreatePost(ctx context.Context, text string) (*CreatedPost, error) {
	if strings.TrimSpace(text) == "" {
		return nil, validationErrorf("post text must not be empty")
	}

	current, err := s.gate.Require()
	if err != nil {
		return nil, err
	}

	raw, err := s.client.CreatePost(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("post creation failed: %w", err)
	}

	created := &CreatedPost{
		ID:  raw.ID,
		URL: post.CanonicalURL(current.Identity.ScreenName, raw.ID),
	}

	slog.Info("Post created", "id", created.ID, "handle", current.Identity.ScreenName)

	return created, nil
}

// LookupUser resolves a handle to an identity. A leading @ is tolerated.
func (s *Service) LookupUser(ctx context.Context, handle string) (*provider.Identity, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return nil, validationErrorf("handle must not be empty")
	}

	if _, err := s.gate.Require(); err != nil {
		return nil, err
	}

	identity, err := s.client.UserByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrIdentifierUnresolved, handle)
		}
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}

	return identity, nil
}

// resolveUserID turns a user identifier into a numeric id: numeric input is
// used as-is, anything else is looked up by handle. A lookup miss yields
// ErrIdentifierUnresolved, distinct from a provider failure.
func (s *Service) resolveUserID(ctx context.Context, identifier string) (string, error) {
	if isNumeric(identifier) {
		return identifier, nil
	}

	handle := strings.TrimPrefix(identifier, "@")
	identity, err := s.client.UserByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrIdentifierUnresolved, identifier)
		}
		return "", fmt.Errorf("user lookup failed: %w", err)
	}
	if identity.ID == "" {
		return "", fmt.Errorf("%w: %s", ErrIdentifierUnresolved, identifier)
	}

	return identity.ID, nil
}

func (s *Service) archivePosts(posts []post.NormalizedPost, source string) {
	if s.archive == nil {
		return
	}

	for _, p := range posts {
		if p.ID == "" {
			continue
		}

		archived := database.ArchivedPost{
			PostID:       p.ID,
			AuthorHandle: p.Author.Handle,
			Text:         p.Text,
			URL:          p.URL,
			MediaCount:   len(p.MediaURLs),
			Source:       source,
		}
		if createdAt, err := post.ParseTimestamp(p.CreatedAt); err == nil {
			archived.CreatedAt = &createdAt
		}

		if err := s.archive.UpsertPost(archived); err != nil {
			slog.Warn("Failed to archive post", "id", p.ID, "error", err)
		}
	}
}

func normalizeCount(count int) (int, error) {
	if count == 0 {
		return defaultCount, nil
	}
	if count < 1 || count > maxCount {
		return 0, validationErrorf(fmt.Sprintf("count must be between 1 and %d", maxCount))
	}
	return count, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
