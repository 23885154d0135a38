package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"birdgate/app/post"
	"birdgate/app/provider"
	"birdgate/app/session"
)

// fakeClient records calls and serves canned responses.
type fakeClient struct {
	searchCalls   int
	searchKind    provider.SearchKind
	searchCount   int
	timelineCalls int
	timelineUser  string
	lookupCalls   int
	lookupHandle  string
	trendsCalls   int
	trendsKind    string
	createCalls   int
	createText    string

	posts     []provider.RawPost
	trends    []provider.RawTrend
	identity  *provider.Identity
	created   *provider.RawPost
	searchErr error
	lookupErr error
}

func (f *fakeClient) Login(ctx context.Context, username, email, password, cookiesFile string) error {
	return nil
}

func (f *fakeClient) SetCookies(cookies map[string]string) error {
	return nil
}

func (f *fakeClient) WhoAmI(ctx context.Context) (*provider.Identity, error) {
	return f.identity, nil
}

func (f *fakeClient) UserByHandle(ctx context.Context, handle string) (*provider.Identity, error) {
	f.lookupCalls++
	f.lookupHandle = handle
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.identity, nil
}

func (f *fakeClient) SearchPosts(ctx context.Context, query string, kind provider.SearchKind, count int) ([]provider.RawPost, error) {
	f.searchCalls++
	f.searchKind = kind
	f.searchCount = count
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.posts, nil
}

func (f *fakeClient) UserPosts(ctx context.Context, userID string, kind provider.TimelineKind, count int) ([]provider.RawPost, error) {
	f.timelineCalls++
	f.timelineUser = userID
	return f.posts, nil
}

func (f *fakeClient) Trends(ctx context.Context, kind string) ([]provider.RawTrend, error) {
	f.trendsCalls++
	f.trendsKind = kind
	return f.trends, nil
}

func (f *fakeClient) CreatePost(ctx context.Context, text string) (*provider.RawPost, error) {
	f.createCalls++
	f.createText = text
	return f.created, nil
}

func activeStore() *session.Store {
	store := session.NewStore()
	store.Set(&session.Session{
		Identity:      provider.Identity{ID: "12345", Name: "Example User", ScreenName: "example"},
		EstablishedAt: time.Now().UTC(),
		Mode:          session.ModeCredential,
	})
	return store
}

func newTestService(client *fakeClient, store *session.Store) *Service {
	gate := session.NewGate(store, session.ModeCredential)
	return NewService(gate, client, post.NewNormalizer(), nil)
}

func sampleRawPost(id, createdAt string) provider.RawPost {
	return provider.RawPost{
		ID:        id,
		Text:      "hello",
		CreatedAt: createdAt,
		User:      &provider.RawUser{ID: "12345", ScreenName: "example"},
	}
}

func TestSearchValidationPrecedesGate(t *testing.T) {
	// An empty store would normally yield an UnavailableError, but
	// validation failures must win and the provider must not be called.
	client := &fakeClient{}
	service := newTestService(client, session.NewStore())

	tests := []struct {
		name string
		req  SearchRequest
	}{
		{"empty query", SearchRequest{Query: "  "}},
		{"invalid kind", SearchRequest{Query: "golang", Kind: "Newest"}},
		{"count too small", SearchRequest{Query: "golang", Count: -1}},
		{"count too large", SearchRequest{Query: "golang", Count: 101}},
		{"reversed date range", SearchRequest{Query: "golang", StartDate: "2024-02-01", EndDate: "2024-01-01"}},
		{"malformed date", SearchRequest{Query: "golang", StartDate: "01/02/2024"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Search(context.Background(), tt.req)
			if err == nil {
				t.Fatal("Expected error")
			}

			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("Expected ValidationError, got %T: %v", err, err)
			}
			if client.searchCalls != 0 {
				t.Errorf("Expected no provider call, got %d", client.searchCalls)
			}
		})
	}
}

func TestSearchRequiresSession(t *testing.T) {
	client := &fakeClient{}
	service := newTestService(client, session.NewStore())

	_, err := service.Search(context.Background(), SearchRequest{Query: "golang"})
	if err == nil {
		t.Fatal("Expected error without a session")
	}

	var unavailable *session.UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Expected UnavailableError, got %T: %v", err, err)
	}
	if client.searchCalls != 0 {
		t.Errorf("Expected no provider call, got %d", client.searchCalls)
	}
}

func TestSearchDefaultsAndFiltering(t *testing.T) {
	client := &fakeClient{
		posts: []provider.RawPost{
			sampleRawPost("1", "Fri Jan 05 10:30:00 +0000 2024"),
			sampleRawPost("2", "Mon Feb 12 08:00:00 +0000 2024"),
		},
	}
	service := newTestService(client, activeStore())

	result, err := service.Search(context.Background(), SearchRequest{
		Query:     "golang",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
	})
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	if client.searchKind != provider.SearchLatest {
		t.Errorf("Expected Latest kind default, got %s", client.searchKind)
	}
	if client.searchCount != 20 {
		t.Errorf("Expected default count 20, got %d", client.searchCount)
	}
	if len(result.Posts) != 1 || result.Posts[0].ID != "1" {
		t.Errorf("Expected only the January post, got %+v", result.Posts)
	}
	if result.FilteredOut != 1 {
		t.Errorf("Expected 1 filtered, got %d", result.FilteredOut)
	}
}

func TestSearchPropagatesProviderErrors(t *testing.T) {
	client := &fakeClient{searchErr: provider.ErrRateLimited}
	service := newTestService(client, activeStore())

	_, err := service.Search(context.Background(), SearchRequest{Query: "golang"})
	if !errors.Is(err, provider.ErrRateLimited) {
		t.Fatalf("Expected wrapped ErrRateLimited, got %v", err)
	}
}

func TestUserTimelineNumericIdentifierSkipsLookup(t *testing.T) {
	client := &fakeClient{posts: []provider.RawPost{sampleRawPost("1", "Fri Jan 05 10:30:00 +0000 2024")}}
	service := newTestService(client, activeStore())

	posts, err := service.UserTimeline(context.Background(), "44196397", "", 0)
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if client.lookupCalls != 0 {
		t.Errorf("Expected no lookup for a numeric identifier, got %d", client.lookupCalls)
	}
	if client.timelineUser != "44196397" {
		t.Errorf("Expected numeric identifier passed through, got %s", client.timelineUser)
	}
	if len(posts) != 1 {
		t.Errorf("Expected 1 post, got %d", len(posts))
	}
}

func TestUserTimelineResolvesHandle(t *testing.T) {
	client := &fakeClient{
		identity: &provider.Identity{ID: "44196397", ScreenName: "someuser"},
		posts:    []provider.RawPost{sampleRawPost("1", "Fri Jan 05 10:30:00 +0000 2024")},
	}
	service := newTestService(client, activeStore())

	if _, err := service.UserTimeline(context.Background(), "@someuser", "", 0); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if client.lookupHandle != "someuser" {
		t.Errorf("Expected @ stripped before lookup, got %q", client.lookupHandle)
	}
	if client.timelineUser != "44196397" {
		t.Errorf("Expected resolved id, got %s", client.timelineUser)
	}
}

func TestUserTimelineUnresolvedIdentifier(t *testing.T) {
	client := &fakeClient{lookupErr: fmt.Errorf("user lookup: %w", provider.ErrNotFound)}
	service := newTestService(client, activeStore())

	_, err := service.UserTimeline(context.Background(), "ghost", "", 0)
	if !errors.Is(err, ErrIdentifierUnresolved) {
		t.Fatalf("Expected ErrIdentifierUnresolved, got %v", err)
	}
	if client.timelineCalls != 0 {
		t.Errorf("Expected no timeline fetch after a failed resolution, got %d", client.timelineCalls)
	}
}

func TestUserTimelineInvalidKind(t *testing.T) {
	client := &fakeClient{}
	service := newTestService(client, activeStore())

	_, err := service.UserTimeline(context.Background(), "44196397", "Everything", 0)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected ValidationError, got %T: %v", err, err)
	}
}

func TestTrendsDefaultKind(t *testing.T) {
	client := &fakeClient{trends: []provider.RawTrend{{Name: "#topic"}}}
	service := newTestService(client, activeStore())

	trends, err := service.Trends(context.Background(), "")
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if client.trendsKind != "trending" {
		t.Errorf("Expected default kind trending, got %s", client.trendsKind)
	}
	if len(trends) != 1 {
		t.Errorf("Expected 1 trend, got %d", len(trends))
	}
}

func TestCreatePostValidation(t *testing.T) {
	client := &fakeClient{}
	service := newTestService(client, activeStore())

	_, err := service.CreatePost(context.Background(), "   ")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected ValidationError, got %T: %v", err, err)
	}
	if client.createCalls != 0 {
		t.Errorf("Expected no provider call, got %d", client.createCalls)
	}
}

func TestCreatePostBuildsURLFromSessionIdentity(t *testing.T) {
	client := &fakeClient{created: &provider.RawPost{ID: "1914000000000000000"}}
	service := newTestService(client, activeStore())

	created, err := service.CreatePost(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if created.ID != "1914000000000000000" {
		t.Errorf("Unexpected id: %s", created.ID)
	}
	if created.URL != "https://x.com/example/status/1914000000000000000" {
		t.Errorf("Unexpected URL: %s", created.URL)
	}
	if client.createText != "hello world" {
		t.Errorf("Unexpected text sent upstream: %q", client.createText)
	}
}

func TestLookupUserStripsAtPrefix(t *testing.T) {
	client := &fakeClient{identity: &provider.Identity{ID: "44196397", ScreenName: "someuser"}}
	service := newTestService(client, activeStore())

	identity, err := service.LookupUser(context.Background(), "@someuser")
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if client.lookupHandle != "someuser" {
		t.Errorf("Expected @ stripped, got %q", client.lookupHandle)
	}
	if identity.ID != "44196397" {
		t.Errorf("Unexpected id: %s", identity.ID)
	}
}

func TestLookupUserNotFound(t *testing.T) {
	client := &fakeClient{lookupErr: provider.ErrNotFound}
	service := newTestService(client, activeStore())

	_, err := service.LookupUser(context.Background(), "ghost")
	if !errors.Is(err, ErrIdentifierUnresolved) {
		t.Fatalf("Expected ErrIdentifierUnresolved, got %v", err)
	}
}
