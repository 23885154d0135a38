package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
)

const (
	restBase = "https://api.x.com/1.1"
	gqlBase  = "https://x.com/i/api/graphql"

	// Public bearer token of the upstream web client.
	bearerToken = "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"
)

// GraphQL query identifiers pinned to the upstream web client build.
const (
	queryUserByScreenName = "G3KGOASz96M-Qu0nwmGXNg/UserByScreenName"
	querySearchTimeline   = "nK1dw4oV3k4w5TdtcAdSww/SearchTimeline"
	queryUserTweets       = "E3opETHurmVJflFsUBVuUQ/UserTweets"
	queryUserReplies      = "bt4TKuFz4T7Ckk-VvQVSow/UserTweetsAndReplies"
	queryUserMedia        = "dexO_2tohK86JDudXXG3Yw/UserMedia"
	queryCreateTweet      = "SoVnbfCycZ7fERGCwpZkYA/CreateTweet"
)

// HTTPClient implements Client against the upstream REST and GraphQL APIs.
// Authentication state lives in the cookie jar; a guest token is only used
// for the credential login flow.
type HTTPClient struct {
	http       *http.Client
	jar        *cookiejar.Jar
	language   string
	userAgent  string
	guestToken string
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(language, userAgent string) *HTTPClient {
	jar, _ := cookiejar.New(nil)
	return &HTTPClient{
		http:      &http.Client{Jar: jar},
		jar:       jar,
		language:  language,
		userAgent: userAgent,
	}
}

// Login reuses a previously persisted session artifact when cookiesFile
// holds one; otherwise it runs the credential onboarding flow and persists
// the resulting cookies. Validity of a reused artifact is established by the
// caller's identity probe, not here.
func (c *HTTPClient) Login(ctx context.Context, username, email, password, cookiesFile string) error {
	if cookiesFile != "" {
		if cookies, err := loadCookiesFile(cookiesFile); err == nil && len(cookies) > 0 {
			return c.SetCookies(cookies)
		}
	}

	if err := c.activateGuestToken(ctx); err != nil {
		return fmt.Errorf("failed to obtain guest token: %w", err)
	}

	if err := c.runLoginFlow(ctx, username, email, password); err != nil {
		return err
	}

	if cookiesFile != "" {
		if err := c.saveCookiesFile(cookiesFile); err != nil {
			return fmt.Errorf("login succeeded but session artifact could not be persisted: %w", err)
		}
	}

	return nil
}

// SetCookies installs the provided cookie mapping for the upstream domain.
func (c *HTTPClient) SetCookies(cookies map[string]string) error {
	if len(cookies) == 0 {
		return fmt.Errorf("empty cookie mapping")
	}

	u, err := url.Parse("https://x.com/")
	if err != nil {
		return err
	}

	httpCookies := make([]*http.Cookie, 0, len(cookies))
	for name, value := range cookies {
		httpCookies = append(httpCookies, &http.Cookie{
			Name:   name,
			Value:  value,
			Domain: ".x.com",
			Path:   "/",
		})
	}
	c.jar.SetCookies(u, httpCookies)

	return nil
}

func (c *HTTPClient) WhoAmI(ctx context.Context) (*Identity, error) {
	var settings struct {
		ScreenName string `json:"screen_name"`
	}
	if err := c.do(ctx, http.MethodGet, restBase+"/account/settings.json", nil, nil, &settings); err != nil {
		return nil, err
	}
	if settings.ScreenName == "" {
		return nil, fmt.Errorf("%w: account settings returned no screen name", ErrNotFound)
	}

	identity, err := c.UserByHandle(ctx, settings.ScreenName)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (c *HTTPClient) UserByHandle(ctx context.Context, handle string) (*Identity, error) {
	variables := map[string]any{
		"screen_name":              handle,
		"withSafetyModeUserFields": true,
	}

	var resp struct {
		Data struct {
			User struct {
				Result struct {
					Typename string  `json:"__typename"`
					RestID   string  `json:"rest_id"`
					Legacy   RawUser `json:"legacy"`
				} `json:"result"`
			} `json:"user"`
		} `json:"data"`
	}

	if err := c.gqlGet(ctx, queryUserByScreenName, variables, &resp); err != nil {
		return nil, err
	}

	result := resp.Data.User.Result
	if result.RestID == "" || result.Typename == "UserUnavailable" {
		return nil, fmt.Errorf("%w: no account with handle %q", ErrNotFound, handle)
	}

	return &Identity{
		ID:         result.RestID,
		Name:       result.Legacy.Name,
		ScreenName: result.Legacy.ScreenName,
	}, nil
}

func (c *HTTPClient) SearchPosts(ctx context.Context, query string, kind SearchKind, count int) ([]RawPost, error) {
	variables := map[string]any{
		"rawQuery":    query,
		"count":       count,
		"querySource": "typed_query",
		"product":     string(kind),
	}

	var resp struct {
		Data struct {
			SearchByRawQuery struct {
				SearchTimeline struct {
					Timeline gqlTimeline `json:"timeline"`
				} `json:"search_timeline"`
			} `json:"search_by_raw_query"`
		} `json:"data"`
	}

	if err := c.gqlGet(ctx, querySearchTimeline, variables, &resp); err != nil {
		return nil, err
	}

	return resp.Data.SearchByRawQuery.SearchTimeline.Timeline.posts(), nil
}

func (c *HTTPClient) UserPosts(ctx context.Context, userID string, kind TimelineKind, count int) ([]RawPost, error) {
	query := queryUserTweets
	switch kind {
	case TimelinePostsAndReplies:
		query = queryUserReplies
	case TimelineMedia:
		query = queryUserMedia
	}

	variables := map[string]any{
		"userId":                 userID,
		"count":                  count,
		"includePromotedContent": false,
		"withVoice":              true,
	}

	var resp struct {
		Data struct {
			User struct {
				Result struct {
					Timeline struct {
						Timeline gqlTimeline `json:"timeline"`
					} `json:"timeline"`
					TimelineV2 struct {
						Timeline gqlTimeline `json:"timeline"`
					} `json:"timeline_v2"`
				} `json:"result"`
			} `json:"user"`
		} `json:"data"`
	}

	if err := c.gqlGet(ctx, query, variables, &resp); err != nil {
		return nil, err
	}

	posts := resp.Data.User.Result.TimelineV2.Timeline.posts()
	if len(posts) == 0 {
		posts = resp.Data.User.Result.Timeline.Timeline.posts()
	}
	return posts, nil
}

// Trends fetches trending topics. kind is either "trending" (worldwide) or
// a numeric WOEID selecting a location.
func (c *HTTPClient) Trends(ctx context.Context, kind string) ([]RawTrend, error) {
	woeid := "1"
	if kind != "" && kind != "trending" {
		if _, err := strconv.ParseInt(kind, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid trend kind %q: expected \"trending\" or a numeric WOEID", kind)
		}
		woeid = kind
	}

	params := url.Values{"id": {woeid}}

	var resp []struct {
		Trends []RawTrend `json:"trends"`
	}
	if err := c.do(ctx, http.MethodGet, restBase+"/trends/place.json", params, nil, &resp); err != nil {
		return nil, err
	}

	if len(resp) == 0 {
		return nil, nil
	}
	return resp[0].Trends, nil
}

func (c *HTTPClient) CreatePost(ctx context.Context, text string) (*RawPost, error) {
	body := map[string]any{
		"variables": map[string]any{
			"tweet_text":   text,
			"dark_request": false,
			"media": map[string]any{
				"media_entities":     []any{},
				"possibly_sensitive": false,
			},
			"semantic_annotation_ids": []any{},
		},
		"features": gqlFeatures,
		"queryId":  strings.Split(queryCreateTweet, "/")[0],
	}

	var resp struct {
		Data struct {
			CreateTweet struct {
				TweetResults gqlTweetResults `json:"tweet_results"`
			} `json:"create_tweet"`
		} `json:"data"`
	}

	if err := c.do(ctx, http.MethodPost, gqlBase+"/"+queryCreateTweet, nil, body, &resp); err != nil {
		return nil, err
	}

	post, ok := resp.Data.CreateTweet.TweetResults.post()
	if !ok {
		return nil, fmt.Errorf("create post response carried no post record")
	}
	return &post, nil
}

// --- GraphQL timeline decoding ---

// gqlTweetResults wraps a single post record. TweetWithVisibilityResults
// nests the record one level deeper under "tweet".
type gqlTweetResults struct {
	Result struct {
		Typename string          `json:"__typename"`
		RestID   string          `json:"rest_id"`
		Legacy   json.RawMessage `json:"legacy"`
		Core     struct {
			UserResults struct {
				Result struct {
					RestID string  `json:"rest_id"`
					Legacy RawUser `json:"legacy"`
				} `json:"result"`
			} `json:"user_results"`
		} `json:"core"`
		Tweet *struct {
			RestID string          `json:"rest_id"`
			Legacy json.RawMessage `json:"legacy"`
			Core   struct {
				UserResults struct {
					Result struct {
						RestID string  `json:"rest_id"`
						Legacy RawUser `json:"legacy"`
					} `json:"result"`
				} `json:"user_results"`
			} `json:"core"`
		} `json:"tweet"`
	} `json:"result"`
}

func (r gqlTweetResults) post() (RawPost, bool) {
	restID := r.Result.RestID
	legacy := r.Result.Legacy
	userRestID := r.Result.Core.UserResults.Result.RestID
	user := r.Result.Core.UserResults.Result.Legacy

	if r.Result.Typename == "TweetWithVisibilityResults" && r.Result.Tweet != nil {
		restID = r.Result.Tweet.RestID
		legacy = r.Result.Tweet.Legacy
		userRestID = r.Result.Tweet.Core.UserResults.Result.RestID
		user = r.Result.Tweet.Core.UserResults.Result.Legacy
	}

	if len(legacy) == 0 {
		return RawPost{}, false
	}

	var post RawPost
	if err := json.Unmarshal(legacy, &post); err != nil {
		return RawPost{}, false
	}
	if post.ID == "" {
		post.ID = restID
	}
	if user.ScreenName != "" || user.Name != "" || userRestID != "" {
		if user.ID == "" {
			user.ID = userRestID
		}
		post.User = &user
	}

	return post, true
}

type gqlItemContent struct {
	ItemType     string          `json:"itemType"`
	TweetResults gqlTweetResults `json:"tweet_results"`
}

type gqlTimeline struct {
	Instructions []struct {
		Type    string `json:"type"`
		Entries []struct {
			EntryID string `json:"entryId"`
			Content struct {
				EntryType   string          `json:"entryType"`
				ItemContent *gqlItemContent `json:"itemContent"`
				Items       []struct {
					Item struct {
						ItemContent *gqlItemContent `json:"itemContent"`
					} `json:"item"`
				} `json:"items"`
			} `json:"content"`
		} `json:"entries"`
	} `json:"instructions"`
}

// posts flattens a timeline response into raw records, preserving the
// upstream entry order.
func (t gqlTimeline) posts() []RawPost {
	var posts []RawPost
	collect := func(ic *gqlItemContent) {
		if ic == nil || ic.ItemType != "TimelineTweet" {
			return
		}
		if post, ok := ic.TweetResults.post(); ok {
			posts = append(posts, post)
		}
	}

	for _, instruction := range t.Instructions {
		if instruction.Type != "TimelineAddEntries" {
			continue
		}
		for _, entry := range instruction.Entries {
			collect(entry.Content.ItemContent)
			for _, item := range entry.Content.Items {
				collect(item.Item.ItemContent)
			}
		}
	}

	return posts
}

// --- Credential login flow ---

type flowResponse struct {
	FlowToken string `json:"flow_token"`
	Subtasks  []struct {
		SubtaskID string `json:"subtask_id"`
	} `json:"subtasks"`
}

// runLoginFlow walks the upstream onboarding state machine. Any subtask
// requiring interactive input (confirmation code, 2FA, captcha) terminates
// the flow with ErrAuthRequired.
func (c *HTTPClient) runLoginFlow(ctx context.Context, username, email, password string) error {
	flowURL := restBase + "/onboarding/task.json"

	start := map[string]any{
		"input_flow_data": map[string]any{
			"flow_context": map[string]any{
				"debug_overrides": map[string]any{},
				"start_location":  map[string]any{"location": "splash_screen"},
			},
		},
	}

	var flow flowResponse
	if err := c.do(ctx, http.MethodPost, flowURL+"?flow_name=login", nil, start, &flow); err != nil {
		return fmt.Errorf("failed to start login flow: %w", err)
	}

	for attempts := 0; attempts < 10; attempts++ {
		if len(flow.Subtasks) == 0 {
			return nil
		}

		subtaskID := flow.Subtasks[0].SubtaskID
		var input map[string]any

		switch subtaskID {
		case "LoginSuccessSubtask":
			return nil
		case "LoginJsInstrumentationSubtask":
			input = map[string]any{
				"subtask_id":         subtaskID,
				"js_instrumentation": map[string]any{"response": "{}", "link": "next_link"},
			}
		case "LoginEnterUserIdentifierSSO":
			input = map[string]any{
				"subtask_id": subtaskID,
				"settings_list": map[string]any{
					"setting_responses": []any{
						map[string]any{
							"key":           "user_identifier",
							"response_data": map[string]any{"text_data": map[string]any{"result": username}},
						},
					},
					"link": "next_link",
				},
			}
		case "LoginEnterAlternateIdentifierSubtask":
			input = map[string]any{
				"subtask_id": subtaskID,
				"enter_text": map[string]any{"text": email, "link": "next_link"},
			}
		case "LoginEnterPassword":
			input = map[string]any{
				"subtask_id":     subtaskID,
				"enter_password": map[string]any{"password": password, "link": "next_link"},
			}
		case "AccountDuplicationCheck":
			input = map[string]any{
				"subtask_id":              subtaskID,
				"check_logged_in_account": map[string]any{"link": "AccountDuplicationCheck_false"},
			}
		case "LoginAcid", "LoginTwoFactorAuthChallenge", "ArkoseLogin", "DenyLoginSubtask":
			return fmt.Errorf("%w: login flow stopped at subtask %s", ErrAuthRequired, subtaskID)
		default:
			return fmt.Errorf("login flow reached unsupported subtask %s", subtaskID)
		}

		body := map[string]any{
			"flow_token":     flow.FlowToken,
			"subtask_inputs": []any{input},
		}

		flow = flowResponse{}
		if err := c.do(ctx, http.MethodPost, flowURL, nil, body, &flow); err != nil {
			return fmt.Errorf("login flow subtask %s failed: %w", subtaskID, err)
		}
	}

	return fmt.Errorf("login flow did not converge")
}

func (c *HTTPClient) activateGuestToken(ctx context.Context) error {
	var resp struct {
		GuestToken string `json:"guest_token"`
	}
	if err := c.do(ctx, http.MethodPost, restBase+"/guest/activate.json", nil, nil, &resp); err != nil {
		return err
	}
	if resp.GuestToken == "" {
		return fmt.Errorf("guest token response was empty")
	}
	c.guestToken = resp.GuestToken
	return nil
}

// --- Session artifact persistence ---

// Cookie files use the same wire shape as the cookie-mode bootstrap blob:
// a one-element array holding a name-to-value mapping.
func loadCookiesFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var wrapped []map[string]string
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("malformed cookie file %s: %w", path, err)
	}
	if len(wrapped) != 1 {
		return nil, fmt.Errorf("cookie file %s: expected a one-element array, got %d elements", path, len(wrapped))
	}

	return wrapped[0], nil
}

func (c *HTTPClient) saveCookiesFile(path string) error {
	u, err := url.Parse("https://x.com/")
	if err != nil {
		return err
	}

	mapping := make(map[string]string)
	for _, cookie := range c.jar.Cookies(u) {
		mapping[cookie.Name] = cookie.Value
	}

	data, err := json.MarshalIndent([]map[string]string{mapping}, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// --- Request plumbing ---

var gqlFeatures = map[string]any{
	"responsive_web_graphql_exclude_directive_enabled":            true,
	"responsive_web_graphql_timeline_navigation_enabled":          true,
	"responsive_web_graphql_skip_user_profile_image_extensions_enabled": false,
	"creator_subscriptions_tweet_preview_api_enabled":             true,
	"longform_notetweets_consumption_enabled":                     true,
	"longform_notetweets_rich_text_read_enabled":                  true,
	"longform_notetweets_inline_media_enabled":                    true,
	"tweet_awards_web_tipping_enabled":                            false,
	"freedom_of_speech_not_reach_fetch_enabled":                   true,
	"standardized_nudges_misinfo":                                 true,
	"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled": true,
	"verified_phone_label_enabled":                                false,
	"view_counts_everywhere_api_enabled":                          true,
}

func (c *HTTPClient) gqlGet(ctx context.Context, query string, variables map[string]any, out any) error {
	variablesJSON, err := json.Marshal(variables)
	if err != nil {
		return err
	}
	featuresJSON, err := json.Marshal(gqlFeatures)
	if err != nil {
		return err
	}

	params := url.Values{
		"variables": {string(variablesJSON)},
		"features":  {string(featuresJSON)},
	}

	return c.do(ctx, http.MethodGet, gqlBase+"/"+query, params, nil, out)
}

func (c *HTTPClient) do(ctx context.Context, method, rawURL string, params url.Values, body, out any) error {
	if len(params) > 0 {
		rawURL = rawURL + "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+bearerToken)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", c.language)
	req.Header.Set("X-Twitter-Active-User", "yes")
	req.Header.Set("X-Twitter-Client-Language", c.language)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if csrf := c.cookieValue("ct0"); csrf != "" {
		req.Header.Set("X-Csrf-Token", csrf)
		req.Header.Set("X-Twitter-Auth-Type", "OAuth2Session")
	} else if c.guestToken != "" {
		req.Header.Set("X-Guest-Token", c.guestToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read upstream response: %w", err)
	}

	if err := checkResponse(resp.StatusCode, data); err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode upstream response: %w", err)
		}
	}

	return nil
}

func (c *HTTPClient) cookieValue(name string) string {
	u, err := url.Parse("https://x.com/")
	if err != nil {
		return ""
	}
	for _, cookie := range c.jar.Cookies(u) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

// checkResponse maps upstream error payloads and status codes into the
// typed error taxonomy.
func checkResponse(statusCode int, data []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var payload struct {
		Errors []struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && len(payload.Errors) > 0 {
		return mapAPIError(statusCode, payload.Errors[0].Code, payload.Errors[0].Message)
	}

	return mapAPIError(statusCode, 0, http.StatusText(statusCode))
}
