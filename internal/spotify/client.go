package spotify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Track is one search result, shaped for the editor's track picker.
type Track struct {
	TrackID     string `json:"trackId"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	AlbumArtURL string `json:"albumArtUrl"`
	SourceURL   string `json:"sourceUrl"`
}

type ClientOptions struct {
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
	AccountsURL  string
	APIURL       string
	SearchLimit  int
}

// Client searches the Spotify catalog using the client-credentials flow.
// Access tokens are cached until shortly before expiry.
type Client struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client
	accountsURL  string
	apiURL       string
	searchLimit  int

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	accountsURL := strings.TrimRight(strings.TrimSpace(opts.AccountsURL), "/")
	if accountsURL == "" {
		accountsURL = "https://accounts.spotify.com"
	}
	apiURL := strings.TrimRight(strings.TrimSpace(opts.APIURL), "/")
	if apiURL == "" {
		apiURL = "https://api.spotify.com"
	}
	searchLimit := opts.SearchLimit
	if searchLimit <= 0 {
		searchLimit = 10
	}
	return &Client{
		clientID:     strings.TrimSpace(opts.ClientID),
		clientSecret: strings.TrimSpace(opts.ClientSecret),
		httpClient:   httpClient,
		accountsURL:  accountsURL,
		apiURL:       apiURL,
		searchLimit:  searchLimit,
	}
}

// Search returns up to the configured limit of tracks matching query.
func (c *Client) Search(ctx context.Context, query string) ([]Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track")
	q.Set("limit", fmt.Sprintf("%d", c.searchLimit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/v1/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("spotify search failed: status=%d", resp.StatusCode)
	}

	var parsed struct {
		Tracks struct {
			Items []struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Artists []struct {
					Name string `json:"name"`
				} `json:"artists"`
				Album struct {
					Images []struct {
						URL string `json:"url"`
					} `json:"images"`
				} `json:"album"`
				ExternalURLs struct {
					Spotify string `json:"spotify"`
				} `json:"external_urls"`
			} `json:"items"`
		} `json:"tracks"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(parsed.Tracks.Items))
	for _, item := range parsed.Tracks.Items {
		artists := make([]string, 0, len(item.Artists))
		for _, artist := range item.Artists {
			artists = append(artists, artist.Name)
		}
		albumArt := ""
		if len(item.Album.Images) > 0 {
			albumArt = item.Album.Images[0].URL
		}
		tracks = append(tracks, Track{
			TrackID:     item.ID,
			Title:       item.Name,
			Artist:      strings.Join(artists, ", "),
			AlbumArtURL: albumArt,
			SourceURL:   item.ExternalURLs.Spotify,
		})
	}
	return tracks, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}
	if c.clientID == "" || c.clientSecret == "" {
		return "", fmt.Errorf("spotify credentials are not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.accountsURL+"/api/token", strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return "", readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("spotify token request failed: status=%d", resp.StatusCode)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", err
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("spotify token response missing access_token")
	}
	expiresIn := parsed.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	c.token = parsed.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(expiresIn)*time.Second - 30*time.Second)
	return c.token, nil
}
