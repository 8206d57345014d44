package impl

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/bakkerme/manifest-watch/internal/sources/steam"
)

const defaultBaseURL = "https://store.steampowered.com/api/appdetails"

type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type Client struct {
	client  Getter
	baseURL string
}

var _ steam.Lookup = (*Client)(nil)

func NewClient(client Getter, baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{client: client, baseURL: baseURL}
}

type appDetails struct {
	Success bool `json:"success"`
	Data    struct {
		Name        string `json:"name"`
		HeaderImage string `json:"header_image"`
	} `json:"data"`
}

func (c *Client) App(ctx context.Context, appID string) (steam.App, error) {
	appID = strings.TrimSpace(appID)
	if appID == "" {
		return steam.App{}, fmt.Errorf("steam: app id is required")
	}
	body, err := c.client.Get(ctx, c.baseURL+"?appids="+url.QueryEscape(appID))
	if err != nil {
		return steam.App{}, fmt.Errorf("steam appdetails: %w", err)
	}

	var payload map[string]appDetails
	if err := json.Unmarshal(body, &payload); err != nil {
		return steam.App{}, fmt.Errorf("steam appdetails: decode: %w", err)
	}
	details, ok := payload[appID]
	if !ok || !details.Success {
		return steam.App{}, fmt.Errorf("app %s: %w", appID, steam.ErrNotFound)
	}
	name := strings.TrimSpace(details.Data.Name)
	if name == "" {
		name = "Unknown Game"
	}
	return steam.App{ID: appID, Name: name, HeaderImage: details.Data.HeaderImage}, nil
}
