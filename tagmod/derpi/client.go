package derpi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/carlmjohnson/versioninfo"
)

const DefaultHost = "https://derpibooru.org"

type Client struct {
	Client *http.Client
	Host   string
	ApiKey string
}

func NewClient(host, apiKey string, httpClient *http.Client) *Client {
	if host == "" {
		host = DefaultHost
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		Client: httpClient,
		Host:   host,
		ApiKey: apiKey,
	}
}

func (c *Client) do(ctx context.Context, op, method, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	if c.ApiKey != "" {
		params.Set("key", c.ApiKey)
	}
	u := c.Host + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "derpiguard/"+versioninfo.Short())

	start := time.Now()
	defer func() {
		duration := time.Since(start)
		derpiAPIDuration.WithLabelValues(op).Observe(duration.Seconds())
	}()

	res, err := c.Client.Do(req)
	if err != nil {
		derpiAPICount.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("%w: derpibooru %s request failed: %w", ErrTransient, op, err)
	}
	defer res.Body.Close()

	derpiAPICount.WithLabelValues(op, fmt.Sprint(res.StatusCode)).Inc()
	if res.StatusCode != http.StatusOK {
		return &APIError{StatusCode: res.StatusCode, Op: op}
	}

	respBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read derpibooru resp body: %w", ErrTransient, err)
	}
	if err := json.Unmarshal(respBytes, out); err != nil {
		return fmt.Errorf("failed to parse derpibooru resp JSON: %w", err)
	}
	return nil
}

// Fetches the tags of a single image by numeric booru id.
//
// An unknown id returns an error wrapping ErrNotFound.
func (c *Client) ImageTags(ctx context.Context, imageID string) ([]string, error) {
	if _, err := strconv.ParseUint(imageID, 10, 64); err != nil {
		return nil, fmt.Errorf("invalid derpibooru image id: %q", imageID)
	}

	slog.Debug("fetching derpibooru image", "id", imageID)
	var resp ImageResp
	if err := c.do(ctx, "image", http.MethodGet, "/api/v1/json/images/"+imageID, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Image.Tags, nil
}

// Reverse image search by URL. Returns one tag list per matching image; zero matches is a nil slice and nil error.
//
// distance is the match fuzziness; derpibooru accepts values between 0.2 and 0.5.
func (c *Client) ReverseSearchTags(ctx context.Context, imageURL string, distance float64) ([][]string, error) {
	params := url.Values{}
	params.Set("url", imageURL)
	params.Set("distance", strconv.FormatFloat(distance, 'f', -1, 64))

	slog.Debug("derpibooru reverse image search", "url", imageURL, "distance", distance)
	var resp SearchResp
	if err := c.do(ctx, "reverse", http.MethodPost, "/api/v1/json/search/reverse", params, &resp); err != nil {
		return nil, err
	}

	var out [][]string
	for _, img := range resp.Images {
		out = append(out, img.Tags)
	}
	return out, nil
}
