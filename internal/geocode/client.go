package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/equiscan/server/internal/parser"
)

// Getter is the outbound HTTP surface the geocoder needs. Satisfied by
// *parser.Fetcher, which supplies per-host rate limiting and retry.
type Getter interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// Client wraps the two upstream geocoding services: postcodes.io for UK
// postcodes (live and terminated) and a Nominatim-style endpoint for
// free-form venue name searches.
type Client struct {
	http        Getter
	primaryURL  string
	fallbackURL string
}

func NewClient(http Getter, primaryURL, fallbackURL string) *Client {
	return &Client{
		http:        http,
		primaryURL:  strings.TrimRight(primaryURL, "/"),
		fallbackURL: strings.TrimRight(fallbackURL, "/"),
	}
}

type postcodesIOResponse struct {
	Status int `json:"status"`
	Result *struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"result"`
}

// Postcode resolves a canonical UK postcode to coordinates, consulting the
// live register first and the terminated register second. A postcode
// unknown to both returns (nil, nil): a miss, not an error.
func (c *Client) Postcode(ctx context.Context, postcode string) (*Point, error) {
	for _, path := range []string{"/postcodes/", "/terminated_postcodes/"} {
		p, err := c.lookupPostcode(ctx, path, postcode)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}
	return nil, nil
}

func (c *Client) lookupPostcode(ctx context.Context, path, postcode string) (*Point, error) {
	reqURL := c.primaryURL + path + url.PathEscape(postcode)
	body, err := c.http.Get(ctx, reqURL)
	if err != nil {
		var httpErr *parser.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == 404 {
			return nil, nil
		}
		return nil, fmt.Errorf("postcode lookup: %w", err)
	}

	var resp postcodesIOResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding postcode response: %w", err)
	}
	if resp.Result == nil || resp.Result.Latitude == nil || resp.Result.Longitude == nil {
		return nil, nil
	}
	return &Point{Lat: *resp.Result.Latitude, Lng: *resp.Result.Longitude}, nil
}

// nominatimResult coordinates arrive as strings.
type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Search geocodes a free-form place name, constrained to Great Britain.
// No result returns (nil, nil).
func (c *Client) Search(ctx context.Context, query string) (*Point, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("countrycodes", "gb")
	q.Set("limit", "1")

	body, err := c.http.Get(ctx, c.fallbackURL+"/search?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("name search: %w", err)
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	lat, err1 := strconv.ParseFloat(results[0].Lat, 64)
	lng, err2 := strconv.ParseFloat(results[0].Lon, 64)
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("search returned non-numeric coordinates %q,%q", results[0].Lat, results[0].Lon)
	}
	return &Point{Lat: lat, Lng: lng}, nil
}
