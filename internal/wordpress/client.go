package wordpress

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/epsomandewellharriers/spond_sync/internal/transport"
)

const (
	// DefaultPostType is the custom post type holding fixtures.
	DefaultPostType = "fixture"
	// DefaultMaxPages caps pagination when listing fixtures.
	DefaultMaxPages = 10
	// DefaultPerPage is the largest page size WordPress allows.
	DefaultPerPage = 100

	totalPagesHeader = "X-WP-TotalPages"
)

// ErrPaginationLimitExceeded is returned when listing would need more pages
// than the configured cap.
var ErrPaginationLimitExceeded = errors.New("wordpress: pagination limit exceeded")

// Options configures a Client
type Options struct {
	Host       string // e.g. www.example.org
	BaseURL    string // overrides Host, e.g. http://127.0.0.1:8080
	PostType   string
	Username   string
	Password   string
	MaxPages   int
	PerPage    int
	HTTPClient *http.Client
}

// Client manages fixtures through the WordPress REST API
type Client struct {
	endpoint  string
	maxPages  int
	perPage   int
	transport *transport.Client
}

// NewClient creates a WordPress client
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://" + opts.Host
	}
	postType := opts.PostType
	if postType == "" {
		postType = DefaultPostType
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return &Client{
		endpoint: fmt.Sprintf("%s/wp-json/wp/v2/%s/", base, postType),
		maxPages: maxPages,
		perPage:  perPage,
		transport: transport.New("wordpress",
			&transport.BasicAuth{Username: opts.Username, Password: opts.Password},
			transport.WithHTTPClient(opts.HTTPClient)),
	}
}

// FetchAll returns every fixture, following pagination up to the page cap
func (c *Client) FetchAll(ctx context.Context) ([]Fixture, error) {
	var fixtures []Fixture
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("per_page", strconv.Itoa(c.perPage))
		q.Set("page", strconv.Itoa(page))
		// raw titles need edit permission, which the application password has
		q.Set("context", "edit")

		var batch []Fixture
		resp, err := c.transport.Do(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil, &batch)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch fixtures page %d: %w", page, err)
		}
		fixtures = append(fixtures, batch...)

		totalPages := totalPages(resp)
		if page >= totalPages {
			break
		}
		if page >= c.maxPages {
			return nil, fmt.Errorf("%w: %d pages reported, cap is %d", ErrPaginationLimitExceeded, totalPages, c.maxPages)
		}
	}

	logrus.WithField("count", len(fixtures)).Debug("Fetched fixtures from WordPress")
	return fixtures, nil
}

// Insert creates a new fixture
func (c *Client) Insert(ctx context.Context, payload FixturePayload) error {
	if _, err := c.transport.Do(ctx, http.MethodPost, c.endpoint, payload, nil); err != nil {
		return fmt.Errorf("failed to insert fixture: %w", err)
	}
	return nil
}

// Update replaces the fields of fixture id
func (c *Client) Update(ctx context.Context, id int, payload FixturePayload) error {
	if _, err := c.transport.Do(ctx, http.MethodPut, c.endpoint+strconv.Itoa(id), payload, nil); err != nil {
		return fmt.Errorf("failed to update fixture %d: %w", id, err)
	}
	return nil
}

// Delete moves fixture id to the trash
func (c *Client) Delete(ctx context.Context, id int) error {
	if _, err := c.transport.Do(ctx, http.MethodDelete, c.endpoint+strconv.Itoa(id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete fixture %d: %w", id, err)
	}
	return nil
}

// totalPages reads the page count header; a missing or invalid header means
// the current page is the last one.
func totalPages(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	n, err := strconv.Atoi(resp.Header.Get(totalPagesHeader))
	if err != nil {
		return 0
	}
	return n
}
