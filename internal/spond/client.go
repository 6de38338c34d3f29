package spond

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/epsomandewellharriers/spond_sync/internal/transport"
)

const (
	// DefaultBaseURL is the Spond core API root.
	DefaultBaseURL = "https://api.spond.com/core/v1/"
	// DefaultMaxEvents bounds a single events query.
	DefaultMaxEvents = 500

	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// ErrNoToken is returned when a login succeeds but carries no token.
var ErrNoToken = errors.New("spond: login response did not include a token")

// Filter restricts the events returned by FetchEvents.
type Filter struct {
	MinStart         time.Time
	IncludeScheduled bool
	IncludeHidden    bool
	GroupID          string
	Max              int
}

// Options configures a Client
type Options struct {
	BaseURL    string
	Username   string
	Password   string
	HTTPClient *http.Client
}

// Client reads events from Spond. It logs in lazily on first use.
type Client struct {
	baseURL   string
	username  string
	password  string
	transport *transport.Client
	loggedIn  bool
}

// NewClient creates a Spond client
func NewClient(opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &Client{
		baseURL:   base,
		username:  opts.Username,
		password:  opts.Password,
		transport: transport.New("spond", &transport.NoAuth{}, transport.WithHTTPClient(opts.HTTPClient)),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	LoginToken string `json:"loginToken"`
}

// Login exchanges the configured credentials for a bearer token
func (c *Client) Login(ctx context.Context) error {
	var resp loginResponse
	if _, err := c.transport.Do(ctx, http.MethodPost, c.baseURL+"login", loginRequest{
		Email:    c.username,
		Password: c.password,
	}, &resp); err != nil {
		return fmt.Errorf("spond login failed: %w", err)
	}
	if resp.LoginToken == "" {
		return ErrNoToken
	}
	c.transport.SetAuth(&transport.BearerAuth{Token: resp.LoginToken})
	c.loggedIn = true
	logrus.WithField("username", c.username).Debug("Logged in to Spond")
	return nil
}

// FetchEvents returns the events matching filter, ordered by start time
func (c *Client) FetchEvents(ctx context.Context, filter Filter) ([]Event, error) {
	if !c.loggedIn {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}

	var events []Event
	u := c.baseURL + "sponds/?" + filter.query().Encode()
	if _, err := c.transport.Do(ctx, http.MethodGet, u, nil, &events); err != nil {
		return nil, fmt.Errorf("failed to fetch spond events: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"count":     len(events),
		"min_start": filter.MinStart.UTC().Format(time.RFC3339),
		"group_id":  filter.GroupID,
	}).Debug("Fetched events from Spond")
	return events, nil
}

func (f Filter) query() url.Values {
	limit := f.Max
	if limit <= 0 {
		limit = DefaultMaxEvents
	}
	q := url.Values{}
	q.Set("order", "asc")
	q.Set("max", strconv.Itoa(limit))
	q.Set("scheduled", strconv.FormatBool(f.IncludeScheduled))
	if f.IncludeHidden {
		q.Set("includeHidden", "true")
	}
	if !f.MinStart.IsZero() {
		q.Set("minStartTimestamp", f.MinStart.UTC().Format(timestampLayout))
	}
	if f.GroupID != "" {
		q.Set("groupId", f.GroupID)
	}
	return q
}
