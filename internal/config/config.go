// Package config loads the YAML configuration file holding credentials and
// presentation settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/epsomandewellharriers/spond_sync/internal/mapping"
	"github.com/epsomandewellharriers/spond_sync/internal/spond"
	"github.com/epsomandewellharriers/spond_sync/internal/wordpress"
)

// DefaultPath is read when no --config flag is given
const DefaultPath = ".config.yaml"

// DefaultJob names the run lock, state row and metrics group
const DefaultJob = "spond_sync"

// DefaultHost is the club website
const DefaultHost = "www.epsomandewellharriers.org"

type WordPress struct {
	Host     string        `yaml:"host"`
	BaseURL  string        `yaml:"base_url"`
	PostType string        `yaml:"post_type"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	MaxPages int           `yaml:"max_pages"`
	PerPage  int           `yaml:"per_page"`
	Timeout  time.Duration `yaml:"timeout"`
}

type Spond struct {
	BaseURL   string        `yaml:"base_url"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	GroupID   string        `yaml:"group_id"`
	MaxEvents int           `yaml:"max_events"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Fixture controls how events are presented on the website
type Fixture struct {
	Timezone  string `yaml:"timezone"`
	LinkLabel string `yaml:"link_label"`
	LinkBase  string `yaml:"link_base"`
	MapZoom   int    `yaml:"map_zoom"`
}

type Config struct {
	Job       string             `yaml:"job"`
	WordPress WordPress          `yaml:"wordpress"`
	Spond     Spond              `yaml:"spond"`
	Fixture   Fixture            `yaml:"fixture"`
	Audiences mapping.Vocabulary `yaml:"audiences"`
	Notices   mapping.Notices    `yaml:"notices"`
}

// Credentials can be supplied through the environment instead of the file
const (
	EnvWordPressUsername = "SPOND_SYNC_WORDPRESS_USERNAME"
	EnvWordPressPassword = "SPOND_SYNC_WORDPRESS_PASSWORD"
	EnvSpondUsername     = "SPOND_SYNC_SPOND_USERNAME"
	EnvSpondPassword     = "SPOND_SYNC_SPOND_PASSWORD"
)

// Load reads the file at path, applies credential overrides from the
// environment and fills unset values with defaults
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	c.applyEnv()
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyEnv() {
	for env, field := range map[string]*string{
		EnvWordPressUsername: &c.WordPress.Username,
		EnvWordPressPassword: &c.WordPress.Password,
		EnvSpondUsername:     &c.Spond.Username,
		EnvSpondPassword:     &c.Spond.Password,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*field = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Job == "" {
		c.Job = DefaultJob
	}
	if c.WordPress.Host == "" {
		c.WordPress.Host = DefaultHost
	}
	if c.WordPress.PostType == "" {
		c.WordPress.PostType = wordpress.DefaultPostType
	}
	if c.WordPress.MaxPages == 0 {
		c.WordPress.MaxPages = wordpress.DefaultMaxPages
	}
	if c.WordPress.PerPage == 0 {
		c.WordPress.PerPage = wordpress.DefaultPerPage
	}
	if c.WordPress.Timeout == 0 {
		c.WordPress.Timeout = 30 * time.Second
	}
	if c.Spond.BaseURL == "" {
		c.Spond.BaseURL = spond.DefaultBaseURL
	}
	if c.Spond.MaxEvents == 0 {
		c.Spond.MaxEvents = spond.DefaultMaxEvents
	}
	if c.Spond.Timeout == 0 {
		c.Spond.Timeout = 30 * time.Second
	}
	if c.Fixture.Timezone == "" {
		c.Fixture.Timezone = mapping.DefaultTimezone
	}
	if c.Fixture.LinkLabel == "" {
		c.Fixture.LinkLabel = mapping.DefaultLinkLabel
	}
	if c.Fixture.LinkBase == "" {
		c.Fixture.LinkBase = mapping.DefaultLinkBase
	}
	if c.Fixture.MapZoom == 0 {
		c.Fixture.MapZoom = mapping.DefaultMapZoom
	}
	if c.Audiences == (mapping.Vocabulary{}) {
		c.Audiences = mapping.DefaultVocabulary()
	}
	defaults := mapping.DefaultNotices()
	if c.Notices.Restricted == "" {
		c.Notices.Restricted = defaults.Restricted
	}
	if c.Notices.Synced == "" {
		c.Notices.Synced = defaults.Synced
	}
}

// Validate reports every missing or inconsistent setting at once
func (c *Config) Validate() error {
	var errs []error
	if c.WordPress.Username == "" || c.WordPress.Password == "" {
		errs = append(errs, errors.New("wordpress.username and wordpress.password are required"))
	}
	if c.Spond.Username == "" || c.Spond.Password == "" {
		errs = append(errs, errors.New("spond.username and spond.password are required"))
	}
	if c.WordPress.MaxPages < 0 || c.WordPress.PerPage < 0 || c.WordPress.PerPage > 100 {
		errs = append(errs, fmt.Errorf("wordpress.per_page must be 1..100 and max_pages positive"))
	}
	if c.Spond.MaxEvents < 0 {
		errs = append(errs, errors.New("spond.max_events must be positive"))
	}
	if _, err := time.LoadLocation(c.Fixture.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("fixture.timezone: %w", err))
	}
	a := c.Audiences
	if a.Restricted.GroupID == "" || a.Full.GroupID == "" {
		errs = append(errs, errors.New("audiences need both restricted and full group ids"))
	}
	if a.Restricted.GroupID == a.Full.GroupID || a.Restricted.Tag == a.Full.Tag {
		errs = append(errs, errors.New("restricted and full audiences must differ"))
	}
	return errors.Join(errs...)
}

// DestinationOptions returns the fixture presentation settings
func (c *Config) DestinationOptions() (mapping.DestinationOptions, error) {
	loc, err := time.LoadLocation(c.Fixture.Timezone)
	if err != nil {
		return mapping.DestinationOptions{}, fmt.Errorf("load timezone %s: %w", c.Fixture.Timezone, err)
	}
	return mapping.DestinationOptions{
		Location:  loc,
		LinkLabel: c.Fixture.LinkLabel,
		LinkBase:  c.Fixture.LinkBase,
		MapZoom:   c.Fixture.MapZoom,
	}, nil
}
