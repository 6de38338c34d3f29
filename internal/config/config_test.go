package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epsomandewellharriers/spond_sync/internal/mapping"
	"github.com/epsomandewellharriers/spond_sync/internal/spond"
	"github.com/epsomandewellharriers/spond_sync/internal/wordpress"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMinimal(t *testing.T) {
	path := writeConfig(t, `
wordpress:
  username: editor
  password: app-password
spond:
  username: coach@example.org
  password: secret
`)
	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, DefaultJob, c.Job)
	assert.Equal(t, DefaultHost, c.WordPress.Host)
	assert.Equal(t, wordpress.DefaultPostType, c.WordPress.PostType)
	assert.Equal(t, wordpress.DefaultMaxPages, c.WordPress.MaxPages)
	assert.Equal(t, wordpress.DefaultPerPage, c.WordPress.PerPage)
	assert.Equal(t, spond.DefaultBaseURL, c.Spond.BaseURL)
	assert.Equal(t, spond.DefaultMaxEvents, c.Spond.MaxEvents)
	assert.Equal(t, mapping.DefaultTimezone, c.Fixture.Timezone)
	assert.Equal(t, mapping.DefaultVocabulary(), c.Audiences)
	assert.Equal(t, mapping.DefaultNotices(), c.Notices)

	opts, err := c.DestinationOptions()
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", opts.Location.String())
	assert.Equal(t, mapping.DefaultMapZoom, opts.MapZoom)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
job: club_sync
wordpress:
  host: staging.example.org
  username: editor
  password: app-password
  max_pages: 3
  timeout: 5s
spond:
  username: coach@example.org
  password: secret
  group_id: GROUP
fixture:
  timezone: Europe/Dublin
  link_label: Open in Spond
audiences:
  restricted: {group_id: KIDS, tag: 7}
  full: {group_id: ADULTS, tag: 8}
notices:
  synced: Reply in the app.
`)
	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "club_sync", c.Job)
	assert.Equal(t, "staging.example.org", c.WordPress.Host)
	assert.Equal(t, 3, c.WordPress.MaxPages)
	assert.Equal(t, 5*time.Second, c.WordPress.Timeout)
	assert.Equal(t, "GROUP", c.Spond.GroupID)
	assert.Equal(t, "Open in Spond", c.Fixture.LinkLabel)
	assert.Equal(t, mapping.DefaultLinkBase, c.Fixture.LinkBase)
	assert.Equal(t, mapping.Audience{GroupID: "KIDS", Tag: 7}, c.Audiences.Restricted)
	assert.Equal(t, "Reply in the app.", c.Notices.Synced)
	assert.Equal(t, mapping.DefaultNotices().Restricted, c.Notices.Restricted)
}

func TestLoadCredentialsFromEnvironment(t *testing.T) {
	t.Setenv(EnvWordPressPassword, "from-env")
	t.Setenv(EnvSpondUsername, "env@example.org")
	t.Setenv(EnvSpondPassword, "env-secret")
	path := writeConfig(t, `
wordpress:
  username: editor
  password: from-file
`)
	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, "editor", c.WordPress.Username)
	assert.Equal(t, "from-env", c.WordPress.Password)
	assert.Equal(t, "env@example.org", c.Spond.Username)
	assert.Equal(t, "env-secret", c.Spond.Password)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	_, err = Load(writeConfig(t, "wordpress: [unclosed"))
	assert.ErrorContains(t, err, "parse yaml")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		edit   func(c *Config)
		errMsg string
	}{
		{"missing wordpress credentials", func(c *Config) { c.WordPress.Password = "" }, "wordpress.username"},
		{"missing spond credentials", func(c *Config) { c.Spond.Username = "" }, "spond.username"},
		{"unknown timezone", func(c *Config) { c.Fixture.Timezone = "Mars/Olympus" }, "fixture.timezone"},
		{"page size too large", func(c *Config) { c.WordPress.PerPage = 500 }, "per_page"},
		{"same audience twice", func(c *Config) { c.Audiences.Full = c.Audiences.Restricted }, "must differ"},
		{"missing group", func(c *Config) { c.Audiences.Full.GroupID = "" }, "group ids"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				WordPress: WordPress{Username: "u", Password: "p"},
				Spond:     Spond{Username: "u", Password: "p"},
			}
			c.applyDefaults()
			require.NoError(t, c.Validate())

			tt.edit(c)
			assert.ErrorContains(t, c.Validate(), tt.errMsg)
		})
	}
}
