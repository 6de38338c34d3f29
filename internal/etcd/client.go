// Package etcd provides an etcd backed run lock.
package etcd

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// DefaultPrefix is used when the DSN names no key prefix
const DefaultPrefix = "/spond_sync/"

// EtcdClient wraps an etcd connection scoped to a key prefix
type EtcdClient struct {
	client         *clientv3.Client
	prefix         string
	requestTimeout time.Duration
	leaseTTL       int
}

// NewEtcdClient creates a new etcd client with DSN parsing
func NewEtcdClient(dsn string) (*EtcdClient, error) {
	opts, err := parseEtcdDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse etcd DSN: %w", err)
	}

	client, err := clientv3.New(opts.config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	logrus.WithField("endpoints", opts.config.Endpoints).Info("Connected to etcd successfully")

	return &EtcdClient{
		client:         client,
		prefix:         GetPrefix(dsn),
		requestTimeout: opts.requestTimeout,
		leaseTTL:       opts.leaseTTL,
	}, nil
}

// Close closes the etcd client connection
func (c *EtcdClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Get reads a key below the client prefix. A missing key yields nil.
func (c *EtcdClient) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.client.Get(ctx, c.key(key))
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, nil
	}
	return resp.Kvs[0].Value, nil
}

func (c *EtcdClient) key(name string) string {
	return path.Join(c.prefix, name)
}

type dsnOptions struct {
	config         clientv3.Config
	requestTimeout time.Duration
	leaseTTL       int
}

// parseEtcdDSN parses etcd DSN format: etcd://host1:port1[,host2:port2]/[prefix]?param=value
func parseEtcdDSN(dsn string) (*dsnOptions, error) {
	opts := &dsnOptions{
		config: clientv3.Config{
			Endpoints:   []string{"127.0.0.1:2379"},
			DialTimeout: 5 * time.Second,
		},
		requestTimeout: 5 * time.Second,
		leaseTTL:       60,
	}
	if dsn == "" {
		return opts, nil
	}

	if !strings.HasPrefix(dsn, "etcd://") {
		return nil, fmt.Errorf("etcd DSN must start with etcd://")
	}

	// Parse as URL to handle query parameters
	u, err := url.Parse("dummy://" + strings.TrimPrefix(dsn, "etcd://"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("etcd DSN has no endpoints")
	}

	endpoints := strings.Split(u.Host, ",")
	for i, endpoint := range endpoints {
		if !strings.Contains(endpoint, ":") {
			endpoints[i] = endpoint + ":2379" // Default etcd port
		}
	}
	opts.config.Endpoints = endpoints

	params := u.Query()

	if timeout := params.Get("dial_timeout"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid dial_timeout: %w", err)
		}
		opts.config.DialTimeout = d
	}

	if timeout := params.Get("request_timeout"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid request_timeout: %w", err)
		}
		opts.requestTimeout = d
	}

	if ttl := params.Get("lease_ttl"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil || d < time.Second {
			return nil, fmt.Errorf("invalid lease_ttl %q", ttl)
		}
		opts.leaseTTL = int(d / time.Second)
	}

	if username := params.Get("username"); username != "" {
		opts.config.Username = username
	}

	if password := params.Get("password"); password != "" {
		opts.config.Password = password
	}

	switch params.Get("tls") {
	case "", "disabled":
	case "enabled":
		opts.config.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	case "insecure":
		opts.config.TLS = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	default:
		return nil, fmt.Errorf("invalid tls mode %q", params.Get("tls"))
	}

	return opts, nil
}

// GetPrefix extracts the key prefix from the etcd DSN path
func GetPrefix(dsn string) string {
	if dsn == "" || !strings.HasPrefix(dsn, "etcd://") {
		return DefaultPrefix
	}

	u, err := url.Parse("dummy://" + strings.TrimPrefix(dsn, "etcd://"))
	if err != nil || u.Path == "" || u.Path == "/" {
		return DefaultPrefix
	}

	if !strings.HasSuffix(u.Path, "/") {
		return u.Path + "/"
	}
	return u.Path
}
