// Package redisconn turns a REDIS_URL into client options shared by the
// lock and job queue clients.
package redisconn

import (
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Options parses redisURL (redis:// or rediss://). When tlsInsecure is set,
// certificate verification is disabled, which managed Redis offerings with
// self-signed certificates need.
func Options(redisURL string, tlsInsecure bool) (*redis.Options, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		opt.TLSConfig = clone
	} else if tlsInsecure {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via REDIS_TLS_INSECURE
	}
	return opt, nil
}

// NewClient creates a go-redis client for redisURL.
func NewClient(redisURL string, tlsInsecure bool) (*redis.Client, error) {
	opt, err := Options(redisURL, tlsInsecure)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}
