// Package artifacts uploads rendered run reports to an S3-compatible bucket.
package artifacts

import (
	"errors"
	"fmt"
	"strings"
)

// Config describes the target bucket. An empty Endpoint disables uploads.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// Enabled reports whether an endpoint was configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("artifact endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("artifact endpoint must not include scheme: %q", c.Endpoint)
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("artifact access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("artifact secret key is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("artifact bucket is required")
	}
	return nil
}
