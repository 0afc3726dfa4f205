// Package instance names the running process for logs and lock ownership.
package instance

import (
	"os"

	"github.com/rapidsites/storefront/pkg/env"
)

const fallbackID = "worker-0"

// ID prefers STOREFRONT_INSTANCE_ID, then the hostname (the pod name on
// Cloud Run and Kubernetes).
func ID() string {
	if id := env.Get("STOREFRONT_INSTANCE_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
