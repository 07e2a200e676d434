package config

import (
	"strings"
	"sync"
)

const (
	ServiceName    = "did-resolution-conformance"
	ServiceVersion = "0.1.0"
)

var (
	si   *serviceInfo
	once sync.Once
)

// getServiceInfo provides serviceInfo as a singleton
func getServiceInfo() *serviceInfo {
	once.Do(func() {
		si = &serviceInfo{
			name: ServiceName,
			description: "Conformance harness for DID resolvers exposed over the DID Resolution HTTP(S) binding, with a " +
				"reference resolver to test it against.",
			version: ServiceVersion,
		}
	})
	return si
}

// serviceInfo is intended to be a (mostly) read-only singleton object for static service info
type serviceInfo struct {
	mu          sync.RWMutex
	name        string
	description string
	version     string
	apiBase     string
}

func Name() string {
	return getServiceInfo().name
}

func Description() string {
	return getServiceInfo().description
}

func Version() string {
	return getServiceInfo().version
}

// SetAPIBase records the externally visible base URL of the reference resolver, without a trailing slash.
func SetAPIBase(url string) {
	info := getServiceInfo()
	info.mu.Lock()
	defer info.mu.Unlock()
	info.apiBase = strings.TrimSuffix(url, "/")
}

func GetAPIBase() string {
	info := getServiceInfo()
	info.mu.RLock()
	defer info.mu.RUnlock()
	return info.apiBase
}
