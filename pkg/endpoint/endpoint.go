// Package endpoint derives the base URL an operation is sent to, from the
// product family, region, configuration and any explicit override.
package endpoint

import (
	"fmt"
	"strings"

	"github.com/cloudera/cdpcore/pkg/config"
)

// Region names with dedicated hostname patterns.
const (
	// DefaultRegion is assumed when neither the caller nor the config
	// names a region.
	DefaultRegion = "us-west-1"

	// GovRegion is the government cloud region.
	GovRegion = "usg-1"
)

// Product families. A service belongs to at least one; LOGIN has its own
// hostname branch.
const (
	ProductAltus = "ALTUS"
	ProductCDP   = "CDP"
	ProductLogin = "LOGIN"
)

// Options carries the non-config inputs of one resolution.
type Options struct {
	// ServiceName is the endpoint name of the service ("iam").
	ServiceName string

	// Products is the service's product family list.
	Products []string

	// EndpointPrefix fills the %s placeholder of URL templates. Empty
	// means the service name.
	EndpointPrefix string

	// ExplicitURL is a per-invocation override and wins over
	// everything else. A single %s is substituted with the endpoint
	// prefix.
	ExplicitURL string

	// Region overrides the configured region.
	Region string

	// Scheme defaults to https for constructed URLs.
	Scheme string

	// Port, when non-zero, is appended to constructed URLs.
	Port int
}

// Resolve derives the base URL for an operation. Precedence, highest
// first: explicit override, configured URL, constructed default.
func Resolve(opts Options, cfg *config.Config) string {
	prefix := opts.EndpointPrefix
	if prefix == "" {
		prefix = opts.ServiceName
	}
	if opts.ExplicitURL != "" {
		return substitute(opts.ExplicitURL, prefix)
	}
	if cfg != nil && cfg.EndpointURL != "" {
		return substitute(cfg.EndpointURL, prefix)
	}
	if cfg != nil && cfg.CDPEndpointURL != "" && !hasProduct(opts.Products, ProductAltus) {
		return substitute(cfg.CDPEndpointURL, prefix)
	}

	region := opts.Region
	if region == "" && cfg != nil {
		region = cfg.Region
	}
	if region == "" {
		region = DefaultRegion
	}
	scheme := opts.Scheme
	if scheme == "" {
		scheme = "https"
	}

	host := defaultHost(opts.ServiceName, opts.Products, region)
	if opts.Port > 0 {
		return fmt.Sprintf("%s://%s:%d", scheme, host, opts.Port)
	}
	return fmt.Sprintf("%s://%s", scheme, host)
}

// defaultHost is the three-way region branch, doubled for the LOGIN
// family which lives on the console hosts.
func defaultHost(service string, products []string, region string) string {
	switch {
	case hasProduct(products, ProductLogin):
		switch region {
		case DefaultRegion:
			return "consoleauth.altus.cloudera.com"
		case GovRegion:
			return fmt.Sprintf("console.%s.cdp.clouderagovt.com", region)
		default:
			return fmt.Sprintf("console.%s.cdp.cloudera.com", region)
		}
	case hasProduct(products, ProductAltus):
		switch region {
		case DefaultRegion:
			return fmt.Sprintf("%sapi.us-west-1.altus.cloudera.com", service)
		case GovRegion:
			return fmt.Sprintf("%sapi.%s.altus.clouderagovt.com", service, region)
		default:
			return fmt.Sprintf("%sapi.%s.altus.cloudera.com", service, region)
		}
	default:
		switch region {
		case DefaultRegion:
			return "api.us-west-1.cdp.cloudera.com"
		case GovRegion:
			return fmt.Sprintf("api.%s.cdp.clouderagovt.com", region)
		default:
			return fmt.Sprintf("api.%s.cdp.cloudera.com", region)
		}
	}
}

// substitute expands the single %s placeholder override templates may
// carry with the endpoint prefix. Overrides without a placeholder are
// returned as-is.
func substitute(template, prefix string) string {
	if strings.Contains(template, "%s") {
		return fmt.Sprintf(template, prefix)
	}
	return template
}

func hasProduct(products []string, name string) bool {
	for _, p := range products {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}
