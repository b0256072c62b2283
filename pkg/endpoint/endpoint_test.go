package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cloudera/cdpcore/pkg/config"
)

func TestResolve_AltusDefaultPattern(t *testing.T) {
	url := Resolve(Options{
		ServiceName: "iam",
		Products:    []string{ProductAltus},
		Region:      "us-west-1",
	}, nil)
	assert.Equal(t, "https://iamapi.us-west-1.altus.cloudera.com", url)
}

func TestResolve_ConfiguredCDPEndpointWithSubstitution(t *testing.T) {
	cfg := &config.Config{CDPEndpointURL: "https://%s.internal.example.com"}
	url := Resolve(Options{
		ServiceName: "iam",
		Products:    []string{ProductCDP},
	}, cfg)
	assert.Equal(t, "https://iam.internal.example.com", url)

	// The shared CDP override does not apply to Altus services.
	url = Resolve(Options{
		ServiceName: "iam",
		Products:    []string{ProductAltus},
	}, cfg)
	assert.Equal(t, "https://iamapi.us-west-1.altus.cloudera.com", url)
}

func TestResolve_EndpointPrefixFillsPlaceholder(t *testing.T) {
	// A service whose prefix differs from its name substitutes the
	// prefix, not the name.
	cfg := &config.Config{CDPEndpointURL: "https://%s.internal.example.com"}
	url := Resolve(Options{
		ServiceName:    "iam",
		EndpointPrefix: "iamapi",
		Products:       []string{ProductCDP},
	}, cfg)
	assert.Equal(t, "https://iamapi.internal.example.com", url)

	url = Resolve(Options{
		ServiceName:    "iam",
		EndpointPrefix: "iamapi",
		ExplicitURL:    "https://%s.override.example.com",
	}, nil)
	assert.Equal(t, "https://iamapi.override.example.com", url)
}

func TestResolve_ExplicitOverrideWinsOverEverything(t *testing.T) {
	cfg := &config.Config{
		EndpointURL:    "https://configured.example.com",
		CDPEndpointURL: "https://cdp.example.com",
	}
	url := Resolve(Options{
		ServiceName: "iam",
		Products:    []string{ProductCDP},
		ExplicitURL: "https://%s.override.example.com",
	}, cfg)
	assert.Equal(t, "https://iam.override.example.com", url)

	// Without the explicit override, the per-service config wins next.
	url = Resolve(Options{ServiceName: "iam", Products: []string{ProductCDP}}, cfg)
	assert.Equal(t, "https://configured.example.com", url)
}

func TestResolve_RegionFallback(t *testing.T) {
	// Argument beats config beats hard-coded default.
	cfg := &config.Config{Region: "eu-1"}
	url := Resolve(Options{ServiceName: "iam", Products: []string{ProductCDP}, Region: "ap-1"}, cfg)
	assert.Equal(t, "https://api.ap-1.cdp.cloudera.com", url)

	url = Resolve(Options{ServiceName: "iam", Products: []string{ProductCDP}}, cfg)
	assert.Equal(t, "https://api.eu-1.cdp.cloudera.com", url)

	url = Resolve(Options{ServiceName: "iam", Products: []string{ProductCDP}}, nil)
	assert.Equal(t, "https://api.us-west-1.cdp.cloudera.com", url)
}

func TestResolve_GovAndLoginBranches(t *testing.T) {
	url := Resolve(Options{ServiceName: "iam", Products: []string{ProductCDP}, Region: GovRegion}, nil)
	assert.Equal(t, "https://api.usg-1.cdp.clouderagovt.com", url)

	url = Resolve(Options{ServiceName: "login", Products: []string{ProductLogin}}, nil)
	assert.Equal(t, "https://consoleauth.altus.cloudera.com", url)

	url = Resolve(Options{ServiceName: "login", Products: []string{ProductLogin}, Region: GovRegion}, nil)
	assert.Equal(t, "https://console.usg-1.cdp.clouderagovt.com", url)

	url = Resolve(Options{ServiceName: "login", Products: []string{ProductLogin}, Region: "eu-1"}, nil)
	assert.Equal(t, "https://console.eu-1.cdp.cloudera.com", url)
}

func TestResolve_SchemeAndPort(t *testing.T) {
	url := Resolve(Options{
		ServiceName: "iam",
		Products:    []string{ProductCDP},
		Scheme:      "http",
		Port:        8080,
	}, nil)
	assert.Equal(t, "http://api.us-west-1.cdp.cloudera.com:8080", url)
}
