package app

import (
	"strings"
	"testing"

	"github.com/kdore/gantry/internal/config"
)

func TestEndpointFromConfig(t *testing.T) {
	cfg := config.Config{
		Host:       "printer.local",
		Port:       3344,
		Path:       "/",
		Slug:       "fanera1",
		APIKey:     "secret",
		CameraPort: 9090,
	}

	e := endpointFromConfig(cfg)
	if e.Host != "printer.local" || e.Port != 3344 || e.Slug != "fanera1" {
		t.Errorf("endpoint = %+v, want config values carried over", e)
	}
	if !strings.HasPrefix(e.StateListURL(), "http://printer.local:3344/") {
		t.Errorf("StateListURL = %q", e.StateListURL())
	}
	if !strings.Contains(e.SnapshotURL(), ":9090") {
		t.Errorf("SnapshotURL = %q, want camera port honored", e.SnapshotURL())
	}
}
