package metadata

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yndnr/meshboot/internal/core/domain"
	"github.com/yndnr/meshboot/internal/telemetry/logger"
)

const fullTask = `{
  "Cluster": "arn:aws:ecs:us-east-1:123456789012:cluster/consul",
  "TaskARN": "arn:aws:ecs:us-east-1:123456789012:task/consul/4c2f8a7e9b1d",
  "Family": "consul-server",
  "AvailabilityZone": "us-east-1a",
  "Containers": [
    {
      "Name": "consul",
      "Networks": [
        {"NetworkMode": "awsvpc", "IPv4Addresses": ["10.0.1.12"]}
      ]
    }
  ]
}`

func newMetadataServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/task" {
			t.Errorf("path = %q, want /task", r.URL.Path)
		}
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func quietLogger(t *testing.T) logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{Level: "debug", Output: io.Discard})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	return l
}

func TestResolveIdentity(t *testing.T) {
	srv := newMetadataServer(t, http.StatusOK, fullTask)
	c := NewClient(srv.URL, WithLogger(quietLogger(t)))

	id, err := c.ResolveIdentity(context.Background())
	if err != nil {
		t.Fatalf("ResolveIdentity() error = %v", err)
	}

	want := domain.TaskIdentity{
		TaskID:  "4c2f8a7e9b1d",
		Family:  "consul-server",
		IP:      "10.0.1.12",
		Zone:    "us-east-1a",
		Cluster: "consul",
	}
	if id != want {
		t.Errorf("ResolveIdentity() = %+v, want %+v", id, want)
	}
}

func TestResolveIdentity_OptionalFields(t *testing.T) {
	body := `{
	  "TaskARN": "arn:aws:ecs:us-east-1:1:task/c/abc",
	  "Family": "web",
	  "Containers": [{"Networks": [{"IPv4Addresses": ["10.0.0.5", "10.0.0.6"]}]}]
	}`
	srv := newMetadataServer(t, http.StatusOK, body)
	c := NewClient(srv.URL+"/", WithLogger(quietLogger(t)))

	id, err := c.ResolveIdentity(context.Background())
	if err != nil {
		t.Fatalf("ResolveIdentity() error = %v", err)
	}
	if id.Zone != "" {
		t.Errorf("Zone = %q, want empty", id.Zone)
	}
	if id.Cluster != "" {
		t.Errorf("Cluster = %q, want empty", id.Cluster)
	}
	if id.IP != "10.0.0.5" {
		t.Errorf("IP = %q, want %q", id.IP, "10.0.0.5")
	}
}

func TestResolveIdentity_Unavailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{}`},
		{"not found", http.StatusNotFound, ``},
		{"not json", http.StatusOK, `<html>`},
		{"no containers", http.StatusOK, `{"TaskARN":"arn:aws:ecs:r:1:task/c/abc","Family":"f","Containers":[]}`},
		{"no networks", http.StatusOK, `{"TaskARN":"arn:aws:ecs:r:1:task/c/abc","Family":"f","Containers":[{"Networks":[]}]}`},
		{"no addresses", http.StatusOK, `{"TaskARN":"arn:aws:ecs:r:1:task/c/abc","Family":"f","Containers":[{"Networks":[{"IPv4Addresses":[]}]}]}`},
		{"short task arn", http.StatusOK, `{"TaskARN":"arn:aws:ecs:r:1:task/abc","Family":"f","Containers":[{"Networks":[{"IPv4Addresses":["10.0.0.1"]}]}]}`},
		{"missing family", http.StatusOK, `{"TaskARN":"arn:aws:ecs:r:1:task/c/abc","Containers":[{"Networks":[{"IPv4Addresses":["10.0.0.1"]}]}]}`},
		{"bad address", http.StatusOK, `{"TaskARN":"arn:aws:ecs:r:1:task/c/abc","Family":"f","Containers":[{"Networks":[{"IPv4Addresses":["fe80::1"]}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newMetadataServer(t, tt.status, tt.body)
			c := NewClient(srv.URL, WithLogger(quietLogger(t)))

			_, err := c.ResolveIdentity(context.Background())
			if !errors.Is(err, domain.ErrMetadataUnavailable) {
				t.Errorf("ResolveIdentity() error = %v, want ErrMetadataUnavailable", err)
			}
		})
	}
}

func TestResolveIdentity_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, WithTimeout(time.Second), WithLogger(quietLogger(t)))
	_, err := c.ResolveIdentity(context.Background())
	if !errors.Is(err, domain.ErrMetadataUnavailable) {
		t.Errorf("ResolveIdentity() error = %v, want ErrMetadataUnavailable", err)
	}
}

func TestResolveIdentity_EmptyURI(t *testing.T) {
	c := NewClient("")
	_, err := c.ResolveIdentity(context.Background())
	if !errors.Is(err, domain.ErrMetadataUnavailable) {
		t.Errorf("ResolveIdentity() error = %v, want ErrMetadataUnavailable", err)
	}
}

func TestNewClient_BaseURL(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"169.254.170.2/v3/abc", "http://169.254.170.2/v3/abc"},
		{"http://169.254.170.2/v4/abc/", "http://169.254.170.2/v4/abc"},
		{"https://example.com", "https://example.com"},
	}
	for _, tt := range tests {
		if got := NewClient(tt.uri).BaseURL(); got != tt.want {
			t.Errorf("NewClient(%q).BaseURL() = %q, want %q", tt.uri, got, tt.want)
		}
	}
}
