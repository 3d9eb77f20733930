package command

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/yndnr/meshboot/internal/core/domain"
	"github.com/yndnr/meshboot/internal/core/service"
	"github.com/yndnr/meshboot/internal/telemetry/logger"
)

const serverTask = `{
  "Cluster": "arn:aws:ecs:eu-west-1:123456789012:cluster/consul",
  "TaskARN": "arn:aws:ecs:eu-west-1:123456789012:task/consul/abc123",
  "Family": "consul-server",
  "AvailabilityZone": "eu-west-1a",
  "Containers": [
    {"Name": "consul", "Networks": [{"NetworkMode": "awsvpc", "IPv4Addresses": ["10.0.0.1"]}]}
  ]
}`

const webTask = `{
  "Cluster": "consul",
  "TaskARN": "arn:aws:ecs:eu-west-1:123456789012:task/consul/xyz",
  "Family": "web",
  "AvailabilityZone": "eu-west-1b",
  "Containers": [
    {"Name": "web", "Networks": [{"NetworkMode": "awsvpc", "IPv4Addresses": ["10.0.0.5"]}]}
  ]
}`

// newMetadataServer serves body as the task metadata document.
func newMetadataServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/task" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// fakeRegistry replays scripted task listings; the last one repeats.
type fakeRegistry struct {
	mu        sync.Mutex
	rounds    [][]string
	ips       map[string]string
	clusters  []string
	listCalls int
}

func (f *fakeRegistry) ListRunningTasks(ctx context.Context, cluster, family string, maxResults int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++
	f.clusters = append(f.clusters, cluster)
	i := min(f.listCalls, len(f.rounds)) - 1
	return append([]string(nil), f.rounds[i]...), nil
}

func (f *fakeRegistry) DescribeTasks(ctx context.Context, cluster string, refs []string) ([]domain.TaskDescription, error) {
	tasks := make([]domain.TaskDescription, 0, len(refs))
	for _, ref := range refs {
		tasks = append(tasks, domain.TaskDescription{
			TaskRef: ref,
			Containers: []domain.ContainerDescription{{
				Name:                 "consul",
				PrivateIPv4Addresses: []string{f.ips[ref]},
			}},
		})
	}
	return tasks, nil
}

// useRegistry makes the discover command use reg.
func useRegistry(t *testing.T, reg service.TaskRegistry) {
	t.Helper()
	prev := newTaskRegistry
	newTaskRegistry = func(context.Context, string, logger.Logger) (service.TaskRegistry, error) {
		return reg, nil
	}
	t.Cleanup(func() { newTaskRegistry = prev })
}

// unsetEnv removes keys from the environment for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

// runApp runs the CLI with args and returns what it wrote to stdout and
// stderr.
func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runAppEnv(t, nil, args...)
}

// runAppEnv is runApp with a clean environment plus env.
func runAppEnv(t *testing.T, env map[string]string, args ...string) (string, string, error) {
	t.Helper()
	unsetEnv(t, "ECS_CONTAINER_METADATA_URI_V4", "ECS_CONTAINER_METADATA_URI", "SERVICE_CONFIG", "BOOTSTRAP_EXPECT", "LOG_LEVEL")
	for k, v := range env {
		t.Setenv(k, v)
	}

	prev := logger.Default()
	t.Cleanup(func() { logger.SetDefault(prev) })

	var stdout, stderr bytes.Buffer
	app := App()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	err := app.Run(append([]string{"meshboot"}, args...))
	return stdout.String(), stderr.String(), err
}
