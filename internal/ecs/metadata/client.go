package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/meshboot/internal/core/domain"
	"github.com/yndnr/meshboot/internal/infra/buildinfo"
	"github.com/yndnr/meshboot/internal/telemetry/logger"
	"github.com/yndnr/meshboot/internal/telemetry/tracer"
)

// DefaultTimeout bounds a single metadata request.
const DefaultTimeout = 5 * time.Second

// maxBodySize caps the metadata document read from the endpoint.
const maxBodySize = 1 << 20

// Client reads the task metadata document.
type Client struct {
	baseURL string
	client  *http.Client
	log     logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.client = c
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.client.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(cl *Client) {
		cl.log = l
	}
}

// NewClient creates a metadata client for the given endpoint base URI.
func NewClient(uri string, opts ...Option) *Client {
	baseURL := strings.TrimRight(uri, "/")
	if baseURL != "" && !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	c := &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: tracer.Transport(nil),
		},
		log: logger.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the endpoint base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// taskMetadata is the subset of the task metadata document meshboot reads.
type taskMetadata struct {
	Cluster          string `json:"Cluster"`
	TaskARN          string `json:"TaskARN"`
	Family           string `json:"Family"`
	AvailabilityZone string `json:"AvailabilityZone"`
	Containers       []struct {
		Name     string `json:"Name"`
		Networks []struct {
			NetworkMode   string   `json:"NetworkMode"`
			IPv4Addresses []string `json:"IPv4Addresses"`
		} `json:"Networks"`
	} `json:"Containers"`
}

// ResolveIdentity fetches {uri}/task and extracts the task identity.
// Every failure is reported as domain.ErrMetadataUnavailable; there is no
// retry.
func (c *Client) ResolveIdentity(ctx context.Context) (domain.TaskIdentity, error) {
	ctx, span := tracer.StartSpan(ctx, "metadata.ResolveIdentity")
	defer span.End()

	id, err := c.resolve(ctx)
	if err != nil {
		span.RecordError(err)
		return domain.TaskIdentity{}, err
	}
	span.SetAttribute("task_id", id.TaskID)
	span.SetAttribute("family", id.Family)
	return id, nil
}

func (c *Client) resolve(ctx context.Context) (domain.TaskIdentity, error) {
	if c.baseURL == "" {
		return domain.TaskIdentity{}, domain.ErrMetadataUnavailable.WithDetails("metadata endpoint URI is not set")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/task", nil)
	if err != nil {
		return domain.TaskIdentity{}, domain.ErrMetadataUnavailable.WithCause(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.TaskIdentity{}, domain.ErrMetadataUnavailable.WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return domain.TaskIdentity{}, domain.ErrMetadataUnavailable.WithCause(fmt.Errorf("read body: %w", err))
	}
	c.log.Debug("task metadata", "status", resp.StatusCode, "body", string(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.TaskIdentity{}, domain.ErrMetadataUnavailable.WithDetails(
			fmt.Sprintf("GET %s/task returned status %d", c.baseURL, resp.StatusCode))
	}

	var md taskMetadata
	if err := json.Unmarshal(body, &md); err != nil {
		return domain.TaskIdentity{}, domain.ErrMetadataUnavailable.WithCause(fmt.Errorf("decode task metadata: %w", err))
	}
	return md.identity()
}

func (md *taskMetadata) identity() (domain.TaskIdentity, error) {
	if len(md.Containers) == 0 {
		return domain.TaskIdentity{}, domain.ErrMetadataUnavailable.WithDetails("task metadata has no containers")
	}
	networks := md.Containers[0].Networks
	if len(networks) == 0 {
		return domain.TaskIdentity{}, domain.ErrMetadataUnavailable.WithDetails("first container has no networks")
	}
	if len(networks[0].IPv4Addresses) == 0 {
		return domain.TaskIdentity{}, domain.ErrMetadataUnavailable.WithDetails("first network has no IPv4 addresses")
	}

	taskID, err := domain.TaskIDFromARN(md.TaskARN)
	if err != nil {
		return domain.TaskIdentity{}, domain.ErrMetadataUnavailable.WithCause(err)
	}

	id := domain.TaskIdentity{
		TaskID:  taskID,
		Family:  md.Family,
		IP:      networks[0].IPv4Addresses[0],
		Zone:    md.AvailabilityZone,
		Cluster: domain.ClusterName(md.Cluster),
	}
	if err := id.Validate(); err != nil {
		return domain.TaskIdentity{}, domain.ErrMetadataUnavailable.WithCause(err)
	}
	return id, nil
}
