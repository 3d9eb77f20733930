package registry

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/yndnr/meshboot/internal/core/domain"
	"github.com/yndnr/meshboot/internal/telemetry/logger"
)

// ECS API page limits.
const (
	maxListResults   = 100
	maxDescribeTasks = 100
)

// API is the subset of the ECS client used by Registry.
type API interface {
	ListTasks(ctx context.Context, in *ecs.ListTasksInput, optFns ...func(*ecs.Options)) (*ecs.ListTasksOutput, error)
	DescribeTasks(ctx context.Context, in *ecs.DescribeTasksInput, optFns ...func(*ecs.Options)) (*ecs.DescribeTasksOutput, error)
}

// Registry lists and describes ECS tasks.
type Registry struct {
	api API
	log logger.Logger
}

// New creates a Registry backed by the given API client.
func New(api API, log logger.Logger) *Registry {
	if log == nil {
		log = logger.Default()
	}
	return &Registry{api: api, log: log}
}

// NewFromConfig loads the default AWS configuration (environment, shared
// config, instance or task role) and creates a Registry for region.
// An empty region leaves resolution to the SDK.
func NewFromConfig(ctx context.Context, region string, log logger.Logger) (*Registry, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, domain.ErrRegistry.WithDetails("load AWS configuration").WithCause(err)
	}
	return New(ecs.NewFromConfig(cfg), log), nil
}

// ListRunningTasks returns up to maxResults task ARNs of the family whose
// desired status is RUNNING, in the order ECS lists them.
func (r *Registry) ListRunningTasks(ctx context.Context, cluster, family string, maxResults int) ([]string, error) {
	if maxResults <= 0 {
		return nil, domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("maxResults must be positive, got %d", maxResults))
	}

	var (
		arns      []string
		nextToken *string
	)
	for len(arns) < maxResults {
		page := min(maxResults-len(arns), maxListResults)
		out, err := r.api.ListTasks(ctx, &ecs.ListTasksInput{
			Cluster:       aws.String(cluster),
			Family:        aws.String(family),
			DesiredStatus: types.DesiredStatusRunning,
			MaxResults:    aws.Int32(int32(page)),
			NextToken:     nextToken,
		})
		if err != nil {
			return nil, domain.ErrRegistry.WithDetails("ListTasks").WithCause(err)
		}
		arns = append(arns, out.TaskArns...)
		if out.NextToken == nil || *out.NextToken == "" {
			break
		}
		nextToken = out.NextToken
	}
	if len(arns) > maxResults {
		arns = arns[:maxResults]
	}

	r.log.Debug("ListTasks", "cluster", cluster, "family", family, "task_arns", arns)
	return arns, nil
}

// DescribeTasks describes the given tasks. Failures reported by ECS for
// individual tasks are returned as errors.
func (r *Registry) DescribeTasks(ctx context.Context, cluster string, refs []string) ([]domain.TaskDescription, error) {
	result := make([]domain.TaskDescription, 0, len(refs))
	for start := 0; start < len(refs); start += maxDescribeTasks {
		end := min(start+maxDescribeTasks, len(refs))

		out, err := r.api.DescribeTasks(ctx, &ecs.DescribeTasksInput{
			Cluster: aws.String(cluster),
			Tasks:   refs[start:end],
		})
		if err != nil {
			return nil, domain.ErrRegistry.WithDetails("DescribeTasks").WithCause(err)
		}
		if len(out.Failures) > 0 {
			f := out.Failures[0]
			return nil, domain.ErrRegistry.WithDetails(fmt.Sprintf("DescribeTasks failure for %s: %s %s",
				aws.ToString(f.Arn), aws.ToString(f.Reason), aws.ToString(f.Detail)))
		}
		for _, task := range out.Tasks {
			result = append(result, describeTask(task))
		}
	}
	return result, nil
}

func describeTask(task types.Task) domain.TaskDescription {
	desc := domain.TaskDescription{
		TaskRef:    aws.ToString(task.TaskArn),
		Containers: make([]domain.ContainerDescription, 0, len(task.Containers)),
	}
	for _, c := range task.Containers {
		cd := domain.ContainerDescription{Name: aws.ToString(c.Name)}
		for _, ni := range c.NetworkInterfaces {
			cd.PrivateIPv4Addresses = append(cd.PrivateIPv4Addresses, aws.ToString(ni.PrivateIpv4Address))
		}
		desc.Containers = append(desc.Containers, cd)
	}
	return desc
}
