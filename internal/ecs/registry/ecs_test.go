package registry

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/yndnr/meshboot/internal/core/domain"
	"github.com/yndnr/meshboot/internal/telemetry/logger"
)

type fakeECS struct {
	pages        [][]string
	tasks        map[string]types.Task
	failures     []types.Failure
	listErr      error
	describeErr  error
	listInputs   []*ecs.ListTasksInput
	describeArgs [][]string
}

func (f *fakeECS) ListTasks(_ context.Context, in *ecs.ListTasksInput, _ ...func(*ecs.Options)) (*ecs.ListTasksOutput, error) {
	f.listInputs = append(f.listInputs, in)
	if f.listErr != nil {
		return nil, f.listErr
	}
	idx := len(f.listInputs) - 1
	if idx >= len(f.pages) {
		return &ecs.ListTasksOutput{}, nil
	}
	out := &ecs.ListTasksOutput{TaskArns: f.pages[idx]}
	if idx < len(f.pages)-1 {
		out.NextToken = aws.String("next")
	}
	return out, nil
}

func (f *fakeECS) DescribeTasks(_ context.Context, in *ecs.DescribeTasksInput, _ ...func(*ecs.Options)) (*ecs.DescribeTasksOutput, error) {
	f.describeArgs = append(f.describeArgs, in.Tasks)
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	out := &ecs.DescribeTasksOutput{Failures: f.failures}
	for _, arn := range in.Tasks {
		if task, ok := f.tasks[arn]; ok {
			out.Tasks = append(out.Tasks, task)
		}
	}
	return out, nil
}

func task(arn string, ips ...string) types.Task {
	c := types.Container{Name: aws.String("consul")}
	for _, ip := range ips {
		c.NetworkInterfaces = append(c.NetworkInterfaces, types.NetworkInterface{PrivateIpv4Address: aws.String(ip)})
	}
	return types.Task{TaskArn: aws.String(arn), Containers: []types.Container{c}}
}

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{Level: "debug", Output: io.Discard})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	return l
}

func TestListRunningTasks(t *testing.T) {
	api := &fakeECS{pages: [][]string{{"arn:a", "arn:b"}}}
	r := New(api, testLogger(t))

	arns, err := r.ListRunningTasks(context.Background(), "consul", "consul-server", 3)
	if err != nil {
		t.Fatalf("ListRunningTasks() error = %v", err)
	}
	if !reflect.DeepEqual(arns, []string{"arn:a", "arn:b"}) {
		t.Errorf("ListRunningTasks() = %v", arns)
	}

	in := api.listInputs[0]
	if aws.ToString(in.Cluster) != "consul" || aws.ToString(in.Family) != "consul-server" {
		t.Errorf("ListTasks cluster/family = %q/%q", aws.ToString(in.Cluster), aws.ToString(in.Family))
	}
	if in.DesiredStatus != types.DesiredStatusRunning {
		t.Errorf("DesiredStatus = %q, want RUNNING", in.DesiredStatus)
	}
	if aws.ToInt32(in.MaxResults) != 3 {
		t.Errorf("MaxResults = %d, want 3", aws.ToInt32(in.MaxResults))
	}
}

func TestListRunningTasks_Paginates(t *testing.T) {
	first := make([]string, 100)
	for i := range first {
		first[i] = "arn:p1"
	}
	api := &fakeECS{pages: [][]string{first, {"arn:x", "arn:y", "arn:z"}}}
	r := New(api, testLogger(t))

	arns, err := r.ListRunningTasks(context.Background(), "c", "f", 102)
	if err != nil {
		t.Fatalf("ListRunningTasks() error = %v", err)
	}
	if len(arns) != 102 {
		t.Errorf("len = %d, want 102", len(arns))
	}
	if got := aws.ToInt32(api.listInputs[0].MaxResults); got != 100 {
		t.Errorf("first page MaxResults = %d, want 100", got)
	}
	if got := aws.ToInt32(api.listInputs[1].MaxResults); got != 2 {
		t.Errorf("second page MaxResults = %d, want 2", got)
	}
	if aws.ToString(api.listInputs[1].NextToken) != "next" {
		t.Error("second page did not pass NextToken")
	}
}

func TestListRunningTasks_Errors(t *testing.T) {
	r := New(&fakeECS{listErr: errors.New("throttled")}, testLogger(t))
	if _, err := r.ListRunningTasks(context.Background(), "c", "f", 1); !errors.Is(err, domain.ErrRegistry) {
		t.Errorf("error = %v, want ErrRegistry", err)
	}

	if _, err := r.ListRunningTasks(context.Background(), "c", "f", 0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
}

func TestDescribeTasks(t *testing.T) {
	api := &fakeECS{tasks: map[string]types.Task{
		"arn:a": task("arn:a", "10.0.0.1", "10.0.9.9"),
		"arn:b": task("arn:b", "10.0.0.2"),
	}}
	r := New(api, testLogger(t))

	descs, err := r.DescribeTasks(context.Background(), "c", []string{"arn:a", "arn:b"})
	if err != nil {
		t.Fatalf("DescribeTasks() error = %v", err)
	}
	if len(descs) != 2 {
		t.Fatalf("len = %d, want 2", len(descs))
	}
	if ip, ok := descs[0].PrivateIPv4(); !ok || ip != "10.0.0.1" {
		t.Errorf("descs[0].PrivateIPv4() = %q, %v", ip, ok)
	}
	if descs[1].TaskRef != "arn:b" {
		t.Errorf("descs[1].TaskRef = %q, want arn:b", descs[1].TaskRef)
	}
}

func TestDescribeTasks_Errors(t *testing.T) {
	tests := []struct {
		name string
		api  *fakeECS
	}{
		{"api error", &fakeECS{describeErr: errors.New("denied")}},
		{"task failure", &fakeECS{failures: []types.Failure{{Arn: aws.String("arn:a"), Reason: aws.String("MISSING")}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.api, testLogger(t))
			if _, err := r.DescribeTasks(context.Background(), "c", []string{"arn:a"}); !errors.Is(err, domain.ErrRegistry) {
				t.Errorf("error = %v, want ErrRegistry", err)
			}
		})
	}
}

func TestDescribeTasks_Chunks(t *testing.T) {
	refs := make([]string, 150)
	tasks := make(map[string]types.Task, len(refs))
	for i := range refs {
		refs[i] = "arn:" + string(rune('a'+i%26)) + string(rune('0'+i/26))
		tasks[refs[i]] = task(refs[i], "10.0.0.1")
	}
	api := &fakeECS{tasks: tasks}
	r := New(api, testLogger(t))

	descs, err := r.DescribeTasks(context.Background(), "c", refs)
	if err != nil {
		t.Fatalf("DescribeTasks() error = %v", err)
	}
	if len(api.describeArgs) != 2 || len(api.describeArgs[0]) != 100 || len(api.describeArgs[1]) != 50 {
		t.Errorf("describe batches = %d", len(api.describeArgs))
	}
	if len(descs) != 150 {
		t.Errorf("len = %d, want 150", len(descs))
	}
}
