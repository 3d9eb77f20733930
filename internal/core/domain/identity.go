package domain

import (
	"fmt"
	"net"
	"strings"
)

// TaskIdentity is the runtime identity of the task meshboot runs in.
// It is resolved once per process and never mutated afterwards.
type TaskIdentity struct {
	// TaskID is the unique task identifier (last segment of the task ARN).
	TaskID string `json:"task_id" yaml:"task_id"`

	// Family is the task definition family.
	Family string `json:"family" yaml:"family"`

	// IP is the private IPv4 address of the task.
	IP string `json:"ip" yaml:"ip"`

	// Zone is the availability zone. Empty when the metadata omits it.
	Zone string `json:"zone,omitempty" yaml:"zone,omitempty"`

	// Cluster is the short cluster name the task runs in, if reported.
	Cluster string `json:"cluster,omitempty" yaml:"cluster,omitempty"`
}

// Validate checks that the fields used for naming are present.
func (id TaskIdentity) Validate() error {
	if id.TaskID == "" {
		return ErrInvalidArgument.WithDetails("task id is empty")
	}
	if id.Family == "" {
		return ErrInvalidArgument.WithDetails("family is empty")
	}
	if ip := net.ParseIP(id.IP); ip == nil || ip.To4() == nil {
		return ErrInvalidArgument.WithDetails(fmt.Sprintf("invalid IPv4 address %q", id.IP))
	}
	return nil
}

// hyphenatedIP returns the IP with dots replaced by hyphens.
func (id TaskIdentity) hyphenatedIP() string {
	return strings.ReplaceAll(id.IP, ".", "-")
}

// NodeName derives the agent node name: {mode}-{family}-{ip}-{task_id},
// with the dots of the IP replaced by hyphens.
func NodeName(mode Mode, id TaskIdentity) string {
	return fmt.Sprintf("%s-%s-%s-%s", mode, id.Family, id.hyphenatedIP(), id.TaskID)
}

// InstanceID derives the service instance id: {family}-{ip}-{task_id}.
// Unlike NodeName it has no mode component, a service instance has a
// single registration whatever role the local agent plays.
func InstanceID(id TaskIdentity) string {
	return fmt.Sprintf("%s-%s-%s", id.Family, id.hyphenatedIP(), id.TaskID)
}

// TaskIDFromARN extracts the task id from a task ARN of the form
// arn:aws:ecs:<region>:<account>:task/<cluster>/<task-id>.
func TaskIDFromARN(arn string) (string, error) {
	parts := strings.Split(arn, "/")
	if len(parts) < 3 || parts[2] == "" {
		return "", fmt.Errorf("task ARN %q has no task id segment", arn)
	}
	return parts[2], nil
}

// ClusterName returns the short name of a cluster given either its name
// or its ARN (arn:aws:ecs:<region>:<account>:cluster/<name>).
func ClusterName(cluster string) string {
	if i := strings.LastIndex(cluster, "/"); i >= 0 && strings.HasPrefix(cluster, "arn:") {
		return cluster[i+1:]
	}
	return cluster
}
