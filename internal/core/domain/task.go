package domain

// TaskDescription is the part of an orchestrator task description the
// peer discoverer needs.
type TaskDescription struct {
	// TaskRef is the task reference (ARN) as returned by the task listing.
	TaskRef string

	// Containers lists the task's containers in registry order.
	Containers []ContainerDescription
}

// ContainerDescription describes one container of a task.
type ContainerDescription struct {
	Name string

	// PrivateIPv4Addresses holds the private address of each network
	// interface attached to the container, in interface order.
	PrivateIPv4Addresses []string
}

// PrivateIPv4 returns the first container's first interface address.
func (t TaskDescription) PrivateIPv4() (string, bool) {
	if len(t.Containers) == 0 {
		return "", false
	}
	addrs := t.Containers[0].PrivateIPv4Addresses
	if len(addrs) == 0 || addrs[0] == "" {
		return "", false
	}
	return addrs[0], true
}
