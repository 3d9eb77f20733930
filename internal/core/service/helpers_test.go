package service

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/yndnr/meshboot/internal/core/domain"
	"github.com/yndnr/meshboot/internal/telemetry/logger"
)

// fakeRegistry replays a scripted sequence of task listings. Once the
// script is exhausted the last listing repeats.
type fakeRegistry struct {
	mu sync.Mutex

	rounds      [][]string
	ips         map[string]string
	listErr     error
	describeErr error
	reverse     bool // describe answers in reverse order

	listCalls     int
	describeCalls int
	lastMax       int
	described     []string
}

func (f *fakeRegistry) ListRunningTasks(ctx context.Context, cluster, family string, maxResults int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++
	f.lastMax = maxResults
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.rounds) == 0 {
		return nil, nil
	}
	i := f.listCalls - 1
	if i >= len(f.rounds) {
		i = len(f.rounds) - 1
	}
	return append([]string(nil), f.rounds[i]...), nil
}

func (f *fakeRegistry) DescribeTasks(ctx context.Context, cluster string, refs []string) ([]domain.TaskDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.describeCalls++
	f.described = append([]string(nil), refs...)
	if f.describeErr != nil {
		return nil, f.describeErr
	}

	tasks := make([]domain.TaskDescription, 0, len(refs))
	for _, ref := range refs {
		task := domain.TaskDescription{TaskRef: ref}
		if ip, ok := f.ips[ref]; ok {
			task.Containers = []domain.ContainerDescription{{
				Name:                 "consul",
				PrivateIPv4Addresses: []string{ip},
			}}
		}
		tasks = append(tasks, task)
	}
	if f.reverse {
		for i, j := 0, len(tasks)-1; i < j; i, j = i+1, j-1 {
			tasks[i], tasks[j] = tasks[j], tasks[i]
		}
	}
	return tasks, nil
}

func (f *fakeRegistry) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// fakeIdentity returns a fixed identity or error and counts calls.
type fakeIdentity struct {
	id    domain.TaskIdentity
	err   error
	calls int
}

func (f *fakeIdentity) ResolveIdentity(ctx context.Context) (domain.TaskIdentity, error) {
	f.calls++
	return f.id, f.err
}

// memWriter keeps written artifacts in memory.
type memWriter struct {
	files map[string][]byte
	err   error
}

func newMemWriter() *memWriter {
	return &memWriter{files: make(map[string][]byte)}
}

func (w *memWriter) Write(path string, data []byte) error {
	if w.err != nil {
		return domain.ErrIOFailure.WithCause(w.err)
	}
	w.files[path] = append([]byte(nil), data...)
	return nil
}

var errBoom = errors.New("boom")

func testLogger() logger.Logger {
	l, _ := logger.New(logger.Config{Level: "debug", Output: io.Discard})
	return l
}
