package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dreamware/taskfan/internal/task"
)

// Coordinator accepts whole tasks and returns them merged with results.
type Coordinator interface {
	Submit(ctx context.Context, t *task.Task) (*task.Task, error)
}

// Worker executes every request of one sub-task.
type Worker interface {
	Execute(ctx context.Context, t *task.Task) (*task.Task, error)
}

// CoordinatorFunc adapts a function to the Coordinator interface.
type CoordinatorFunc func(ctx context.Context, t *task.Task) (*task.Task, error)

func (f CoordinatorFunc) Submit(ctx context.Context, t *task.Task) (*task.Task, error) {
	return f(ctx, t)
}

// WorkerFunc adapts a function to the Worker interface.
type WorkerFunc func(ctx context.Context, t *task.Task) (*task.Task, error)

func (f WorkerFunc) Execute(ctx context.Context, t *task.Task) (*task.Task, error) {
	return f(ctx, t)
}

// Endpoint names a callable service: the service name it is bound under and
// the host and port of the process serving it. Endpoints are plain values and
// compare with ==.
type Endpoint struct {
	ServiceName string `json:"service_name" yaml:"service_name"`
	Host        string `json:"host" yaml:"host"`
	Port        int    `json:"port" yaml:"port"`
}

// Validate checks that every field is usable for addressing.
func (e Endpoint) Validate() error {
	if e.ServiceName == "" {
		return fmt.Errorf("endpoint %s: missing service name", e.Address())
	}
	if e.Host == "" {
		return fmt.Errorf("endpoint %q: missing host", e.ServiceName)
	}
	if e.Port <= 0 || e.Port > 65535 {
		return fmt.Errorf("endpoint %q: port %d out of range", e.ServiceName, e.Port)
	}
	return nil
}

// Address returns host:port.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// BaseURL returns the HTTP base URL of the process serving the endpoint.
func (e Endpoint) BaseURL() string {
	return "http://" + e.Address()
}

func (e Endpoint) String() string {
	return e.ServiceName + "@" + e.Address()
}

// MemberStatus is the health view of one roster member as reported by the
// coordinator's /roster endpoint.
type MemberStatus struct {
	LastCheck        time.Time `json:"last_check"`
	LastHealthy      time.Time `json:"last_healthy"`
	Endpoint         Endpoint  `json:"endpoint"`
	Status           string    `json:"status"`
	Index            int       `json:"index"`
	ConsecutiveFails int       `json:"consecutive_fails"`
}

// RosterResponse is the body of GET /roster.
type RosterResponse struct {
	Coordinator Endpoint       `json:"coordinator"`
	Workers     []MemberStatus `json:"workers"`
}

var statusClient = &http.Client{Timeout: 5 * time.Second}

// GetJSON fetches url and decodes the JSON body into out.
func GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := statusClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
