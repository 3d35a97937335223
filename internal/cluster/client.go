package cluster

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dreamware/taskfan/internal/codec"
	"github.com/dreamware/taskfan/internal/task"
)

const (
	// RequestIDHeader carries the correlation id of a call chain.
	RequestIDHeader = "X-Request-Id"

	methodExecute = "execute"
	methodSubmit  = "submit"
)

// RPCPath returns the path a service method is mounted under.
func RPCPath(serviceName, method string) string {
	return "/rpc/" + url.PathEscape(serviceName) + "/" + method
}

// ExecutePath is the path of Worker.Execute for serviceName.
func ExecutePath(serviceName string) string { return RPCPath(serviceName, methodExecute) }

// SubmitPath is the path of Coordinator.Submit for serviceName.
func SubmitPath(serviceName string) string { return RPCPath(serviceName, methodSubmit) }

type requestIDKey struct{}

// WithRequestID returns a context carrying id for outgoing calls.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the correlation id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ClientOptions configure an RPC client.
type ClientOptions struct {
	Codec  codec.Codec
	Logger *zap.Logger
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
	// Timeout bounds a single call. Zero means no timeout: a remote that never
	// answers blocks the caller until its context ends.
	Timeout time.Duration
}

type rpcClient struct {
	codec    codec.Codec
	http     *http.Client
	logger   *zap.Logger
	endpoint Endpoint
}

func newRPCClient(ep Endpoint, opts ClientOptions) *rpcClient {
	c := &rpcClient{
		endpoint: ep,
		codec:    opts.Codec,
		http:     opts.HTTPClient,
		logger:   opts.Logger,
	}
	if c.codec == nil {
		c.codec = codec.JSON
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: opts.Timeout}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// call posts t to method on the endpoint and decodes the returned task.
func (c *rpcClient) call(ctx context.Context, method string, t *task.Task) (*task.Task, error) {
	var body bytes.Buffer
	if err := c.codec.Encode(&body, t.Payload()); err != nil {
		return nil, fmt.Errorf("encode %s: %w", t.Name(), err)
	}

	target := c.endpoint.BaseURL() + RPCPath(c.endpoint.ServiceName, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", c.codec.ContentType())
	req.Header.Set("Accept", c.codec.ContentType())

	reqID := RequestID(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}
	req.Header.Set(RequestIDHeader, reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s %s: %w", c.endpoint, method, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("rpc call finished",
		zap.String("endpoint", c.endpoint.String()),
		zap.String("method", method),
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode >= 300 {
		return nil, c.remoteError(resp)
	}

	var out task.Payload
	if err := c.codec.Decode(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("decode %s response from %s: %w", method, c.endpoint, err)
	}
	return task.FromPayload(out)
}

// remoteError turns a non-2xx response into a *RemoteError. Bodies that are not
// an error envelope in the client's codec (for example the plain-text 404 of an
// unbound service path) are reported by status alone.
func (c *rpcClient) remoteError(resp *http.Response) error {
	rerr := &RemoteError{
		Endpoint:   c.endpoint,
		StatusCode: resp.StatusCode,
		Kind:       KindInternal,
	}

	mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mt == c.codec.ContentType() {
		var env ErrorResponse
		if err := c.codec.Decode(resp.Body, &env); err == nil && env.Kind != "" {
			rerr.Kind = env.Kind
			rerr.Message = env.Error
			return rerr
		}
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	rerr.Message = string(bytes.TrimSpace(raw))
	if resp.StatusCode == http.StatusNotFound {
		rerr.Kind = KindNotBound
		rerr.Message = fmt.Sprintf("service %q is not bound at %s", c.endpoint.ServiceName, c.endpoint.Address())
	}
	return rerr
}

// WorkerClient calls Worker.Execute on a remote endpoint.
type WorkerClient struct {
	*rpcClient
}

// NewWorkerClient returns a Worker backed by the remote endpoint ep.
func NewWorkerClient(ep Endpoint, opts ClientOptions) *WorkerClient {
	return &WorkerClient{rpcClient: newRPCClient(ep, opts)}
}

// Execute sends the sub-task to the remote worker.
func (c *WorkerClient) Execute(ctx context.Context, t *task.Task) (*task.Task, error) {
	return c.call(ctx, methodExecute, t)
}

// Endpoint returns the remote endpoint.
func (c *WorkerClient) Endpoint() Endpoint { return c.endpoint }

// CoordinatorClient calls Coordinator.Submit on a remote endpoint.
type CoordinatorClient struct {
	*rpcClient
}

// NewCoordinatorClient returns a Coordinator backed by the remote endpoint ep.
func NewCoordinatorClient(ep Endpoint, opts ClientOptions) *CoordinatorClient {
	return &CoordinatorClient{rpcClient: newRPCClient(ep, opts)}
}

// Submit sends the task to the remote coordinator.
func (c *CoordinatorClient) Submit(ctx context.Context, t *task.Task) (*task.Task, error) {
	return c.call(ctx, methodSubmit, t)
}

// Endpoint returns the remote endpoint.
func (c *CoordinatorClient) Endpoint() Endpoint { return c.endpoint }
