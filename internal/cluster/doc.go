// Package cluster defines the service contracts of taskfan and the HTTP
// transport that carries them between processes.
//
// # Contracts
//
// The core depends on exactly two call shapes:
//
//	Coordinator.Submit(ctx, *task.Task) (*task.Task, error)
//	Worker.Execute(ctx, *task.Task) (*task.Task, error)
//
// Anything satisfying these interfaces can stand in for a remote service: the
// in-process worker.Service, the HTTP WorkerClient, or a WorkerFunc in tests.
//
// # Addressing
//
// An Endpoint is the (service name, host, port) triple that locates a service.
// A process binds services by name on its mux:
//
//	POST /rpc/{serviceName}/execute   Worker.Execute
//	POST /rpc/{serviceName}/submit    Coordinator.Submit
//
// A call for a name that is not bound gets a 404, which the client reports as
// ErrNotBound.
//
// # Wire format
//
// Bodies are task.Payload values encoded with a codec from the codec package
// (JSON by default, msgpack on request). Failures travel as an ErrorResponse
// envelope whose kind maps to an HTTP status:
//
//	invalid_argument  400
//	not_bound         404
//	topology          409
//	dispatch_failure  502
//	internal          500
//
// The client rebuilds a *RemoteError that unwraps to the matching sentinel, so
// callers use errors.Is the same way for local and remote failures.
//
// # Timeouts
//
// None by default. ClientOptions.Timeout is available for deployments that
// want a bound on a stalled worker; the base behaviour is to wait.
package cluster
