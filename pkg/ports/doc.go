// Package ports declares the interfaces the runtime depends on but does
// not itself implement: the socket transport, the RPC client, route
// loading, distributed locking and the handler-visible IO client. Concrete
// implementations live under pkg/transport, pkg/rpc, pkg/routes and
// adapters/*, in the same hexagonal style as the teacher's pkg/ports.
package ports
