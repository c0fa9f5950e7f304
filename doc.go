/*
Package hostsdk lets a backend process expose named actions and pages to a
remote orchestrator over a persistent, reconnecting WebSocket connection.

# Concept

An embedding program builds a Host, registers actions (single-invocation
handlers) and pages (long-lived rendering sessions with child actions),
then calls Serve. The Host declares its route table to the orchestrator,
dispatches inbound START_TRANSACTION/OPEN_PAGE calls to the registered
handlers, and keeps the declaration current across reconnects, all
without the embedding program managing sockets, resend, or reconnection
itself.

# Usage

	package main

	import (
		"context"
		"log"

		hostsdk "github.com/chronicals/sdk"
		"github.com/chronicals/sdk/internal/config"
		"github.com/chronicals/sdk/pkg/domain"
	)

	func main() {
		cfg, err := config.Load("hostsdk.yaml")
		if err != nil {
			log.Fatal(err)
		}

		host, err := hostsdk.New(cfg)
		if err != nil {
			log.Fatal(err)
		}

		err = host.RegisterAction("helloCurrentUser", domain.Route{
			Slug:        "helloCurrentUser",
			Description: "Greets the calling user",
			Access:      domain.AccessPolicy{Type: "everyone"},
		}, func(io, ctx any) (any, error) {
			return map[string]any{"message": "hello"}, nil
		})
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		if err := host.ListenAndAwaitShutdown(ctx, 0); err != nil {
			log.Fatal(err)
		}
	}

For serverless deployments that cannot hold a persistent connection, use
Host.SingleShotAdapter with adapters/http instead of Serve.
*/
package hostsdk
