package rpc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hostsdk "github.com/chronicals/sdk/pkg/hosterr"
	"github.com/chronicals/sdk/pkg/ports"
)

func TestClientSendRoundTrip(t *testing.T) {
	sockA, sockB := newPipe()
	host := NewClient(time.Second, NewSchemaSet())
	orch := NewClient(time.Second, NewSchemaSet())
	host.SetSocket(sockA)
	orch.SetSocket(sockB)

	orch.RegisterHandler(MethodSendIOCall, func(ctx context.Context, input []byte) (any, error) {
		var req map[string]any
		require.NoError(t, json.Unmarshal(input, &req))
		return map[string]string{"value": "echo:" + req["instruction"].(string)}, nil
	})

	resp, err := host.Send(context.Background(), MethodSendIOCall, map[string]string{"instruction": "hi"}, ports.SendOptions{})
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, json.Unmarshal(resp, &out))
	assert.Equal(t, "echo:hi", out["value"])
}

func TestClientMethodUnknown(t *testing.T) {
	sockA, sockB := newPipe()
	host := NewClient(time.Second, NewSchemaSet())
	orch := NewClient(time.Second, NewSchemaSet())
	host.SetSocket(sockA)
	orch.SetSocket(sockB)

	_, err := host.Send(context.Background(), "NOT_A_METHOD", nil, ports.SendOptions{})
	require.Error(t, err)
	assert.True(t, hostsdk.IsKind(err, hostsdk.ErrMethodUnknown))
}

func TestClientSchemaInvalid(t *testing.T) {
	sockA, sockB := newPipe()
	host := NewClient(time.Second, NewSchemaSet())

	schemas := NewSchemaSet()
	require.NoError(t, schemas.Register(MethodStartTransaction+".input", startTransactionInputSchema))
	orch := NewClient(time.Second, schemas)

	host.SetSocket(sockA)
	orch.SetSocket(sockB)
	orch.RegisterHandler(MethodStartTransaction, func(ctx context.Context, input []byte) (any, error) {
		t.Fatal("handler should not run when schema validation fails")
		return nil, nil
	})

	_, err := host.Send(context.Background(), MethodStartTransaction, map[string]string{"slug": "no-id"}, ports.SendOptions{})
	require.Error(t, err)
	assert.True(t, hostsdk.IsKind(err, hostsdk.ErrSchemaInvalid))
}

func TestClientTimeoutWhenNoHandler(t *testing.T) {
	sockA, _ := newPipe()
	host := NewClient(20*time.Millisecond, NewSchemaSet())
	host.SetSocket(sockA)
	// sockA's peer never registers OnMessage, so no response ever arrives.
	sockA.peer = nil

	_, err := host.Send(context.Background(), MethodSendLog, map[string]string{}, ports.SendOptions{})
	require.Error(t, err)
	assert.True(t, hostsdk.IsKind(err, hostsdk.ErrTimeout))
}
