package rpcreq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestIDDedup(t *testing.T) {
	var state State
	a := state.Add(&Request{Kind: BeaconAPI, URL: "/eth/v1/beacon/headers/head"})
	b := state.Add(&Request{Kind: BeaconAPI, URL: "/eth/v1/beacon/headers/head"})
	require.Equal(t, a, b)
	require.Equal(t, 1, len(state.Requests()))

	c := state.Add(&Request{Kind: BeaconAPI, URL: "/eth/v1/beacon/headers/finalized"})
	require.NotEqual(t, a, c)
	require.Equal(t, 2, len(state.Requests()))
}

func TestRequestIDPostUsesPayload(t *testing.T) {
	a := &Request{Method: POST, URL: "/", Payload: []byte(`{"method":"eth_getProof"}`)}
	b := &Request{Method: POST, URL: "/", Payload: []byte(`{"method":"eth_getBalance"}`)}
	require.NotEqual(t, a.ID(), b.ID())
}

func TestRetryExcludesRespondingNode(t *testing.T) {
	var state State
	r := state.Add(&Request{URL: "/x"})
	r.Response = []byte("bad")
	r.ResponseNodeIndex = 3

	r.Retry()
	require.Equal(t, uint16(1<<3), r.NodeExcludeMask)
	require.Equal(t, 0, len(r.Response))
	require.Equal(t, 1, len(state.Pending()))
}

func TestStateErrorCoalescing(t *testing.T) {
	var state State
	require.Equal(t, false, state.HasError())
	state.AddError("first")
	state.AddError("second")
	require.Equal(t, "first\nsecond", state.Error())
}
