package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_Valid(t *testing.T) {
	assert.True(t, Envelope{Event: "e"}.Valid())
	assert.False(t, Envelope{}.Valid())
	assert.False(t, Envelope{Room: "r", Data: json.RawMessage(`{}`)}.Valid())
}

func TestEnvelope_DecodePreservesArbitraryData(t *testing.T) {
	var e Envelope
	require.NoError(t, json.Unmarshal([]byte(`{"event":"e","data":[1,"two",{"three":3}]}`), &e))

	assert.Equal(t, "e", e.Event)
	assert.Empty(t, e.Room)
	assert.JSONEq(t, `[1,"two",{"three":3}]`, string(e.Data))
}
