package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDispatchOrder(t *testing.T) {
	var reg Registry
	var calls []string

	reg.On("bot_response", func(data []byte) { calls = append(calls, "first:"+string(data)) })
	reg.On("bot_response", func(data []byte) { calls = append(calls, "second:"+string(data)) })
	reg.On("other", func([]byte) { calls = append(calls, "other") })

	n := reg.Dispatch("bot_response", []byte("x"))

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"first:x", "second:x"}, calls)
}

func TestRegistryUnsubscribe(t *testing.T) {
	var reg Registry
	hits := 0

	sub := reg.On("bot_response", func([]byte) { hits++ })
	require.Equal(t, 1, reg.Count("bot_response"))

	sub.Unsubscribe()
	sub.Unsubscribe()

	assert.Equal(t, 0, reg.Count("bot_response"))
	assert.Equal(t, 0, reg.Dispatch("bot_response", nil))
	assert.Equal(t, 0, hits)
}

func TestRegistryUnsubscribeKeepsOthers(t *testing.T) {
	var reg Registry
	var calls []int

	first := reg.On("e", func([]byte) { calls = append(calls, 1) })
	reg.On("e", func([]byte) { calls = append(calls, 2) })

	first.Unsubscribe()
	reg.Dispatch("e", nil)

	assert.Equal(t, []int{2}, calls)
}

func TestNilSubscriptionUnsubscribe(t *testing.T) {
	var sub *Subscription
	assert.NotPanics(t, sub.Unsubscribe)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	frame, err := Encode("ask_question", map[string]string{"question": "What is X?"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"ask_question","data":{"question":"What is X?"}}`, string(frame))

	env, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, "ask_question", env.Event)
	assert.JSONEq(t, `{"question":"What is X?"}`, string(env.Data))
}

func TestDecodeRejectsBadFrames(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"data":{"answer":"x"}}`))
	assert.Error(t, err)
}
