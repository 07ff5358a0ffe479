package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"bety/events"
	"bety/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeEnvelope(t *testing.T, source string, ev events.Event) envelope {
	t.Helper()
	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	return envelope{Source: source, Type: ev.Type(), Payload: payload}
}

func TestDecodeEvent_RoundTripsRelayedTypes(t *testing.T) {
	betID := uuid.New()
	winnerID := uuid.New()

	cases := []events.Event{
		events.BetCreatedEvent{BetID: betID, CreatedBy: uuid.New()},
		events.BetClosedEvent{BetID: betID, WinnerID: &winnerID, Participants: 3},
		events.FavoriteToggledEvent{BetID: betID, UserID: uuid.New(), Favorited: true, Count: 4},
		events.MessageCreatedEvent{Message: &models.Message{
			ID:     uuid.New(),
			ChatID: uuid.New(),
			SentBy: uuid.New(),
			Text:   "hello",
		}},
	}

	for _, original := range cases {
		env := encodeEnvelope(t, "node-a", original)
		decoded, err := decodeEvent(env)
		require.NoError(t, err)
		assert.Equal(t, original, decoded)
	}
}

func TestDecodeEvent_RejectsMessageWithoutBody(t *testing.T) {
	env := envelope{Type: events.EventTypeMessageCreated, Payload: json.RawMessage(`{}`)}
	_, err := decodeEvent(env)
	assert.Error(t, err)
}

func TestDecodeEvent_RejectsUnknownType(t *testing.T) {
	env := envelope{Type: "weather_changed", Payload: json.RawMessage(`{}`)}
	_, err := decodeEvent(env)
	assert.Error(t, err)
}

func TestRemoteOrigin(t *testing.T) {
	assert.False(t, remoteOrigin(context.Background()))

	marked := context.WithValue(context.Background(), originKey{}, true)
	assert.True(t, remoteOrigin(marked))
}
