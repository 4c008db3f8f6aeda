package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	var got []Type
	ok := PublisherFunc(func(_ context.Context, c Change) error {
		got = append(got, c.Type)
		return nil
	})
	failing := PublisherFunc(func(context.Context, Change) error {
		return errors.New("broker down")
	})

	pub := Multi(ok, nil, failing, ok)
	err := pub.Publish(context.Background(), Change{Type: EventCreated})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Equal(t, []Type{EventCreated, EventCreated}, got)
}

func TestMulti_Empty(t *testing.T) {
	assert.NoError(t, Multi().Publish(context.Background(), Change{Type: EventDeleted}))
	assert.NoError(t, Nop.Publish(context.Background(), Change{Type: EventDeleted}))
}

func TestIsCatalogChange(t *testing.T) {
	assert.True(t, Change{Type: EventUpdated}.IsCatalogChange())
	assert.False(t, Change{Type: SubscriptionCreated}.IsCatalogChange())
}

func TestToMessage(t *testing.T) {
	eventID := uuid.New()
	userID := uuid.New()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	msg, err := toMessage(Change{Type: SubscriptionCreated, EventID: eventID, UserID: userID, OccurredAt: at})
	require.NoError(t, err)

	assert.Equal(t, eventID.String(), string(msg.Key))
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "subscription.created", string(msg.Headers[0].Value))

	var decoded Change
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, SubscriptionCreated, decoded.Type)
	assert.Equal(t, userID, decoded.UserID)
	assert.True(t, at.Equal(decoded.OccurredAt))
}
