package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ashureev/yieldchat/internal/convlog"
	"github.com/ashureev/yieldchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRecorder struct {
	mu      sync.Mutex
	records []*domain.PredictionRecord
	err     error
}

func (m *memRecorder) RecordPrediction(_ context.Context, rec *domain.PredictionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return m.err
}

type memConvLog struct {
	mu     sync.Mutex
	events []convlog.ConversationLogEvent
}

func (m *memConvLog) Log(e convlog.ConversationLogEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *memConvLog) Close() error { return nil }

func TestControllerRecordsCompletedPrediction(t *testing.T) {
	env := newTestEnv(t, cropCodeModel)
	rec := &memRecorder{}
	log := &memConvLog{}
	c := NewController(env.engine, rec, log, nil)

	ctx := context.Background()
	turn := Turn{UserID: "anon_1", SessionID: "tab-1", Channel: "test"}
	turn.Message = "hi"
	c.Handle(ctx, turn)
	var last Reply
	for _, a := range wheatAnswers {
		turn.Message = a
		last = c.Handle(ctx, turn)
	}

	require.True(t, last.Done)
	require.Len(t, rec.records, 1)
	got := rec.records[0]
	assert.Equal(t, "anon_1", got.UserID)
	assert.Equal(t, "tab-1", got.SessionID)
	assert.Equal(t, "Wheat", got.CropType)
	assert.Equal(t, "Loamy", got.SoilType)
	assert.Equal(t, 19.0, got.PredictedYield)
	assert.Len(t, got.Lowest, 3)

	assert.Len(t, log.events, 22)
	assert.Equal(t, "chat_user_message", log.events[0].EventType)
	assert.Equal(t, "chat_assistant_message", log.events[1].EventType)
}

func TestControllerSeparatesTabs(t *testing.T) {
	env := newTestEnv(t, cropCodeModel)
	c := NewController(env.engine, nil, nil, nil)
	ctx := context.Background()

	c.Handle(ctx, Turn{UserID: "anon_1", SessionID: "tab-1", Message: "hi"})
	c.Handle(ctx, Turn{UserID: "anon_1", SessionID: "tab-1", Message: "Wheat"})

	// A second tab starts its own conversation.
	reply := c.Handle(ctx, Turn{UserID: "anon_1", SessionID: "tab-2", Message: "Rice"})
	assert.Equal(t, 0, reply.Step)
	assert.Contains(t, reply.Text, welcomeMessage)

	s := env.session(t, SessionKey("anon_1", "tab-1"))
	require.NotNil(t, s)
	assert.Equal(t, 1, s.Step)
}

func TestControllerRecorderFailureIsNotSurfaced(t *testing.T) {
	env := newTestEnv(t, cropCodeModel)
	c := NewController(env.engine, &memRecorder{err: errors.New("disk full")}, nil, nil)
	ctx := context.Background()

	c.Handle(ctx, Turn{UserID: "u", SessionID: "s", Message: "hi"})
	var last Reply
	for _, a := range wheatAnswers {
		last = c.Handle(ctx, Turn{UserID: "u", SessionID: "s", Message: a})
	}
	assert.True(t, last.Done)
	assert.Empty(t, last.Error)
	assert.NotNil(t, last.Result)
}
