package conversation

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/yieldchat/internal/convlog"
	"github.com/ashureev/yieldchat/internal/domain"
)

const recordTimeout = 5 * time.Second

// Turn is one message received from a transport.
type Turn struct {
	UserID    string
	SessionID string
	Channel   string
	Message   string
	RequestID string
}

// Recorder stores completed predictions.
type Recorder interface {
	RecordPrediction(ctx context.Context, rec *domain.PredictionRecord) error
}

// Controller maps transport turns onto the engine. It keeps no state of its own.
type Controller struct {
	engine   *Engine
	recorder Recorder
	log      convlog.ConversationLogger
	logger   *slog.Logger
}

// NewController creates a controller. recorder and convLogger may be nil.
func NewController(engine *Engine, recorder Recorder, convLogger convlog.ConversationLogger, logger *slog.Logger) *Controller {
	if convLogger == nil {
		convLogger = convlog.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{engine: engine, recorder: recorder, log: convLogger, logger: logger}
}

// SessionKey is the store key of the conversation of a user's tab session.
func SessionKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}

// Resume returns the pending question of the user's conversation if one is
// in progress.
func (c *Controller) Resume(ctx context.Context, userID, sessionID string) (Reply, bool) {
	return c.engine.Pending(ctx, SessionKey(userID, sessionID))
}

// Handle runs one turn.
func (c *Controller) Handle(ctx context.Context, turn Turn) Reply {
	c.log.Log(convlog.ConversationLogEvent{
		UserID:     turn.UserID,
		SessionID:  turn.SessionID,
		Channel:    turn.Channel,
		Direction:  "outbound",
		EventType:  "chat_user_message",
		ContentRaw: turn.Message,
		Meta:       map[string]any{"request_id": turn.RequestID},
	})

	reply := c.engine.HandleTurn(ctx, SessionKey(turn.UserID, turn.SessionID), turn.Message)

	if reply.Result != nil && c.recorder != nil {
		c.record(ctx, turn, reply.Result)
	}

	c.log.Log(convlog.ConversationLogEvent{
		UserID:     turn.UserID,
		SessionID:  turn.SessionID,
		Channel:    turn.Channel,
		Direction:  "inbound",
		EventType:  "chat_assistant_message",
		ContentRaw: reply.Text,
		Meta: map[string]any{
			"request_id": turn.RequestID,
			"step":       reply.Step,
			"phase":      reply.Phase,
			"done":       reply.Done,
			"error":      reply.Error,
		},
	})
	return reply
}

// record is best effort; the user already has their answer.
func (c *Controller) record(ctx context.Context, turn Turn, res *Result) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	err := c.recorder.RecordPrediction(ctx, &domain.PredictionRecord{
		UserID:         turn.UserID,
		SessionID:      turn.SessionID,
		CropType:       res.CropType,
		SoilType:       res.SoilType,
		Features:       res.Features,
		PredictedYield: res.PredictedYield,
		Lowest:         res.Lowest,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		c.logger.Warn("Failed to record prediction", "user_id", turn.UserID, "session_id", turn.SessionID, "error", err)
	}
}
