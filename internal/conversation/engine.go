// Package conversation implements the slot-filling conversation: one turn at
// a time, one question per turn, and the prediction report once every slot
// is filled.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ashureev/yieldchat/internal/domain"
	"github.com/ashureev/yieldchat/internal/predictor"
	"github.com/ashureev/yieldchat/internal/ranking"
	"github.com/ashureev/yieldchat/internal/slots"
	"github.com/ashureev/yieldchat/internal/store"
)

// Reply is the answer to one turn.
type Reply struct {
	Text   string       `json:"reply"`
	Step   int          `json:"step"`
	Phase  domain.Phase `json:"phase"`
	Done   bool         `json:"done"`
	Error  string       `json:"error,omitempty"`
	Result *Result      `json:"result,omitempty"`
}

// Reply error codes.
const (
	ErrCodePredictionFailed = "prediction_failed"
	ErrCodeInternal         = "internal_error"
)

// Engine drives conversations stored in a SessionStore. Turns for the same
// session identifier are serialized; different identifiers run in parallel.
type Engine struct {
	schema    *slots.Schema
	sessions  store.SessionStore
	predictor predictor.Predictor
	ranking   *ranking.Computer
	locks     *keyedMutex
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngine creates an engine.
func NewEngine(schema *slots.Schema, sessions store.SessionStore, p predictor.Predictor, rc *ranking.Computer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		schema:    schema,
		sessions:  sessions,
		predictor: p,
		ranking:   rc,
		locks:     newKeyedMutex(),
		logger:    logger,
		now:       time.Now,
	}
}

// HandleTurn processes one incoming message for sessionID and returns the
// text to show. It never fails: every error path has a reply.
func (e *Engine) HandleTurn(ctx context.Context, sessionID, raw string) Reply {
	unlock := e.locks.Lock(sessionID)
	defer unlock()

	if l, ok := e.sessions.(store.SessionLocker); ok {
		release, err := l.Lock(ctx, sessionID)
		if err != nil {
			e.logger.Error("Failed to lock session", "session_id", sessionID, "error", err)
			return internalErrorReply(0, domain.PhaseGreeting)
		}
		defer release()
	}

	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		e.logger.Error("Failed to load session", "session_id", sessionID, "error", err)
		return internalErrorReply(0, domain.PhaseGreeting)
	}
	if sess == nil || sess.Step < 0 || sess.Step > e.schema.Len() {
		sess = domain.NewSession(sessionID, e.now())
	}
	sess.UpdatedAt = e.now()

	if sess.Phase == domain.PhaseGreeting {
		sess.Phase = domain.PhaseCollecting
		if err := e.sessions.Put(ctx, sess); err != nil {
			e.logger.Error("Failed to store session", "session_id", sessionID, "error", err)
			return internalErrorReply(0, domain.PhaseGreeting)
		}
		e.logger.Debug("Conversation started", "session_id", sessionID)
		return Reply{
			Text:  welcomeMessage + "\n" + e.schema.Prompt(0),
			Step:  0,
			Phase: domain.PhaseCollecting,
		}
	}

	if sess.Step < e.schema.Len() {
		field := e.schema.Field(sess.Step)
		value, verr := e.schema.Parse(sess.Step, raw)
		if verr != nil {
			// Keep the session alive and ask the same question again.
			if err := e.sessions.Put(ctx, sess); err != nil {
				e.logger.Warn("Failed to refresh session", "session_id", sessionID, "error", err)
			}
			e.logger.Debug("Rejected answer", "session_id", sessionID, "field", field.Key)
			return Reply{
				Text:  verr.Message + "\n" + e.schema.Prompt(sess.Step),
				Step:  sess.Step,
				Phase: domain.PhaseCollecting,
			}
		}
		sess.Answers[field.Key] = value
		sess.Step++
	}

	if sess.Step == e.schema.Len() {
		return e.complete(ctx, sess)
	}

	if err := e.sessions.Put(ctx, sess); err != nil {
		e.logger.Error("Failed to store session", "session_id", sessionID, "error", err)
		return internalErrorReply(sess.Step-1, domain.PhaseCollecting)
	}
	return Reply{
		Text:  e.schema.Prompt(sess.Step),
		Step:  sess.Step,
		Phase: domain.PhaseCollecting,
	}
}

// complete runs once every slot holds an answer. The session is removed
// unless a category answer fails re-validation, in which case that question
// is asked again.
// Pending returns the question an unfinished session is waiting on, without
// consuming a turn. ok is false when there is no session mid-collection.
func (e *Engine) Pending(ctx context.Context, sessionID string) (reply Reply, ok bool) {
	unlock := e.locks.Lock(sessionID)
	defer unlock()

	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		e.logger.Warn("Failed to load session", "session_id", sessionID, "error", err)
		return Reply{}, false
	}
	if sess == nil || sess.Phase != domain.PhaseCollecting || sess.Step < 0 || sess.Step >= e.schema.Len() {
		return Reply{}, false
	}
	return Reply{
		Text:  e.schema.Prompt(sess.Step),
		Step:  sess.Step,
		Phase: domain.PhaseCollecting,
	}, true
}

func (e *Engine) complete(ctx context.Context, sess *domain.Session) Reply {
	features, verr := e.schema.Features(sess.Answers)
	if verr != nil {
		e.rewind(sess, verr.Index)
		e.logger.Warn("Answer failed re-validation", "session_id", sess.ID, "field", verr.Key)
		if err := e.sessions.Put(ctx, sess); err != nil {
			e.logger.Error("Failed to store session", "session_id", sess.ID, "error", err)
			return internalErrorReply(sess.Step, domain.PhaseCollecting)
		}
		return Reply{
			Text:  verr.Message + "\n" + e.schema.Prompt(sess.Step),
			Step:  sess.Step,
			Phase: domain.PhaseCollecting,
		}
	}

	reply := e.predict(ctx, sess, features)
	if err := e.sessions.Remove(ctx, sess.ID); err != nil {
		e.logger.Warn("Failed to remove completed session", "session_id", sess.ID, "error", err)
	}
	return reply
}

// rewind drops the answer at index and every later one so the session is
// consistent with Step == index.
func (e *Engine) rewind(sess *domain.Session, index int) {
	for i := index; i < e.schema.Len(); i++ {
		delete(sess.Answers, e.schema.Field(i).Key)
	}
	sess.Step = index
}

func (e *Engine) predict(ctx context.Context, sess *domain.Session, features predictor.Features) (reply Reply) {
	failed := Reply{
		Text:  predictionErrorMessage,
		Step:  sess.Step,
		Phase: domain.PhaseDone,
		Done:  true,
		Error: ErrCodePredictionFailed,
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Prediction panicked", "session_id", sess.ID, "panic", fmt.Sprint(r))
			reply = failed
		}
	}()

	primary, err := e.predictor.Predict(ctx, features)
	if err != nil {
		e.logger.Warn("Prediction failed", "session_id", sess.ID, "error", err)
		return failed
	}

	lowest := e.ranking.Lowest(ctx, features, ranking.DefaultSize)
	for i := range lowest {
		lowest[i].Yield = round2(lowest[i].Yield)
	}

	crop, _ := sess.Category(slots.KeyCropType)
	soil, _ := sess.Category(slots.KeySoilType)
	res := &Result{
		CropType:       crop,
		SoilType:       soil,
		Features:       features[:],
		PredictedYield: round2(primary),
		Lowest:         lowest,
		Unit:           YieldUnit,
	}
	e.logger.Info("Prediction completed",
		"session_id", sess.ID,
		"crop", crop,
		"soil", soil,
		"predicted_yield", res.PredictedYield,
		"ranked", len(lowest),
	)
	return Reply{
		Text:   formatResult(res),
		Step:   sess.Step,
		Phase:  domain.PhaseDone,
		Done:   true,
		Result: res,
	}
}

func internalErrorReply(step int, phase domain.Phase) Reply {
	if step < 0 {
		step = 0
	}
	return Reply{Text: internalErrorMessage, Step: step, Phase: phase, Error: ErrCodeInternal}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
