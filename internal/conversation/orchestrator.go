// Package conversation drives one chat session end to end: quota checks,
// backend dispatch, canned fallbacks and the pending exchange used by
// elaboration requests.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"brainoutai/internal/models"
	"brainoutai/internal/session"
)

var (
	// ErrEmptyInput is returned when a turn carries no text and no files.
	ErrEmptyInput = errors.New("message or files required")
	// ErrTurnInFlight is returned when a turn is started while another one
	// is still being resolved.
	ErrTurnInFlight = errors.New("a turn is already in flight")
)

// Outcome classifies how a turn resolved.
type Outcome string

const (
	// OutcomeFulfilled means the backend answered.
	OutcomeFulfilled Outcome = "fulfilled"
	// OutcomeRateLimited means the quota was exhausted and a canned
	// fallback was served instead of calling the backend.
	OutcomeRateLimited Outcome = "rate_limited"
	// OutcomeFailed means the backend call failed and the fixed apology
	// was shown. Failed turns consume no quota and are not persisted.
	OutcomeFailed Outcome = "failed"
)

// TurnResult reports both messages produced by one turn.
type TurnResult struct {
	User    *models.Message
	Reply   *models.Message
	Outcome Outcome
}

// Orchestrator owns the visible transcript and the persisted session for one
// profile. The transcript holds everything shown this run, including apology
// and elaboration messages; the session history only records counted turns.
// All methods are safe for concurrent use, but only one turn runs at a time.
type Orchestrator struct {
	backend Backend
	limiter *session.Limiter

	mu         sync.Mutex
	inFlight   bool
	sess       *models.Session
	pending    *models.PendingExchange
	transcript []*models.Message

	now  func() time.Time
	pick func(n int) int
}

func New(backend Backend, limiter *session.Limiter) *Orchestrator {
	return &Orchestrator{
		backend: backend,
		limiter: limiter,
		now:     time.Now,
	}
}

// Send runs one turn: validate, check quota, dispatch or fall back, record.
// It returns ErrTurnInFlight while another turn or elaboration is unresolved
// and ErrEmptyInput for a blank turn; both leave all state untouched.
func (o *Orchestrator) Send(ctx context.Context, text string, attachments []models.FileRef) (*TurnResult, error) {
	if err := o.beginTurn(); err != nil {
		return nil, err
	}
	defer o.endTurn()

	if text == "" && len(attachments) == 0 {
		return nil, ErrEmptyInput
	}

	// Re-read persisted state at the start of every turn so another
	// process's writes are picked up before mutating.
	sess, err := o.limiter.LoadOrCreate(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	userText := text
	if userText == "" {
		userText = fmt.Sprintf("Uploaded %d file(s)", len(attachments))
	}
	userMsg := models.NewMessage(userText, true, o.now())
	userMsg.Attachments = attachments

	if !session.CanProceed(sess) {
		return o.serveFallback(ctx, sess, userMsg)
	}

	o.appendTranscript(userMsg)

	resp, err := o.dispatch(ctx, text, attachments)
	if err != nil {
		// Quota and history are untouched; only the visible transcript
		// gets the apology.
		log.Printf("completion request failed: %v", err)
		apology := models.NewMessage(apologyText, false, o.now())
		o.appendTranscript(apology)
		return &TurnResult{User: userMsg, Reply: apology, Outcome: OutcomeFailed}, nil
	}

	reply := &models.Message{
		ID:        models.NewMessageID(o.now()),
		Text:      resp.Response,
		IsUser:    false,
		Timestamp: resp.Timestamp,
	}
	o.appendTranscript(reply)

	next, err := o.limiter.RecordAttempt(ctx, sess, userMsg, reply)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.sess = next
	o.pending = &models.PendingExchange{Question: text, Answer: resp.Response}
	o.mu.Unlock()

	return &TurnResult{User: userMsg, Reply: reply, Outcome: OutcomeFulfilled}, nil
}

func (o *Orchestrator) serveFallback(ctx context.Context, sess *models.Session, userMsg *models.Message) (*TurnResult, error) {
	reply := models.NewMessage(fallbackFor(userMsg.Text, o.pick), false, o.now())
	reply.IsFallback = true

	// Fallback turns still consume quota and land in the history.
	next, err := o.limiter.RecordAttempt(ctx, sess, userMsg, reply)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.sess = next
	o.transcript = append(o.transcript, userMsg, reply)
	o.mu.Unlock()

	return &TurnResult{User: userMsg, Reply: reply, Outcome: OutcomeRateLimited}, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, text string, attachments []models.FileRef) (*ChatResponse, error) {
	if len(attachments) > 0 {
		return o.backend.ChatWithFiles(ctx, text, attachments)
	}
	return o.backend.Chat(ctx, text)
}

// Elaborate asks the backend to rework the last fulfilled exchange into a
// more convoluted answer. It is a no-op when nothing is pending. Elaboration
// consumes no quota, is not persisted, and on failure leaves the transcript
// and pending exchange exactly as they were.
func (o *Orchestrator) Elaborate(ctx context.Context) (*models.Message, error) {
	if err := o.beginTurn(); err != nil {
		return nil, err
	}
	defer o.endTurn()

	o.mu.Lock()
	pending := o.pending
	o.mu.Unlock()
	if pending == nil {
		return nil, nil
	}

	resp, err := o.backend.MakeHarder(ctx, pending.Question, pending.Answer)
	if err != nil {
		log.Printf("elaboration request failed: %v", err)
		return nil, err
	}

	msg := &models.Message{
		ID:        models.NewMessageID(o.now()),
		Text:      resp.Response,
		IsUser:    false,
		Timestamp: resp.Timestamp,
	}

	o.mu.Lock()
	o.transcript = append(o.transcript, msg)
	// The question is kept so repeated elaborations keep escalating the
	// same exchange.
	o.pending = &models.PendingExchange{Question: pending.Question, Answer: resp.Response}
	o.mu.Unlock()

	return msg, nil
}

// Clear wipes the visible transcript, the persisted history and the pending
// exchange. Quota counters survive so clearing is not a way around the limit.
func (o *Orchestrator) Clear(ctx context.Context) error {
	if err := o.beginTurn(); err != nil {
		return err
	}
	defer o.endTurn()

	sess, err := o.limiter.LoadOrCreate(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	next, err := o.limiter.Clear(ctx, sess)
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.sess = next
	o.pending = nil
	o.transcript = nil
	o.mu.Unlock()
	return nil
}

// Transcript returns a copy of the messages shown this run.
func (o *Orchestrator) Transcript() []*models.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*models.Message, len(o.transcript))
	copy(out, o.transcript)
	return out
}

// Pending returns a copy of the exchange an elaboration would build on, or
// nil when there is none.
func (o *Orchestrator) Pending() *models.PendingExchange {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending == nil {
		return nil
	}
	p := *o.pending
	return &p
}

// Quota reports queries used in the current window and the window limit,
// from the last session state this orchestrator observed.
func (o *Orchestrator) Quota() (used, limit int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess == nil {
		return 0, session.RateLimit
	}
	return o.sess.QueryCount, session.RateLimit
}

func (o *Orchestrator) beginTurn() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight {
		return ErrTurnInFlight
	}
	o.inFlight = true
	return nil
}

func (o *Orchestrator) endTurn() {
	o.mu.Lock()
	o.inFlight = false
	o.mu.Unlock()
}

func (o *Orchestrator) appendTranscript(msg *models.Message) {
	o.mu.Lock()
	o.transcript = append(o.transcript, msg)
	o.mu.Unlock()
}
