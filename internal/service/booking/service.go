package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cerita/nobat/internal/metrics"
	"github.com/cerita/nobat/internal/model"
	"github.com/cerita/nobat/internal/repository"
	"github.com/cerita/nobat/internal/util"
)

const CommentSMSTopic = "nobat.comment-sms"

var (
	ErrSlotTaken    = errors.New("slot already taken")
	ErrTurnNotFound = errors.New("turn not found")
	ErrBadDirection = errors.New("invalid direction")
	ErrBadCursor    = errors.New("invalid day cursor")
)

// TurnInput carries the mutable fields of a turn. Phone is normalized here
// even when the caller already did, so the invariant holds server-side.
type TurnInput struct {
	RefName     string
	RefPhone    string
	User        string
	Description string
	Slot        model.Slot
}

// Service owns turn lifecycle: day listing with cursor navigation, slot
// booking with conflict detection, and the comment-SMS outbox handoff.
type Service struct {
	db     *sqlx.DB
	turns  repository.TurnsRepository
	outbox repository.OutboxRepository
}

func New(db *sqlx.DB, turnsRepo repository.TurnsRepository, outboxRepo repository.OutboxRepository) *Service {
	return &Service{
		db:     db,
		turns:  turnsRepo,
		outbox: outboxRepo,
	}
}

// ResolveCursor turns (cursor, direction) into the day to display. An empty
// cursor means today; next/prev step one day off the given cursor.
func ResolveCursor(cursor, direction string) (string, error) {
	if cursor == "" {
		cursor = model.TodayCursor()
	}
	switch direction {
	case "":
		if _, err := model.ParseCursor(cursor); err != nil {
			return "", fmt.Errorf("%w: %v", ErrBadCursor, err)
		}
		return cursor, nil
	case "next", "prev":
		days := 1
		if direction == "prev" {
			days = -1
		}
		shifted, err := model.ShiftCursor(cursor, days)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrBadCursor, err)
		}
		return shifted, nil
	default:
		return "", ErrBadDirection
	}
}

// List returns the day context and every turn of the resolved day.
func (s *Service) List(ctx context.Context, cursor, direction string) (model.DayContext, []model.Turn, error) {
	day, err := ResolveCursor(cursor, direction)
	if err != nil {
		return model.DayContext{}, nil, err
	}
	dayCtx, err := model.ContextFor(day)
	if err != nil {
		return model.DayContext{}, nil, err
	}
	turns, err := s.turns.ListByDate(ctx, day)
	if err != nil {
		return model.DayContext{}, nil, fmt.Errorf("list turns: %w", err)
	}
	return dayCtx, turns, nil
}

// Create books a slot. The uniqueness check and the insert share one
// transaction; the unique index on (slot_date, slot_time) backs it up.
func (s *Service) Create(ctx context.Context, in TurnInput) (model.Turn, error) {
	turn := model.Turn{
		ID:          util.New(),
		RefName:     in.RefName,
		RefPhone:    util.NormalizePhone(in.RefPhone),
		User:        in.User,
		Description: in.Description,
		Slot:        in.Slot,
		Status:      model.StatusFlags{model.FlagBooked},
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Turn{}, err
	}
	defer func() { _ = tx.Rollback() }()

	taken, err := s.turns.SlotTaken(ctx, tx, turn.Slot, turn.ID)
	if err != nil {
		return model.Turn{}, fmt.Errorf("slot check: %w", err)
	}
	if taken {
		return model.Turn{}, ErrSlotTaken
	}

	if err := s.turns.Insert(ctx, tx, turn); err != nil {
		return model.Turn{}, fmt.Errorf("insert turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Turn{}, err
	}

	metrics.TurnsTotal.WithLabelValues("created").Inc()

	created, err := s.turns.GetByID(ctx, turn.ID)
	if err != nil || created == nil {
		// Insert committed; fall back to what we wrote.
		return turn, nil
	}
	return *created, nil
}

// Update is a full replace of the mutable fields.
func (s *Service) Update(ctx context.Context, id string, in TurnInput) (model.Turn, error) {
	existing, err := s.turns.GetByID(ctx, id)
	if err != nil {
		return model.Turn{}, fmt.Errorf("load turn: %w", err)
	}
	if existing == nil {
		return model.Turn{}, ErrTurnNotFound
	}

	turn := *existing
	turn.RefName = in.RefName
	turn.RefPhone = util.NormalizePhone(in.RefPhone)
	turn.User = in.User
	turn.Description = in.Description
	turn.Slot = in.Slot

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Turn{}, err
	}
	defer func() { _ = tx.Rollback() }()

	taken, err := s.turns.SlotTaken(ctx, tx, turn.Slot, turn.ID)
	if err != nil {
		return model.Turn{}, fmt.Errorf("slot check: %w", err)
	}
	if taken {
		return model.Turn{}, ErrSlotTaken
	}

	if err := s.turns.Update(ctx, tx, turn); err != nil {
		return model.Turn{}, fmt.Errorf("update turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Turn{}, err
	}

	metrics.TurnsTotal.WithLabelValues("updated").Inc()
	return turn, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.turns.Delete(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("delete turn: %w", err)
	}
	if !deleted {
		return ErrTurnNotFound
	}
	metrics.TurnsTotal.WithLabelValues("deleted").Inc()
	return nil
}

// commentSMSEvent packs a turn's survey envelope into the outbox event the
// Debezium relay publishes on the notifier topic.
func commentSMSEvent(t model.Turn) (model.OutboxEvent, error) {
	env := model.SurveyEnvelope{
		TurnID:  t.ID,
		Phone:   t.RefPhone,
		RefName: t.RefName,
		Slot:    t.Slot.String(),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return model.OutboxEvent{}, fmt.Errorf("marshal envelope: %w", err)
	}
	return model.OutboxEvent{
		Aggregate:   "turn",
		AggregateID: t.ID,
		Topic:       CommentSMSTopic,
		Payload:     payload,
	}, nil
}

// RequestCommentSMS enqueues the survey SMS through the transactional
// outbox. The commentSms status flag flips only after the notifier worker
// delivers; callers observe it by re-listing.
func (s *Service) RequestCommentSMS(ctx context.Context, id string) error {
	turn, err := s.turns.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load turn: %w", err)
	}
	if turn == nil {
		return ErrTurnNotFound
	}

	ev, err := commentSMSEvent(*turn)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.outbox.Insert(ctx, tx, ev); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	metrics.SurveySMSTotal.WithLabelValues("queued").Inc()
	return nil
}
