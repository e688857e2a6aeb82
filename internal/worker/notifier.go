package worker

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/cerita/nobat/internal/dispatcher"
	"github.com/cerita/nobat/internal/kafka"
	"github.com/cerita/nobat/internal/metrics"
	"github.com/cerita/nobat/internal/model"
	"github.com/cerita/nobat/internal/repository"
	"github.com/cerita/nobat/internal/util"
)

// Notifier:
// - fetches survey envelopes from Kafka,
// - sends the comment-survey SMS via providers,
// - batches the commentSms status flips and the ClickHouse delivery log.
type Notifier struct {
	// Dependencies
	Consumer      *kafka.Consumer
	Turns         repository.TurnsRepository
	Notifications repository.CHNotificationsRepository
	Dispatch      *dispatcher.Dispatcher

	// Behavior
	Workers    int           // number of goroutines processing envelopes
	BatchSize  int           // max buffered deliveries per flush
	BatchWait  time.Duration // max time to wait before flush
	SurveyText string        // "{name}" is replaced with the reference name
}

// NewNotifier builds a worker with sane defaults.
func NewNotifier(
	consumer *kafka.Consumer,
	turnsRepo repository.TurnsRepository,
	notifsRepo repository.CHNotificationsRepository,
	dispatch *dispatcher.Dispatcher,
	surveyText string,
) *Notifier {
	return &Notifier{
		Consumer:      consumer,
		Turns:         turnsRepo,
		Notifications: notifsRepo,
		Dispatch:      dispatch,
		Workers:       16,
		BatchSize:     100,
		BatchWait:     300 * time.Millisecond,
		SurveyText:    surveyText,
	}
}

type delivery struct {
	turnID   string
	phone    string
	provider string
	sentAt   time.Time
}

// Run starts the worker and blocks until ctx is cancelled.
func (w *Notifier) Run(ctx context.Context) error {
	if w.Workers <= 0 {
		w.Workers = 16
	}
	if w.BatchSize <= 0 {
		w.BatchSize = 100
	}
	if w.BatchWait <= 0 {
		w.BatchWait = 300 * time.Millisecond
	}

	// Channel for worker results → batch writer
	deliveries := make(chan delivery, w.BatchSize*2)
	defer close(deliveries)

	// Start batch writer
	go w.runBatchWriter(ctx, deliveries)

	// Fetch loop → fan-out to processors
	msgCh := make(chan kafka.Message, w.Workers*2)

	// Fetcher goroutine
	go func() {
		defer close(msgCh)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				m, err := w.Consumer.Fetch(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("[notifier] kafka fetch err: %v", err)
					time.Sleep(200 * time.Millisecond)
					continue
				}
				msgCh <- m
			}
		}
	}()

	// Start processors
	for i := 0; i < w.Workers; i++ {
		go w.runProcessor(ctx, msgCh, deliveries)
	}

	// Block until shutdown
	<-ctx.Done()
	return nil
}

func (w *Notifier) runProcessor(ctx context.Context, in <-chan kafka.Message, out chan<- delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			w.processOne(ctx, m, out)
		}
	}
}

func (w *Notifier) surveyTextFor(env model.SurveyEnvelope) string {
	name := strings.TrimSpace(env.RefName)
	if name == "" {
		name = "مراجع"
	}
	return strings.ReplaceAll(w.SurveyText, "{name}", name)
}

func (w *Notifier) processOne(ctx context.Context, m kafka.Message, out chan<- delivery) {
	// Parse envelope: { turn_id, phone, refname, slot }
	var env model.SurveyEnvelope
	if err := json.Unmarshal(m.Value, &env); err != nil || env.TurnID == "" {
		_ = w.Consumer.Commit(ctx, m) // poison → commit, skip
		if err != nil {
			log.Printf("[notifier] bad envelope json: %v", err)
		} else {
			log.Printf("[notifier] envelope missing turn_id")
		}
		return
	}

	provider, err := w.Dispatch.Send(ctx, dispatcher.SurveySMS{
		Phone: env.Phone,
		Text:  w.surveyTextFor(env),
	})
	if err != nil {
		metrics.SurveySMSTotal.WithLabelValues("failed").Inc()
		log.Printf("[notifier] dispatch err turn=%s: %v", env.TurnID, err)
		// Do not commit: the envelope is retried after the group rebalances
		// or the next fetch cycle redelivers it.
		return
	}

	metrics.SurveySMSTotal.WithLabelValues("sent").Inc()
	out <- delivery{turnID: env.TurnID, phone: env.Phone, provider: provider, sentAt: time.Now()}

	if err := w.Consumer.Commit(ctx, m); err != nil {
		log.Printf("[notifier] commit err: %v", err)
	}
}

// runBatchWriter does size/time-based flush: one MySQL statement appends the
// commentSms flag, then the ClickHouse delivery log is appended. Both sides
// tolerate replays (FIND_IN_SET guard, ReplacingMergeTree on message_id).
func (w *Notifier) runBatchWriter(ctx context.Context, in <-chan delivery) {
	tick := time.NewTicker(w.BatchWait)
	defer tick.Stop()

	var pending []delivery

	flush := func() {
		if len(pending) == 0 {
			return
		}

		ids := make([]string, 0, len(pending))
		records := make([]repository.NotificationRecord, 0, len(pending))
		for _, d := range pending {
			ids = append(ids, d.turnID)
			records = append(records, repository.NotificationRecord{
				MessageID: util.New(),
				TurnID:    d.turnID,
				Phone:     d.phone,
				Provider:  d.provider,
				SentAt:    d.sentAt,
			})
		}

		if err := w.Turns.BatchAppendFlag(ctx, nil, ids, model.FlagCommentSMS); err != nil {
			log.Printf("[notifier] flag append err: %v", err)
			return
		}

		if err := w.Notifications.InsertBatch(ctx, records); err != nil {
			// Status already flipped; the delivery log is best effort.
			log.Printf("[notifier] clickhouse insert err: %v", err)
		}

		log.Printf("[notifier] flushed: delivered=%d", len(pending))
		pending = pending[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case d, ok := <-in:
			if !ok {
				flush()
				return
			}
			pending = append(pending, d)

			if len(pending) >= w.BatchSize {
				flush()
			}

		case <-tick.C:
			flush()
		}
	}
}
