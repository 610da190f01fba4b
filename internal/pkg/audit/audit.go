package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/cache"
)

const (
	// QueueKey is the Redis list holding undelivered audit events.
	QueueKey = "audit:events"

	popTimeout = 2 * time.Second
)

// Event is one audit record. Old/NewValue carry JSON snapshots of the
// mutated resource before and after the operation.
type Event struct {
	ID           string    `json:"id"`
	TenantID     uint      `json:"tenant_id"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   uint      `json:"resource_id"`
	ActorUserID  uint      `json:"actor_user_id"`
	OldValue     string    `json:"old_value,omitempty"`
	NewValue     string    `json:"new_value,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Sink receives delivered audit events. Implemented by external collectors;
// LogSink is the built-in fallback.
type Sink interface {
	Log(event Event) error
}

// Emitter is the producer side handed to services. Emit never returns an
// error: audit delivery must not be able to fail a business operation.
type Emitter interface {
	Emit(event Event)
}

// Snapshot renders a resource state for the Old/NewValue fields.
func Snapshot(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

// LogSink writes audit events to the application log. Used when no external
// collector is configured.
type LogSink struct{}

func (LogSink) Log(event Event) error {
	log.Infof("[Audit] tenant=%d action=%s resource=%s/%d actor=%d",
		event.TenantID, event.Action, event.ResourceType, event.ResourceID, event.ActorUserID)
	return nil
}

// Outbox decouples audit emission from delivery: Emit pushes events onto a
// Redis list and returns immediately, a background worker pops and hands
// them to the Sink. A sink outage can therefore never roll back or block
// the primary operation.
type Outbox struct {
	client  *redis.Client
	sink    Sink
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewOutbox creates an outbox delivering to the given sink via the shared
// Redis connection.
func NewOutbox(sink Sink) *Outbox {
	return &Outbox{
		client: cache.GetClient(),
		sink:   sink,
		stopCh: make(chan struct{}),
	}
}

// Emit enqueues an event. Failures are logged and the event is handed to
// the sink inline as a best effort; the caller never sees an error.
func (o *Outbox) Emit(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Errorf("[Audit] failed to marshal event %s: %v", event.ID, err)
		return
	}
	if err := o.client.LPush(context.Background(), QueueKey, payload).Err(); err != nil {
		log.Errorf("[Audit] failed to enqueue event %s: %v", event.ID, err)
		if err := o.sink.Log(event); err != nil {
			log.Errorf("[Audit] inline delivery of event %s failed: %v", event.ID, err)
		}
	}
}

// Start launches the delivery worker.
func (o *Outbox) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return
	}
	o.running = true
	o.wg.Add(1)
	go o.worker()
	log.Info("[Audit] outbox worker started")
}

// Stop stops the delivery worker and waits for it to drain.
func (o *Outbox) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running {
		return
	}
	close(o.stopCh)
	o.running = false
	o.wg.Wait()
	log.Info("[Audit] outbox worker stopped")
}

func (o *Outbox) worker() {
	defer o.wg.Done()

	for {
		select {
		case <-o.stopCh:
			return
		default:
		}

		res, err := o.client.BRPop(context.Background(), popTimeout, QueueKey).Result()
		if err != nil {
			if err != redis.Nil {
				log.Errorf("[Audit] queue pop failed: %v", err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(res) < 2 {
			continue
		}

		var event Event
		if err := json.Unmarshal([]byte(res[1]), &event); err != nil {
			log.Errorf("[Audit] dropping unreadable event: %v", err)
			continue
		}
		if err := o.sink.Log(event); err != nil {
			// Delivery failures are logged, never retried into the hot path.
			log.Errorf("[Audit] sink rejected event %s: %v", event.ID, err)
		}
	}
}
