// Package orchestrator decides, per acquired token, whether to submit
// attendance immediately or queue it, and replays the offline queue when
// connectivity returns. At most one submission (live or drain) is in flight
// at any time.
package orchestrator

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/akipresenca/aki_device_agent/internal/bff"
	"github.com/akipresenca/aki_device_agent/internal/connectivity"
	"github.com/akipresenca/aki_device_agent/internal/cpf"
	"github.com/akipresenca/aki_device_agent/internal/geo"
	"github.com/akipresenca/aki_device_agent/internal/identity"
	"github.com/akipresenca/aki_device_agent/internal/models"
	"github.com/akipresenca/aki_device_agent/internal/queue"
)

// Submitter performs a single attendance submission; bff.Client is the real
// implementation.
type Submitter interface {
	Submit(ctx context.Context, p models.AttendancePayload) bff.Result
}

type OutcomeKind string

const (
	Confirmed        OutcomeKind = "confirmed"
	Queued           OutcomeKind = "queued"
	Failed           OutcomeKind = "failed"
	MustRegister     OutcomeKind = "must_register"
	CPFRequired      OutcomeKind = "cpf_required"
	LocationRejected OutcomeKind = "location_rejected"
	AlreadySubmitted OutcomeKind = "already_submitted"
	Ignored          OutcomeKind = "ignored"
)

type Outcome struct {
	Kind    OutcomeKind `json:"kind"`
	Message string      `json:"message,omitempty"`
}

// DrainReport summarizes one queue replay.
type DrainReport struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Dropped   int `json:"dropped"`
	Remaining int `json:"remaining"`
}

// Config carries the orchestrator's collaborators. DB backs the submitted
// token history and may be nil.
type Config struct {
	Submitter    Submitter
	Identity     *identity.Store
	Queue        *queue.Queue
	Resolver     *geo.Resolver
	State        *connectivity.State
	DB           *gorm.DB
	Cooldown     time.Duration
	HistoryLimit int
	Notify       func(Outcome) // optional; must not block
}

type Orchestrator struct {
	submitter Submitter
	identity  *identity.Store
	queue     *queue.Queue
	resolver  *geo.Resolver
	state     *connectivity.State
	history   *tokenHistory
	cooldown  time.Duration
	notify    func(Outcome)

	// mu serializes submission attempts; drainMu serializes whole drains so
	// two triggers cannot replay the same snapshot.
	mu      sync.Mutex
	drainMu sync.Mutex

	lastToken string
	lastAt    time.Time

	// outMu guards lastOutcome separately from mu: queue-depth updates fire
	// state listeners synchronously from inside the submission path, and
	// those listeners read LastOutcome.
	outMu       sync.Mutex
	lastOutcome Outcome
}

func New(cfg Config) *Orchestrator {
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = 5 * time.Second
	}
	return &Orchestrator{
		submitter: cfg.Submitter,
		identity:  cfg.Identity,
		queue:     cfg.Queue,
		resolver:  cfg.Resolver,
		state:     cfg.State,
		history:   newTokenHistory(cfg.DB, cfg.HistoryLimit),
		cooldown:  cooldown,
		notify:    cfg.Notify,
	}
}

// HandleToken runs the submit-or-queue flow for a newly acquired token.
func (o *Orchestrator) HandleToken(ctx context.Context, token string) Outcome {
	return o.handle(ctx, token, "")
}

// HandleTokenWithCPF is the user-driven retry after a cpf_required outcome:
// the CPF travels inline with the submission so the BFF can link the device.
func (o *Orchestrator) HandleTokenWithCPF(ctx context.Context, token, studentCPF string) Outcome {
	if !cpf.IsValid(studentCPF) {
		return o.report(Outcome{Kind: Failed, Message: "invalid cpf"})
	}
	return o.handle(ctx, token, cpf.Clean(studentCPF))
}

func (o *Orchestrator) handle(ctx context.Context, token, inlineCPF string) Outcome {
	token = strings.TrimSpace(token)
	if token == "" {
		return o.report(Outcome{Kind: Failed, Message: "qr token is required"})
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	// Same token re-detected within the cool-down window: no transition.
	if token == o.lastToken && time.Since(o.lastAt) < o.cooldown {
		return Outcome{Kind: Ignored, Message: "duplicate scan suppressed"}
	}
	if o.history.Seen(token) {
		return o.report(Outcome{Kind: AlreadySubmitted, Message: "attendance already registered for this session"})
	}
	// A token already waiting in the queue would be replayed by the next
	// drain; a second entry for it would double-submit.
	if o.queue.HasToken(token) {
		return o.report(Outcome{Kind: Queued, Message: "already saved offline, waiting to sync"})
	}

	deviceID := o.identity.GetOrCreate()
	if !o.identity.IsRegistered() && inlineCPF == "" {
		return o.report(Outcome{Kind: MustRegister, Message: "device not registered"})
	}

	loc := o.resolver.Resolve(ctx)

	payload := models.AttendancePayload{
		DeviceID:   deviceID,
		QrToken:    token,
		Location:   loc,
		DeviceTime: time.Now().UTC(),
		StudentCPF: inlineCPF,
	}

	if !o.state.Online() {
		o.enqueue(payload)
		o.touch(token)
		return o.report(Outcome{Kind: Queued, Message: "saved offline, will sync when connection is restored"})
	}

	res := o.submitter.Submit(ctx, payload)
	o.touch(token)

	switch res.Kind {
	case bff.Success:
		o.history.Record(token)
		return o.report(Outcome{Kind: Confirmed, Message: res.Message})
	case bff.DeviceNotLinked:
		return o.report(Outcome{Kind: CPFRequired, Message: res.Message})
	case bff.InvalidGeolocation:
		return o.report(Outcome{Kind: LocationRejected, Message: res.Message})
	default:
		o.enqueue(payload)
		return o.report(Outcome{Kind: Queued, Message: "saved offline, will sync when connection is restored"})
	}
}

// Drain replays pending entries oldest-first. Each entry is attempted exactly
// once per drain, independent of its neighbors' outcomes; a live scan may
// interleave between entries but never overlaps a network call.
func (o *Orchestrator) Drain(ctx context.Context) DrainReport {
	o.drainMu.Lock()
	defer o.drainMu.Unlock()

	entries := o.queue.ListAll()
	rep := DrainReport{Attempted: len(entries)}

	for _, e := range entries {
		o.mu.Lock()
		res := o.submitter.Submit(ctx, e.Payload())
		switch res.Kind {
		case bff.Success:
			o.queue.Remove(e.ID)
			o.history.Record(e.QrToken)
			rep.Delivered++
		case bff.DeviceNotLinked, bff.InvalidGeolocation:
			// A business rejection can never succeed on replay.
			log.Printf("orchestrator: dropping queued submission %s: %s", e.ID, res.Kind)
			o.queue.Remove(e.ID)
			rep.Dropped++
		default:
			if o.queue.IncrementRetry(e.ID) {
				rep.Dropped++
			}
		}
		o.state.SetQueueDepth(o.queue.Count())
		o.mu.Unlock()
	}

	rep.Remaining = int(o.queue.Count())
	return rep
}

// HandleConnectivity is the sink for the platform connectivity signal. An
// offline-to-online edge triggers a drain.
func (o *Orchestrator) HandleConnectivity(online bool) {
	if o.state.SetOnline(online) && online {
		go func() {
			rep := o.Drain(context.Background())
			if rep.Attempted > 0 {
				log.Printf("orchestrator: drained queue: %d attempted, %d delivered, %d dropped, %d remaining",
					rep.Attempted, rep.Delivered, rep.Dropped, rep.Remaining)
			}
		}()
	}
}

// LastOutcome returns the most recent reported outcome. Safe to call from
// state listeners while a submission is in flight.
func (o *Orchestrator) LastOutcome() Outcome {
	o.outMu.Lock()
	defer o.outMu.Unlock()
	return o.lastOutcome
}

func (o *Orchestrator) enqueue(p models.AttendancePayload) {
	o.queue.Enqueue(p)
	o.state.SetQueueDepth(o.queue.Count())
}

func (o *Orchestrator) touch(token string) {
	o.lastToken = token
	o.lastAt = time.Now()
}

func (o *Orchestrator) report(out Outcome) Outcome {
	o.outMu.Lock()
	o.lastOutcome = out
	o.outMu.Unlock()
	if o.notify != nil {
		o.notify(out)
	}
	return out
}
