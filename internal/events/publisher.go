package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Stream and subject constants for workflow events
const (
	StreamWorkflow = "KPI_WORKFLOW"

	SubjectKpiSubmitted      = "kpi.submitted"
	SubjectKpiApproved       = "kpi.approved"
	SubjectKpiRejected       = "kpi.rejected"
	SubjectKpiLocked         = "kpi.locked"
	SubjectActualSubmitted   = "actual.submitted"
	SubjectActualApproved    = "actual.approved"
	SubjectActualRejected    = "actual.rejected"
	SubjectActualLocked      = "actual.locked"
	SubjectApprovalDelegated = "approval.delegated"
	SubjectApprovalEscalated = "approval.escalated"
	SubjectCycleActivated    = "cycle.activated"
	SubjectCycleClosed       = "cycle.closed"
	SubjectChangeRequested   = "change.requested"
	SubjectReturnedToStaff   = "entity.returned"
)

// WorkflowEvent is the JSON payload published for every workflow transition.
type WorkflowEvent struct {
	EventID    string    `json:"eventId"`
	EventType  string    `json:"eventType"`
	EntityType string    `json:"entityType,omitempty"`
	EntityID   string    `json:"entityId,omitempty"`
	OwnerID    string    `json:"ownerId,omitempty"`
	ActorID    string    `json:"actorId,omitempty"`
	Status     string    `json:"status,omitempty"`
	Level      int       `json:"level,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewWorkflowEvent creates an event with identity and timestamp filled in.
func NewWorkflowEvent(eventType string) WorkflowEvent {
	return WorkflowEvent{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher publishes workflow events to NATS JetStream. A nil Publisher is
// valid and drops all events, so callers never need to guard for it.
type Publisher struct {
	js     nats.JetStreamContext
	nc     *nats.Conn
	logger *logrus.Entry
}

// NewPublisher connects to NATS and prepares a JetStream context.
func NewPublisher(url, name string, logger *logrus.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &Publisher{
		js:     js,
		nc:     nc,
		logger: logger.WithField("component", "events"),
	}, nil
}

// EnsureStream creates the workflow stream if it does not exist yet.
func (p *Publisher) EnsureStream(subjects []string) error {
	if p == nil {
		return nil
	}
	_, err := p.js.StreamInfo(StreamWorkflow)
	if err == nil {
		return nil
	}
	_, err = p.js.AddStream(&nats.StreamConfig{
		Name:     StreamWorkflow,
		Subjects: subjects,
		Storage:  nats.FileStorage,
	})
	return err
}

// Close drains the NATS connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	p.nc.Close()
}

// Publish sends an event asynchronously. The HTTP request context may be
// cancelled before the publish completes, so a detached timeout context is
// used instead; failures are logged, never surfaced to the workflow.
func (p *Publisher) Publish(subject string, event WorkflowEvent) {
	if p == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		data, err := json.Marshal(event)
		if err != nil {
			p.logger.WithError(err).Error("Failed to marshal workflow event")
			return
		}

		if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
			p.logger.WithFields(logrus.Fields{
				"subject":   subject,
				"eventType": event.EventType,
				"entityId":  event.EntityID,
			}).WithError(err).Error("Failed to publish workflow event")
			return
		}

		p.logger.WithFields(logrus.Fields{
			"subject":   subject,
			"eventType": event.EventType,
			"entityId":  event.EntityID,
		}).Debug("Workflow event published")
	}()
}
