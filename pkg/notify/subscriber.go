package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pitabwire/frame/workerpool"
	"github.com/pitabwire/util"

	"github.com/awaazlabs/awaaz/pkg/events"
)

// Subscriber implements queue.SubscribeWorker to route events to matching webhooks.
type Subscriber struct {
	Repo      *Repository
	Deliverer *Deliverer
	Pool      workerpool.WorkerPool
}

// Handle is called by frame's pub/sub for each event message.
func (s *Subscriber) Handle(ctx context.Context, _ map[string]string, message []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		util.Log(ctx).WithError(err).Error("webhook subscriber: unmarshal envelope")
		return err
	}

	endpoints, err := s.Repo.ListByEventType(ctx, env.Type)
	if err != nil {
		util.Log(ctx).WithError(err).Error("webhook subscriber: list endpoints")
		return err
	}

	for _, ep := range endpoints {
		ep := ep
		env := env
		if s.Pool != nil {
			if err := s.Pool.Submit(ctx, func() {
				s.Deliverer.Deliver(ctx, ep, env)
			}); err != nil {
				slog.WarnContext(ctx, "webhook pool full", slog.String("endpoint_id", ep.ID))
			}
		} else {
			go s.Deliverer.Deliver(ctx, ep, env)
		}
	}

	return nil
}
