// Package notify publishes generation job transitions to NATS so other
// processes can follow what the app is doing.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"voicegen/internal/pkg/voicegen/errs"
	"voicegen/internal/pkg/voicegen/pipeline"
)

const (
	DefaultSubject = "voicegen.jobs"
	clientName     = "voicegen"
)

type JobEvent struct {
	JobID     string    `json:"job_id"`
	State     string    `json:"state"`
	Mode      string    `json:"mode"`
	Progress  float64   `json:"progress"`
	Output    string    `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func EventFromJob(job pipeline.Job) JobEvent {
	event := JobEvent{
		JobID:     job.ID.String(),
		State:     job.State.String(),
		Mode:      job.Request.Mode.String(),
		Progress:  job.Progress,
		Timestamp: job.UpdatedAt.UTC(),
	}
	if job.Artifact != nil {
		event.Output = job.Artifact.FinalPath
	}
	if job.Err != nil {
		event.Error = errs.Reason(job.Err)
	}
	return event
}

type Notifier struct {
	conn    *nats.Conn
	subject string
}

func Connect(url, subject string) (*Notifier, error) {
	conn, err := nats.Connect(url,
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("Disconnected from NATS")
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return New(conn, subject), nil
}

func New(conn *nats.Conn, subject string) *Notifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Notifier{conn: conn, subject: subject}
}

// JobChanged implements pipeline.Observer. Publishing is buffered by the
// client, so it does not stall the UI loop.
func (n *Notifier) JobChanged(job pipeline.Job) {
	data, err := json.Marshal(EventFromJob(job))
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal job event")
		return
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		log.Warn().Err(err).Str("subject", n.subject).Msg("Failed to publish job event")
	}
}

func (n *Notifier) Close() error {
	return n.conn.Drain()
}
