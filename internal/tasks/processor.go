// Package tasks executes entries read from the worker's streams.
package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"filevault/internal/mail"
)

const (
	TypePasswordResetEmail    = mail.TaskType
	TypeReconcileUploadCounts = "reconcile_upload_counts"
)

// Reconciler rewrites upload counters that drifted from the files table.
type Reconciler interface {
	ReconcileUploadCounts(ctx context.Context) (int64, error)
}

type Processor struct {
	mailer     mail.Sender
	reconciler Reconciler
	logger     zerolog.Logger
}

func NewProcessor(mailer mail.Sender, reconciler Reconciler, logger zerolog.Logger) *Processor {
	return &Processor{
		mailer:     mailer,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Handle runs one stream entry. A nil return acknowledges the entry; errors
// leave it pending so it is claimed again later.
func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	taskType, _ := msg.Values["type"].(string)

	switch taskType {
	case TypePasswordResetEmail:
		return p.handleResetEmail(ctx, msg)
	case TypeReconcileUploadCounts:
		return p.handleReconcile(ctx)
	default:
		p.logger.Warn().Str("type", taskType).Str("message_id", msg.ID).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) handleResetEmail(ctx context.Context, msg redis.XMessage) error {
	message, err := mail.Decode(msg.Values)
	if err != nil {
		if errors.Is(err, mail.ErrMalformedMessage) {
			// retrying cannot fix a bad entry
			p.logger.Warn().Str("message_id", msg.ID).Msg("dropping malformed mail entry")
			return nil
		}
		return err
	}

	if err := p.mailer.Send(ctx, message); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	p.logger.Info().Str("message_id", msg.ID).Str("to", message.To).Msg("reset email sent")
	return nil
}

func (p *Processor) handleReconcile(ctx context.Context) error {
	fixed, err := p.reconciler.ReconcileUploadCounts(ctx)
	if err != nil {
		return fmt.Errorf("reconcile upload counts: %w", err)
	}
	p.logger.Info().Int64("users_fixed", fixed).Msg("upload counters reconciled")
	return nil
}
