// Package worker mirrors ledger transaction events into a spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"carteira/internal/amqp"
	"carteira/internal/log"
	"carteira/internal/sheets"
)

// MirrorWorker applies transaction events to a sheets.Exporter so the
// spreadsheet converges on the ledger state.
type MirrorWorker struct {
	exporter sheets.Exporter
}

func NewMirrorWorker(exporter sheets.Exporter) *MirrorWorker {
	return &MirrorWorker{exporter: exporter}
}

// Run consumes transaction events until the context is canceled.
func (w *MirrorWorker) Run(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeTransactionEvents(ctx, func(msg *amqp.TransactionEvent) error {
		return w.HandleEvent(ctx, msg)
	})
}

// HandleEvent applies one event. Handlers are written to converge under
// redelivery and event loss: an update for a row that was never appended
// falls back to an append, and deleting an already absent row succeeds.
func (w *MirrorWorker) HandleEvent(ctx context.Context, msg *amqp.TransactionEvent) error {
	switch msg.Event {
	case amqp.EventCreated:
		ref, err := w.exporter.AppendRow(ctx, eventRow(msg))
		if err != nil {
			return fmt.Errorf("append transaction %s: %w", msg.ID, err)
		}
		slog.InfoContext(ctx, "Mirrored new transaction",
			log.FieldTransactionID, msg.ID,
			log.FieldSheetsRef, ref)
		return nil

	case amqp.EventUpdated:
		err := w.exporter.UpdateRow(ctx, eventRow(msg))
		if errors.Is(err, sheets.ErrRowNotFound) {
			slog.WarnContext(ctx, "Update for unmirrored transaction, appending instead",
				log.FieldTransactionID, msg.ID)
			_, err = w.exporter.AppendRow(ctx, eventRow(msg))
		}
		if err != nil {
			return fmt.Errorf("update transaction %s: %w", msg.ID, err)
		}
		return nil

	case amqp.EventDeleted:
		err := w.exporter.RemoveRow(ctx, msg.ID)
		if errors.Is(err, sheets.ErrRowNotFound) {
			slog.WarnContext(ctx, "Delete for unmirrored transaction, nothing to do",
				log.FieldTransactionID, msg.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("remove transaction %s: %w", msg.ID, err)
		}
		return nil

	default:
		// Unknown kinds are dropped, not requeued; requeueing would loop forever.
		slog.WarnContext(ctx, "Ignoring unknown event kind",
			"event", string(msg.Event),
			log.FieldTransactionID, msg.ID)
		return nil
	}
}

func eventRow(msg *amqp.TransactionEvent) sheets.Row {
	return sheets.Row{
		ID:          msg.ID,
		UserID:      msg.UserID,
		Type:        msg.Type,
		Category:    msg.Category,
		AmountCents: msg.AmountCents,
		Date:        msg.Date,
	}
}
