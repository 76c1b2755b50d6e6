package realtime

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/meetgrid/internal/application"
	"github.com/example/meetgrid/internal/logging"
	"github.com/example/meetgrid/internal/registry"
	"github.com/example/meetgrid/internal/schedule"
)

// Editor applies the live edit operations.
type Editor interface {
	EditSchedule(ctx context.Context, room, participant string, input application.EditScheduleInput) error
	EditEventName(ctx context.Context, room, participant string, input application.EditEventNameInput) error
	EditUserName(ctx context.Context, room, participant string, input application.EditUserNameInput) error
	EditIsAbsent(ctx context.Context, room, participant string, input application.EditIsAbsentInput) error
}

// Dispatcher routes decoded commands to the editor and reports rejected
// messages back to their sender.
type Dispatcher struct {
	editor Editor
	logger *slog.Logger
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(editor Editor, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{editor: editor, logger: logger}
}

// Dispatch decodes data and applies it on behalf of participant in room.
// Protocol and storage failures are reported to reply as an error envelope;
// permission failures are dropped without telling the sender. The returned
// error is for logging and never means the connection should close.
func (d *Dispatcher) Dispatch(ctx context.Context, room, participant string, reply registry.Conn, data []byte) error {
	logger := logging.FromContextOr(ctx, d.logger)

	cmd, err := Decode(data)
	if err != nil {
		logger.WarnContext(ctx, "rejected inbound message", "error", err)
		d.report(ctx, logger, reply, err)
		return err
	}

	logger = logger.With("message_type", cmd.MessageType())
	switch c := cmd.(type) {
	case EditSchedule:
		err = d.editor.EditSchedule(ctx, room, participant, c.EditScheduleInput)
	case EditEventName:
		err = d.editor.EditEventName(ctx, room, participant, c.EditEventNameInput)
	case EditUserName:
		err = d.editor.EditUserName(ctx, room, participant, c.EditUserNameInput)
	case EditIsAbsent:
		err = d.editor.EditIsAbsent(ctx, room, participant, c.EditIsAbsentInput)
	}
	if err == nil {
		return nil
	}

	if errors.Is(err, application.ErrUnauthorized) || errors.Is(err, application.ErrOwnerCannotBeAbsent) {
		logger.InfoContext(ctx, "ignored inbound message", "error", err, "error_kind", application.ErrorKind(err))
		return err
	}
	d.report(ctx, logger, reply, err)
	return err
}

func (d *Dispatcher) report(ctx context.Context, logger *slog.Logger, reply registry.Conn, err error) {
	if reply == nil {
		return
	}
	if sendErr := reply.Send(ctx, application.NewErrorMessage(clientError(err))); sendErr != nil {
		logger.WarnContext(ctx, "failed to report error to sender", "error", sendErr)
	}
}

var errInternal = errors.New("the edit could not be applied")

// clientError hides storage details from the sender.
func clientError(err error) error {
	var vErr *application.ValidationError
	switch {
	case errors.Is(err, ErrMalformedEnvelope),
		errors.Is(err, ErrUnknownMessageType),
		errors.Is(err, schedule.ErrShapeMismatch),
		errors.As(err, &vErr):
		return err
	case errors.Is(err, application.ErrNotFound):
		return application.ErrNotFound
	}
	return errInternal
}
