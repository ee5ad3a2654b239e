package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/application/commands"
	"github.com/Widerk/shapesbonding/application/commands/bus"
	"github.com/Widerk/shapesbonding/application/ports"
	"github.com/Widerk/shapesbonding/application/services"
	"github.com/Widerk/shapesbonding/domain/core/entities"
	"github.com/Widerk/shapesbonding/domain/core/valueobjects"
	"github.com/Widerk/shapesbonding/domain/events"
	"github.com/Widerk/shapesbonding/pkg/observability"
)

// SaveProfileHandler handles profile saves
type SaveProfileHandler struct {
	sessions  *services.SessionManager
	publisher ports.EventPublisher
	tracer    *observability.Tracer
	clock     ports.Clock
	logger    *zap.Logger
}

// NewSaveProfileHandler creates a new save profile handler
func NewSaveProfileHandler(
	sessions *services.SessionManager,
	publisher ports.EventPublisher,
	tracer *observability.Tracer,
	clock ports.Clock,
	logger *zap.Logger,
) *SaveProfileHandler {
	return &SaveProfileHandler{
		sessions:  sessions,
		publisher: publisher,
		tracer:    tracer,
		clock:     clock,
		logger:    logger,
	}
}

// Handle saves the profile and returns the saved entity
func (h *SaveProfileHandler) Handle(ctx context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.SaveProfileCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command %T", c)
	}

	wb, err := workbenchFor(h.sessions, cmd.UserID, cmd.Workbench)
	if err != nil {
		return nil, err
	}

	var profile *entities.Profile
	err = h.tracer.TraceFunction(ctx, "SaveProfile", func(ctx context.Context) error {
		var saveErr error
		if cmd.Params != nil {
			profile, saveErr = wb.SaveParams(ctx, cmd.Name, valueobjects.NewParameterSet(cmd.Params))
		} else {
			profile, saveErr = wb.Save(ctx, cmd.Name)
		}
		return saveErr
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("Profile saved",
		zap.String("profileID", profile.ID().String()),
		zap.String("userID", cmd.UserID),
	)
	publishBestEffort(ctx, h.publisher, h.logger, events.NewProfileSaved(profile, h.clock.Now()))
	return profile, nil
}

// DeleteProfileHandler handles profile deletion
type DeleteProfileHandler struct {
	sessions  *services.SessionManager
	publisher ports.EventPublisher
	tracer    *observability.Tracer
	clock     ports.Clock
	logger    *zap.Logger
}

// NewDeleteProfileHandler creates a new delete profile handler
func NewDeleteProfileHandler(
	sessions *services.SessionManager,
	publisher ports.EventPublisher,
	tracer *observability.Tracer,
	clock ports.Clock,
	logger *zap.Logger,
) *DeleteProfileHandler {
	return &DeleteProfileHandler{
		sessions:  sessions,
		publisher: publisher,
		tracer:    tracer,
		clock:     clock,
		logger:    logger,
	}
}

// Handle forwards the delete; the history drops the profile on the next
// snapshot
func (h *DeleteProfileHandler) Handle(ctx context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.DeleteProfileCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command %T", c)
	}

	wb, err := workbenchFor(h.sessions, cmd.UserID, cmd.Workbench)
	if err != nil {
		return nil, err
	}

	err = h.tracer.TraceFunction(ctx, "DeleteProfile", func(ctx context.Context) error {
		return wb.Delete(ctx, cmd.ProfileID)
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("Profile deleted",
		zap.String("profileID", cmd.ProfileID),
		zap.String("userID", cmd.UserID),
	)
	publishBestEffort(ctx, h.publisher, h.logger, events.NewProfileDeleted(cmd.ProfileID, cmd.UserID, h.clock.Now()))
	return nil, nil
}

// workbenchFor returns wb when the caller supplied one, otherwise the
// session workbench of userID
func workbenchFor(sessions *services.SessionManager, userID string, wb *services.Workbench) (*services.Workbench, error) {
	if wb != nil {
		return wb, nil
	}
	return sessions.Acquire(userID)
}

// publishBestEffort publishes e; a failure is logged and never fails the command
func publishBestEffort(ctx context.Context, publisher ports.EventPublisher, logger *zap.Logger, e events.DomainEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, []events.DomainEvent{e}); err != nil {
		logger.Warn("Failed to publish event",
			zap.String("eventType", e.GetEventType()),
			zap.String("aggregateID", e.GetAggregateID()),
			zap.Error(err),
		)
	}
}

// Register wires both handlers into b
func Register(b *bus.CommandBus, save *SaveProfileHandler, del *DeleteProfileHandler) error {
	if err := b.Register(commands.SaveProfileCommand{}, save); err != nil {
		return err
	}
	return b.Register(commands.DeleteProfileCommand{}, del)
}
