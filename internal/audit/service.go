package audit

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/soukhq/souk-backend/pkg/db/models"
	"github.com/soukhq/souk-backend/pkg/enums"
	"github.com/soukhq/souk-backend/pkg/logger"
)

// RecordInput captures one audit trail entry.
type RecordInput struct {
	EventName   enums.AuditEventType
	ActorID     uuid.UUID
	ActorRole   enums.ActorRole
	Description string
	IPAddress   *string
	Metadata    map[string]any
}

// Service appends entries to the audit trail. Callers invoke Record after
// their own transaction commits; a failed write must never fail the business
// operation, so errors are logged and swallowed here.
type Service interface {
	Record(ctx context.Context, input RecordInput)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the audit log service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Record(ctx context.Context, input RecordInput) {
	if !input.EventName.IsValid() {
		s.logg.Warn(ctx, "audit event dropped: unknown event name "+string(input.EventName))
		return
	}

	var metadata json.RawMessage
	if input.Metadata != nil {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			s.logg.Error(ctx, "audit metadata marshal failed", err)
		} else {
			metadata = raw
		}
	}

	row := models.AuditEvent{
		EventName:   input.EventName,
		ActorID:     input.ActorID,
		ActorRole:   input.ActorRole,
		Description: input.Description,
		IPAddress:   input.IPAddress,
		Metadata:    metadata,
	}

	if err := s.repo.Insert(ctx, &row); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event_name": input.EventName,
			"actor_id":   input.ActorID.String(),
		})
		s.logg.Error(logCtx, "audit event write failed", err)
	}
}
