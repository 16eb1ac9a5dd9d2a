package documents

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/conduitworks/conduit/internal/identity"
	"github.com/conduitworks/conduit/pkg/pagination"
	"github.com/conduitworks/conduit/pkg/storage"
)

type service struct {
	store      Store
	payloads   storage.System
	submitter  Submitter
	logger     *slog.Logger
	pagination pagination.Config
}

// NewSystem creates the document system backed by the given store,
// payload storage, and pipeline submitter.
func NewSystem(
	store Store,
	payloads storage.System,
	submitter Submitter,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &service{
		store:      store,
		payloads:   payloads,
		submitter:  submitter,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
	}
}

func (s *service) Handler(maxUploadSize int64) *Handler {
	return NewHandler(s, s.logger, s.pagination, maxUploadSize)
}

// Upload stores the payload and submits the document to the pipeline.
// A failed submission compensates with a best-effort blob delete so no
// orphan payload survives a rejected request.
func (s *service) Upload(ctx context.Context, user identity.User, cmd UploadCommand) (*Document, error) {
	key := buildPayloadKey(user.ID, sanitizeFilename(cmd.Filename))

	if err := s.payloads.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("upload document payload: %w", err)
	}

	doc, err := s.submitter.Submit(ctx, SubmitCommand{
		OwnerID:     user.ID,
		Name:        cmd.Filename,
		SourceType:  cmd.SourceType,
		PayloadKey:  key,
		ContentType: cmd.ContentType,
		SizeBytes:   int64(len(cmd.Data)),
		PageCount:   cmd.PageCount,
	})
	if err != nil {
		if delErr := s.payloads.Delete(ctx, key); delErr != nil {
			s.logger.Warn("compensating payload delete failed", "key", key, "error", delErr)
		}
		return nil, err
	}

	return doc, nil
}

func (s *service) List(
	ctx context.Context,
	user identity.User,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Document], error) {
	return s.store.ListByOwner(ctx, user.ID, page, filters)
}

func (s *service) Find(ctx context.Context, user identity.User, id uuid.UUID) (*Document, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(user, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *service) History(ctx context.Context, user identity.User, id uuid.UUID) ([]Transition, error) {
	doc, err := s.Find(ctx, user, id)
	if err != nil {
		return nil, err
	}
	return doc.History, nil
}

// authorize permits access by the owning user or an admin.
func authorize(user identity.User, doc *Document) error {
	if doc.OwnerID == user.ID || user.IsAdmin() {
		return nil
	}
	return ErrForbidden
}
