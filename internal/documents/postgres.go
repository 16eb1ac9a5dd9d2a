package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/conduitworks/conduit/pkg/pagination"
	"github.com/conduitworks/conduit/pkg/query"
	"github.com/conduitworks/conduit/pkg/repository"
)

type pgStore struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// NewStore creates the Postgres-backed document store.
func NewStore(db *sql.DB, logger *slog.Logger, pagination pagination.Config) Store {
	return &pgStore{
		db:         db,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
	}
}

const historyQuery = `
	SELECT type, stage, status, target_stage, confidence_score, error_kind, error, occurred_at
	FROM document_history
	WHERE document_id = $1
	ORDER BY seq`

const historyInsert = `
	INSERT INTO document_history(document_id, seq, type, stage, status, target_stage, confidence_score, error_kind, error, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (s *pgStore) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, s.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	history, err := repository.QueryMany(ctx, s.db, historyQuery, []any{id}, scanTransition)
	if err != nil {
		return nil, fmt.Errorf("query document history: %w", err)
	}
	d.History = history

	return &d, nil
}

func (s *pgStore) Create(ctx context.Context, doc *Document) (*Document, error) {
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	q := `
		INSERT INTO documents(
			id, owner_id, name, source_type, payload_key, content_type,
			size_bytes, page_count, stage, status, classification,
			confidence_score, route, metadata, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1)
		RETURNING created_at, updated_at`

	created, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (*Document, error) {
		cp := doc.Clone()
		cp.Version = 1

		row := tx.QueryRowContext(ctx, q,
			cp.ID,
			cp.OwnerID,
			cp.Name,
			cp.SourceType,
			cp.PayloadKey,
			cp.ContentType,
			cp.SizeBytes,
			cp.PageCount,
			cp.Stage,
			cp.Status,
			cp.Classification,
			cp.ConfidenceScore,
			cp.Route,
			metadata,
			cp.Version,
		)
		if err := row.Scan(&cp.CreatedAt, &cp.UpdatedAt); err != nil {
			return nil, err
		}

		if err := s.insertHistory(ctx, tx, cp, 0); err != nil {
			return nil, err
		}

		return cp, nil
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	s.logger.Info("document created",
		"id", created.ID,
		"owner", created.OwnerID,
		"name", created.Name,
		"source", created.SourceType,
	)
	return created, nil
}

func (s *pgStore) CompareAndSwap(ctx context.Context, doc *Document) (*Document, error) {
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	q := `
		UPDATE documents SET
			stage = $3, status = $4, classification = $5,
			confidence_score = $6, route = $7, metadata = $8,
			page_count = $9, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`

	committed, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (*Document, error) {
		cp := doc.Clone()

		row := tx.QueryRowContext(ctx, q,
			cp.ID,
			cp.Version,
			cp.Stage,
			cp.Status,
			cp.Classification,
			cp.ConfidenceScore,
			cp.Route,
			metadata,
			cp.PageCount,
		)
		if err := row.Scan(&cp.Version, &cp.UpdatedAt); err != nil {
			return nil, err
		}

		var maxSeq int
		seqRow := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(seq), -1) FROM document_history WHERE document_id = $1",
			cp.ID,
		)
		if err := seqRow.Scan(&maxSeq); err != nil {
			return nil, err
		}

		if err := s.insertHistory(ctx, tx, cp, maxSeq+1); err != nil {
			return nil, err
		}

		return cp, nil
	})

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, s.resolveConflict(ctx, doc.ID)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return committed, nil
}

// resolveConflict distinguishes a lost version race from a missing row;
// both surface as zero rows updated.
func (s *pgStore) resolveConflict(ctx context.Context, id uuid.UUID) error {
	var exists bool
	row := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM documents WHERE id = $1)", id)
	if err := row.Scan(&exists); err != nil {
		return fmt.Errorf("resolve version conflict: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

// insertHistory persists history records at positions >= fromSeq. Only new
// records are written; committed history is never rewritten.
func (s *pgStore) insertHistory(ctx context.Context, tx *sql.Tx, doc *Document, fromSeq int) error {
	for i := fromSeq; i < len(doc.History); i++ {
		t := doc.History[i]

		var targetStage *string
		if t.TargetStage != "" {
			v := string(t.TargetStage)
			targetStage = &v
		}

		_, err := tx.ExecContext(ctx, historyInsert,
			doc.ID,
			i,
			t.Type,
			t.Stage,
			t.Status,
			targetStage,
			t.ConfidenceScore,
			nullable(t.ErrorKind),
			nullable(t.Error),
			t.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert history record %d: %w", i, err)
		}
	}
	return nil
}

func (s *pgStore) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Document], error) {
	page.Normalize(s.pagination)

	owner := ownerID.String()
	qb := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("OwnerID", &owner).
		WhereSearch(page.Search, "Name", "Classification")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, s.db, pageSQL, pageArgs, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (s *pgStore) ListStale(ctx context.Context, cutoff time.Time) ([]Document, error) {
	qb := query.
		NewBuilder(projection).
		WhereIn("Stage", []any{StageExtracting, StageClassifying, StageRouting}).
		WhereIn("Status", []any{StatusPending, StatusInProgress}).
		WhereBefore("UpdatedAt", cutoff)

	q, args := qb.Build()
	docs, err := repository.QueryMany(ctx, s.db, q, args, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query stale documents: %w", err)
	}

	return docs, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
