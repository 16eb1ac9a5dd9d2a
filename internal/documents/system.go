package documents

import (
	"context"
	"net/url"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/conduitworks/conduit/internal/identity"
	"github.com/conduitworks/conduit/pkg/pagination"
)

// UploadCommand carries a payload received over HTTP before it is stored
// and submitted to the pipeline.
type UploadCommand struct {
	Data        []byte
	Filename    string
	ContentType string
	SourceType  SourceType
	PageCount   *int
}

// System defines the public contract for document domain operations.
// All operations are scoped to the calling user; admins may read any
// document.
type System interface {
	Handler(maxUploadSize int64) *Handler

	Upload(ctx context.Context, user identity.User, cmd UploadCommand) (*Document, error)

	List(
		ctx context.Context,
		user identity.User,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, user identity.User, id uuid.UUID) (*Document, error)
	History(ctx context.Context, user identity.User, id uuid.UUID) ([]Transition, error)
}

func buildPayloadKey(owner uuid.UUID, filename string) string {
	return "payloads/" + owner.String() + "/" + uuid.NewString() + "/" + filename
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "" {
		name = "document"
	}
	return url.PathEscape(name)
}
