package assessment

import (
	"context"
	"time"

	"github.com/verte-zerg/neurlyn/internal/model"
)

// SessionStore persists sessions keyed by id. Get returns nil, nil for a
// missing session. Errors wrapping model.ErrRecordNotFound or
// model.ErrCorruptRecord are permanent; any other error is treated as
// transient. MarkComplete writes the final state and the deletion deadline
// atomically.
type SessionStore interface {
	Create(ctx context.Context, s *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	Update(ctx context.Context, s *model.Session) error
	MarkComplete(ctx context.Context, s *model.Session, deleteAfter time.Time) error
}
