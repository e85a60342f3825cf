package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/mzcATU/mzc-lp-backend-sub001/internal/types"
)

// OrderedItemsCache caches resolved learning paths per snapshot. The ordered
// view is the hot read consumed by the delivery domain, so writes to a
// snapshot's items or relations must invalidate its entry. Implementations
// live under internal/clients; a nil cache disables caching entirely.
//
// Services invalidate after their write transaction returns. When the service
// opened the transaction itself that is after commit; a caller supplying its
// own tx must invalidate again once it commits, or a concurrent read can
// re-fill the entry with pre-commit state until the TTL expires.
type OrderedItemsCache interface {
	Get(ctx context.Context, snapshotID uuid.UUID) ([]types.OrderedItem, bool)
	Set(ctx context.Context, snapshotID uuid.UUID, items []types.OrderedItem)
	Invalidate(ctx context.Context, snapshotID uuid.UUID)
}
