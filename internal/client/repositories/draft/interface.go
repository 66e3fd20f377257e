// Package draft persists the single pending-registration slot across process
// restarts, bridging the gap between signup submission and the out-of-band
// email verification.
package draft

import (
	"context"

	"github.com/personewsap/personews/internal/client/models"
)

// Repository is the minimal save/load/clear capability over the draft slot.
//
// Contract:
//   - Save overwrites any previous draft (single slot, last write wins).
//   - Load returns ok=false when no draft is stored; malformed stored
//     content also degrades to ok=false, never an error.
//   - Clear is unconditional and safe to call when no draft is present.
type Repository interface {
	Save(ctx context.Context, reg models.PendingRegistration) error
	Load(ctx context.Context) (models.PendingRegistration, bool, error)
	Clear(ctx context.Context) error
}
