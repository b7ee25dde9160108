package entity

import "context"

// Updater is what the host scheduler polls. Update reads the device and
// rebuilds the entity's cached state; the scheduler guarantees calls for
// one device never overlap.
type Updater interface {
	Update(ctx context.Context) error
}
