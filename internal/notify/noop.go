// ABOUTME: No-op Notifier used when COLLAB_NOTIFY_ENABLED is false (the default).
package notify

import (
	"context"

	"github.com/pdekraker-epa/ckanext-collaborators/internal/collab"
)

// Noop discards all notifications.
type Noop struct{}

func (Noop) CollaboratorAdded(context.Context, collab.Grant) error   { return nil }
func (Noop) CollaboratorRemoved(context.Context, collab.Grant) error { return nil }
