package presence

import "context"

// Store mirrors room occupancy and liveness for the rest of the
// platform. It is advisory state: the in-memory registry remains the
// source of truth for signaling, and every Store call is non-critical.
type Store interface {
	AddViewer(ctx context.Context, roomID, connID string) error
	RemoveViewer(ctx context.Context, roomID, connID string) error
	ViewerCount(ctx context.Context, roomID string) (int64, error)
	SetLive(ctx context.Context, roomID, broadcasterID string) error
	ClearLive(ctx context.Context, roomID string) error
	Close() error
}
