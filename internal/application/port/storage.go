package port

import "context"

// FileStore keeps copies of rendered export files
type FileStore interface {
	// Save writes content under name and returns the full path written
	Save(ctx context.Context, name string, content []byte) (string, error)
	// Read returns the content stored under name
	Read(ctx context.Context, name string) ([]byte, error)
}
