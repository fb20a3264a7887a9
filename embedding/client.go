package embedding

import "context"

// Client produces one embedding vector per input text, in input order.
// Sending 3 texts yields 3 vectors; a single text still comes back wrapped in
// a list.
type Client interface {
	GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}
