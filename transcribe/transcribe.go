// Package transcribe converts extracted audio tracks into text transcripts.
package transcribe

import (
	"context"

	"tikdex/record"
)

// Transcriber produces a transcript for an audio file on disk.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*record.Transcript, error)
}
