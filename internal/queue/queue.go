package queue

import "context"

const (
	// ChunkQueueName is the work queue carrying chunk reconciliation jobs.
	ChunkQueueName = "chunks"
	// ChunkDLQName receives chunk jobs that could not be decoded.
	ChunkDLQName = "dlq.chunks"
)

// Publisher publishes chunk jobs to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg ChunkMessage) error
	Close() error
}

// MessageHandler handles a consumed chunk job.
type MessageHandler func(ctx context.Context, msg ChunkMessage) error

// Consumer consumes chunk jobs from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}
