package queue

import "context"

// Job handles one message type. Handle receives the decoded payload; use
// ParsePayload to convert it into a concrete type.
type Job interface {
	Name() string
	Type() string
	Handle(ctx context.Context, payload interface{}) error
}

// JobFunc adapts a function to Job, named after its message type.
type JobFunc struct {
	MsgType string
	Fn      func(ctx context.Context, payload interface{}) error
}

func (f JobFunc) Name() string { return f.MsgType }
func (f JobFunc) Type() string { return f.MsgType }

func (f JobFunc) Handle(ctx context.Context, payload interface{}) error {
	return f.Fn(ctx, payload)
}
