package worker

import "github.com/emptyOVO/logbucket/streaming"

type KV = streaming.KV

type MapFormat func(filename string, contents string, ctx MrContext) error
type ReduceFormat func(key string, values []string, ctx MrContext)

// MrContext is handed to map and reduce functions to emit records.
type MrContext struct {
	emit func(KV)
}

func newMrContext(emit func(KV)) MrContext {
	return MrContext{emit: emit}
}

// EmitIntermediate records a map output pair.
func (c MrContext) EmitIntermediate(key, value string) {
	c.emit(KV{Key: key, Value: value})
}

// Emit records a reduce output pair.
func (c MrContext) Emit(key, value string) {
	c.emit(KV{Key: key, Value: value})
}
