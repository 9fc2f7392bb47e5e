package api

import (
	"time"

	"github.com/kbukum/speakerembed/logger"
)

// stage is a step of one extraction request.
type stage string

const (
	stageReceived   stage = "received"
	stageValidated  stage = "validated"
	stageNormalized stage = "normalized"
	stageExtracted  stage = "extracted"
	stageResponded  stage = "responded"
	stageFailed     stage = "failed"
)

// tracker logs stage transitions for one request at debug level.
type tracker struct {
	log   *logger.Logger
	start time.Time
	cur   stage
}

func newTracker(log *logger.Logger) *tracker {
	t := &tracker{log: log, start: time.Now(), cur: stageReceived}
	log.Debug("Request stage", logger.Fields("stage", string(stageReceived)))
	return t
}

func (t *tracker) to(next stage, kv ...interface{}) {
	fields := logger.Fields(kv...)
	fields["from"] = string(t.cur)
	fields["stage"] = string(next)
	fields["elapsed_ms"] = time.Since(t.start).Milliseconds()
	t.cur = next
	t.log.Debug("Request stage", fields)
}
