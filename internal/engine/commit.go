package engine

import (
	"context"

	"nomwatch/internal/follow"
	"nomwatch/pkg/logx"
)

// Committer advances watermarks for confirmed deliveries. It is the
// dispatch completion callback's only consumer.
type Committer struct {
	index follow.Index
	log   logx.Logger
}

func NewCommitter(index follow.Index, log logx.Logger) *Committer {
	return &Committer{index: index, log: log}
}

// OnTaskComplete commits a task's watermarks when delivery succeeded and
// deliberately does nothing otherwise: an untouched watermark makes the
// next run re-diff and re-send the same records. There is no separate
// retry queue.
//
// The advance targets the run's start time rather than the newest record
// date, so records published between fetch and send stay notifiable. The
// update is one batched conditional statement over the task's item keys;
// a store failure is logged and, like a send failure, leaves every
// watermark of the task where it was.
func (c *Committer) OnTaskComplete(ctx context.Context, t *Task, success bool) {
	log := c.log.With(
		logx.Int64("user", t.UserID),
		logx.String("kind", string(t.Kind)),
		logx.Int("records", t.Total),
	)
	if !success {
		log.Warn("delivery failed; watermarks untouched")
		return
	}
	if err := c.index.AdvanceWatermarks(ctx, t.UserID, t.Kind, t.ItemKeys(), t.RunStart); err != nil {
		log.Error("watermark commit failed; next run re-sends", logx.Err(err))
		return
	}
	log.Debug("watermarks advanced", logx.Time("watermark", t.RunStart))
}
