package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"nomwatch/internal/channel"
	"nomwatch/internal/dispatch"
	"nomwatch/internal/follow"
	"nomwatch/internal/format"
	"nomwatch/internal/registry"
	"nomwatch/pkg/logx"
)

type Config struct {
	// ChannelCaps maps channel names to their dispatch concurrency caps.
	ChannelCaps map[string]int
	DefaultCap  int
}

// Engine runs one complete notification cycle: fetch, diff, format,
// dispatch, commit. It is stateless between runs; everything it needs is
// re-read from its collaborators each cycle.
type Engine struct {
	source     *registry.Source
	index      follow.Index
	channels   *channel.Registry
	strategies []KindStrategy
	byKind     map[follow.Kind]KindStrategy
	committer  *Committer
	caps       dispatch.Config
	log        logx.Logger
	now        func() time.Time
}

func New(source *registry.Source, index follow.Index, channels *channel.Registry, strategies []KindStrategy, cfg Config, log logx.Logger) *Engine {
	byKind := make(map[follow.Kind]KindStrategy, len(strategies))
	for _, s := range strategies {
		byKind[s.Kind()] = s
	}
	return &Engine{
		source:     source,
		index:      index,
		channels:   channels,
		strategies: strategies,
		byKind:     byKind,
		committer:  NewCommitter(index, log),
		caps:       dispatch.Config{Caps: cfg.ChannelCaps, DefaultCap: cfg.DefaultCap},
		log:        log,
		now:        time.Now,
	}
}

// SetClock overrides the run clock. Tests only.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Run executes one notification cycle. It returns an error only when the
// cycle could not start at all (no records fetchable); partial failures
// inside the cycle are logged and retried by the next run through the
// untouched watermarks.
func (e *Engine) Run(ctx context.Context) error {
	runStart := e.now()
	log := e.log.With(logx.String("run", uuid.NewString()[:8]))

	records, err := e.source.Window(ctx)
	if err != nil {
		return fmt.Errorf("record window: %w", err)
	}
	if len(records) == 0 {
		log.Info("no records in window; nothing to do")
		return nil
	}

	var tasks []*Task
	for _, strat := range e.strategies {
		keys := strat.CandidateKeys(records)
		if keys != nil && len(keys) == 0 {
			// Exact-key kind with no candidate keys in the window.
			continue
		}
		users, err := e.index.FindUsersFollowing(ctx, strat.Kind(), keys)
		if err != nil {
			log.Error("follow index read failed; skipping kind",
				logx.String("kind", string(strat.Kind())), logx.Err(err))
			continue
		}
		kindTasks := BuildTasks(records, users, strat, runStart)
		log.Debug("kind diffed",
			logx.String("kind", string(strat.Kind())),
			logx.Int("users", len(users)),
			logx.Int("tasks", len(kindTasks)))
		tasks = append(tasks, kindTasks...)
	}

	if len(tasks) == 0 {
		log.Info("no follows matched new records")
		return nil
	}

	log.Info("dispatching digests",
		logx.Int("tasks", len(tasks)),
		logx.Int("records", len(records)))

	dispatch.Dispatch(ctx, tasks, e.caps,
		e.send,
		func(t *Task, success bool) { e.committer.OnTaskComplete(ctx, t, success) },
		log)
	return nil
}

// send renders and delivers one task. Called from a channel pool slot; a
// multi-part delivery occupies the slot until its last part settles.
func (e *Engine) send(ctx context.Context, t *Task) error {
	ch, err := e.channels.Lookup(t.Channel)
	if err != nil {
		return err
	}
	text := e.renderTask(ctx, t, ch.MarkupEnabled())
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("task rendered empty for user %d", t.UserID)
	}
	return ch.Send(ctx, t.Address, text)
}

func (e *Engine) renderTask(ctx context.Context, t *Task, markdown bool) string {
	strat := e.byKind[t.Kind]
	if strat == nil {
		return ""
	}

	blocks := make([]string, 0, len(t.Items)+1)
	blocks = append(blocks, strat.Header(t.Total, markdown))
	for _, item := range t.Items {
		body, ok := format.Render(item.Records, markdown, strat.Grouping(), e.log)
		if !ok {
			// Degenerate grouping: fall back to an ungrouped leaf render
			// rather than drop the item.
			body = format.Records(item.Records, markdown)
		}
		if strings.TrimSpace(body) == "" {
			continue
		}
		title := strat.ItemTitle(ctx, item, markdown)
		if title != "" {
			blocks = append(blocks, title+"\n"+body)
		} else {
			blocks = append(blocks, body)
		}
	}
	if len(blocks) == 1 {
		return ""
	}
	return strings.Join(blocks, "\n\n")
}
