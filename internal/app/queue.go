package app

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync/atomic"
	"time"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var ErrQueueClosed = errors.New("persistence queue closed")

// Job is one Gateway operation. Jobs sharing a Room run in submission order.
type Job struct {
	Room domain.RoomName
	Op   string
	Run  func(ctx context.Context, gw core.Gateway) error
	// Done, when set, is called on the worker goroutine with the result.
	Done func(error)
}

type QueueConfig struct {
	Workers int
	Depth   int
	Timeout time.Duration
}

func DefaultQueueConfig() QueueConfig {
	return QueueConfig{Workers: 4, Depth: 256, Timeout: 5 * time.Second}
}

// Queue runs Gateway calls off the coordinator loop. Each shard is a FIFO
// drained by one goroutine; a room always maps to the same shard.
type Queue struct {
	gw      core.Gateway
	cfg     QueueConfig
	shards  []chan Job
	stopped chan struct{}
	closed  atomic.Bool
}

func NewQueue(gw core.Gateway, cfg QueueConfig) *Queue {
	def := DefaultQueueConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Depth <= 0 {
		cfg.Depth = def.Depth
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	shards := make([]chan Job, cfg.Workers)
	for i := range shards {
		shards[i] = make(chan Job, cfg.Depth)
	}
	return &Queue{gw: gw, cfg: cfg, shards: shards, stopped: make(chan struct{})}
}

func (q *Queue) shardFor(room domain.RoomName) chan Job {
	h := fnv.New32a()
	_, _ = h.Write([]byte(room))
	return q.shards[h.Sum32()%uint32(len(q.shards))]
}

// Submit never blocks. It reports false when the shard is full or the
// queue has stopped; Done is not called in that case.
func (q *Queue) Submit(job Job) bool {
	if q.closed.Load() {
		return false
	}
	select {
	case q.shardFor(job.Room) <- job:
		return true
	default:
		log.Warn().Str("module", "app.queue").Str("op", job.Op).Str("room", string(job.Room)).Msg("queue full, job dropped")
		return false
	}
}

// Run drains every shard until ctx is cancelled, then finishes the jobs
// already buffered and returns.
func (q *Queue) Run(ctx context.Context) error {
	g := new(errgroup.Group)
	for i, ch := range q.shards {
		g.Go(func() error {
			q.work(ctx, i, ch)
			return nil
		})
	}
	err := g.Wait()
	close(q.stopped)
	return err
}

func (q *Queue) work(ctx context.Context, id int, ch chan Job) {
	logger := log.With().Str("module", "app.queue").Int("shard", id).Logger()
	for {
		select {
		case job := <-ch:
			q.exec(job)
		case <-ctx.Done():
			q.closed.Store(true)
			for {
				select {
				case job := <-ch:
					q.exec(job)
				default:
					logger.Debug().Msg("shard drained")
					return
				}
			}
		}
	}
}

func (q *Queue) exec(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.cfg.Timeout)
	defer cancel()

	err := q.safeRun(ctx, job)
	if err != nil {
		err = fmt.Errorf("%s %s: %w: %w", job.Op, job.Room, domain.ErrPersistence, err)
		log.Error().Err(err).Str("module", "app.queue").Str("op", job.Op).Str("room", string(job.Room)).Msg("gateway call failed")
	}
	if job.Done != nil {
		job.Done(err)
	}
}

func (q *Queue) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return job.Run(ctx, q.gw)
}

// Stopped is closed once Run has returned.
func (q *Queue) Stopped() <-chan struct{} { return q.stopped }
