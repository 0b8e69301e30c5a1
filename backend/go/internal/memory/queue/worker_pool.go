package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/logger"
)

// PoolOptions 配置 WorkerPool。
type PoolOptions struct {
	Workers    int
	Buffer     int
	JobTimeout time.Duration // 0 表示不限制
	Logger     *logger.Logger
}

type task struct {
	ctx context.Context
	job models.MemoryJob
}

// WorkerPool 是进程内的有界队列，由固定数量的 goroutine 消费。
type WorkerPool struct {
	handler Handler
	timeout time.Duration
	logger  *logger.Logger

	mu     sync.RWMutex
	closed bool
	tasks  chan task
	wg     sync.WaitGroup

	submitted atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// NewWorkerPool 创建并启动 worker。
func NewWorkerPool(handler Handler, opts PoolOptions) *WorkerPool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Buffer < 0 {
		opts.Buffer = 0
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	p := &WorkerPool{
		handler: handler,
		timeout: opts.JobTimeout,
		logger:  opts.Logger,
		tasks:   make(chan task, opts.Buffer),
	}
	p.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go p.work()
	}
	return p
}

// Submit 非阻塞地提交任务。队列满时丢弃并返回 ErrQueueFull。
// 任务在脱离请求取消的 ctx 上运行，ctx 中的值（trace id 等）保留。
func (p *WorkerPool) Submit(ctx context.Context, job models.MemoryJob) error {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		return ErrQueueClosed
	}

	select {
	case p.tasks <- task{ctx: context.WithoutCancel(ctx), job: job}:
		p.submitted.Add(1)
		return nil
	default:
		p.dropped.Add(1)
		p.logger.WithTrace(job.TraceID).WithUser(job.UserID).Warn("memory queue full, job dropped")
		return ErrQueueFull
	}
}

func (p *WorkerPool) work() {
	defer p.wg.Done()
	for t := range p.tasks {
		p.run(t)
	}
}

func (p *WorkerPool) run(t task) {
	log := p.logger.WithTrace(t.job.TraceID).WithUser(t.job.UserID)

	ctx := t.ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			p.failed.Add(1)
			log.WithPayload(map[string]interface{}{"panic": r}).Error("memory job panicked")
		}
	}()

	if err := p.handler(ctx, t.job); err != nil {
		p.failed.Add(1)
		log.WithError(models.ErrorInfo{Message: err.Error()}).Warn("memory job failed")
		return
	}
	p.succeeded.Add(1)
}

// Stats 返回累计计数。
func (p *WorkerPool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Succeeded: p.succeeded.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
	}
}

// Close 停止接收新任务，并等待已排队的任务执行完。可以重复调用。
func (p *WorkerPool) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}
