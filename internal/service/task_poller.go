package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quizgen_gateway/internal/config"
	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/util"
	"quizgen_gateway/pkg/logger"
	"quizgen_gateway/pkg/monitoring"

	"go.uber.org/zap"
)

// TaskStatusFetcher 查询一次远程任务状态
type TaskStatusFetcher interface {
	TaskStatus(ctx context.Context, taskID string) (*model.TaskStatusResponse, error)
}

type TaskStatusFetcherFunc func(ctx context.Context, taskID string) (*model.TaskStatusResponse, error)

func (f TaskStatusFetcherFunc) TaskStatus(ctx context.Context, taskID string) (*model.TaskStatusResponse, error) {
	return f(ctx, taskID)
}

// PollerSettings MaxWait、MaxChecks 为 0 表示不限制
type PollerSettings struct {
	Interval  time.Duration
	MaxWait   time.Duration
	MaxChecks int
}

const defaultPollInterval = 2 * time.Second

func PollerSettingsFromConfig(cfg config.PollingConfig) PollerSettings {
	return PollerSettings{
		Interval:  cfg.Interval(),
		MaxWait:   cfg.MaxWait(),
		MaxChecks: cfg.MaxChecks,
	}
}

type PollerOption func(*TaskPoller)

// WithProgress 非终态且带进度的响应回调，取消后不再调用
func WithProgress(fn func(model.TaskProgress)) PollerOption {
	return func(p *TaskPoller) {
		p.onProgress = fn
	}
}

// TaskPoller 固定间隔顺序轮询，同一任务不会有两个并发查询
type TaskPoller struct {
	fetcher    TaskStatusFetcher
	settings   PollerSettings
	onProgress func(model.TaskProgress)
}

func NewTaskPoller(fetcher TaskStatusFetcher, settings PollerSettings, opts ...PollerOption) *TaskPoller {
	if settings.Interval <= 0 {
		settings.Interval = defaultPollInterval
	}
	p := &TaskPoller{fetcher: fetcher, settings: settings}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type PollHandle struct {
	taskID    string
	cancelled chan struct{}
	once      sync.Once
	done      chan struct{}
	result    model.TaskResult
	err       error
}

// Cancel 停止后续查询；进行中的查询结果会被丢弃
func (h *PollHandle) Cancel() {
	h.once.Do(func() { close(h.cancelled) })
}

func (h *PollHandle) Done() <-chan struct{} {
	return h.done
}

// Result 阻塞直到轮询结束
func (h *PollHandle) Result() (model.TaskResult, error) {
	<-h.done
	return h.result, h.err
}

func (h *PollHandle) TaskID() string {
	return h.taskID
}

func (p *TaskPoller) Start(ctx context.Context, taskID string) *PollHandle {
	h := &PollHandle{
		taskID:    taskID,
		cancelled: make(chan struct{}),
		done:      make(chan struct{}),
	}
	go func() {
		defer close(h.done)
		h.result, h.err = p.run(ctx, taskID, h.cancelled)

		kind := string(h.result.Kind)
		if h.err != nil {
			kind = "error"
		}
		monitoring.TaskPollOutcomes.WithLabelValues(kind).Inc()
		logger.Log.Debug("Task polling finished",
			zap.String("taskId", taskID),
			zap.String("kind", kind),
			zap.Int("checks", h.result.Checks),
			zap.Error(h.err))
	}()
	return h
}

func (p *TaskPoller) Poll(ctx context.Context, taskID string) (model.TaskResult, error) {
	return p.Start(ctx, taskID).Result()
}

func stopped(ctx context.Context, cancelled <-chan struct{}) bool {
	select {
	case <-cancelled:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (p *TaskPoller) run(ctx context.Context, taskID string, cancelled <-chan struct{}) (model.TaskResult, error) {
	checks := 0
	result := func(kind model.TaskResultKind) model.TaskResult {
		return model.TaskResult{Kind: kind, Checks: checks}
	}

	var deadline <-chan time.Time
	if p.settings.MaxWait > 0 {
		dl := time.NewTimer(p.settings.MaxWait)
		defer dl.Stop()
		deadline = dl.C
	}

	timer := time.NewTimer(p.settings.Interval)
	defer timer.Stop()

	for {
		select {
		case <-cancelled:
			return result(model.TaskCancelled), nil
		case <-ctx.Done():
			return result(model.TaskCancelled), nil
		case <-deadline:
			return result(model.TaskTimedOut), nil
		case <-timer.C:
		}

		if stopped(ctx, cancelled) {
			return result(model.TaskCancelled), nil
		}

		checks++
		monitoring.TaskPollChecks.Inc()
		resp, err := p.fetcher.TaskStatus(ctx, taskID)

		// 取消后到达的结果直接丢弃
		if stopped(ctx, cancelled) {
			return result(model.TaskCancelled), nil
		}
		if err != nil {
			return result(""), fmt.Errorf("%w: task %s: %w", util.ErrTaskStatusCheck, taskID, err)
		}
		if resp == nil {
			return result(""), fmt.Errorf("%w: task %s: empty status response", util.ErrTaskStatusCheck, taskID)
		}

		if resp.Ready {
			if resp.Successful {
				r := result(model.TaskSucceeded)
				r.Value = resp.Value
				return r, nil
			}
			r := result(model.TaskFailed)
			r.Message = resp.FailureMessage()
			return r, nil
		}

		if resp.Progress != nil && p.onProgress != nil {
			p.onProgress(*resp.Progress)
		}

		if p.settings.MaxChecks > 0 && checks >= p.settings.MaxChecks {
			return result(model.TaskTimedOut), nil
		}

		timer.Reset(p.settings.Interval)
	}
}
