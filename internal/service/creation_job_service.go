package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/util"
	"quizgen_gateway/pkg/logger"
	"quizgen_gateway/pkg/monitoring"

	"go.uber.org/zap"
)

type jobEntry struct {
	job         model.CreationJob
	handle      *PollHandle
	cancelRun   context.CancelFunc
	subscribers map[chan model.CreationJob]struct{}
}

// CreationJobService 在后台执行测验生成，一个任务对应一个 job
type CreationJobService struct {
	creation     *QuizCreationService
	api          CreationAPI
	storage      *StorageService
	exposeDetail bool

	mu       sync.Mutex
	jobs     map[string]*jobEntry
	settings PollerSettings

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
	now  func() time.Time
}

func NewCreationJobService(creation *QuizCreationService, api CreationAPI, storage *StorageService, settings PollerSettings, exposeDetail bool) *CreationJobService {
	ctx, stop := context.WithCancel(context.Background())
	return &CreationJobService{
		creation:     creation,
		api:          api,
		storage:      storage,
		exposeDetail: exposeDetail,
		jobs:         make(map[string]*jobEntry),
		settings:     settings,
		ctx:          ctx,
		stop:         stop,
		now:          time.Now,
	}
}

// UpdateSettings 仅影响之后开始的轮询
func (s *CreationJobService) UpdateSettings(settings PollerSettings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}

func (s *CreationJobService) Settings() PollerSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Start 同步校验参数，校验失败不会产生 job 也不会访问远程服务
func (s *CreationJobService) Start(identity *model.Identity, params model.CreateQuizParams) (*model.CreationJob, error) {
	if identity == nil {
		return nil, util.ErrUnauthorized
	}
	if err := s.creation.Validate(&params); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(s.ctx)
	entry := &jobEntry{
		job: model.CreationJob{
			ID:        model.GenerateUUID(),
			OwnerID:   identity.ID,
			SubjectID: params.Subject.ID,
			Title:     params.Title,
			Status:    model.JobSubmitting,
			Loading:   true,
		},
		cancelRun:   cancel,
		subscribers: make(map[chan model.CreationJob]struct{}),
	}
	entry.job.Touch(s.now())

	s.mu.Lock()
	s.jobs[entry.job.ID] = entry
	snapshot := entry.job
	s.mu.Unlock()

	logger.Log.Info("Quiz creation job started",
		zap.String("jobId", snapshot.ID),
		zap.String("owner", identity.ID.String()),
		zap.String("title", params.Title))

	s.wg.Add(1)
	go s.run(runCtx, cancel, snapshot.ID, identity, params)

	return &snapshot, nil
}

func (s *CreationJobService) run(ctx context.Context, cancel context.CancelFunc, jobID string, identity *model.Identity, params model.CreateQuizParams) {
	defer s.wg.Done()
	defer cancel()

	if s.storage.Enabled() {
		urls, err := s.storage.ArchiveMaterials(ctx, identity.ID, jobID, params.Files)
		if err != nil {
			logger.Log.Warn("Failed to archive study material", zap.String("jobId", jobID), zap.Error(err))
		} else {
			s.update(jobID, func(j *model.CreationJob) { j.Archived = urls })
		}
	}

	taskID, subjectID, err := s.creation.Submit(ctx, identity, params)
	if err != nil {
		if ctx.Err() != nil {
			s.finishCancelled(jobID)
			return
		}
		s.fail(jobID, err)
		return
	}

	poller := NewTaskPoller(
		TaskStatusFetcherFunc(func(ctx context.Context, id string) (*model.TaskStatusResponse, error) {
			return s.api.TaskStatus(ctx, identity.Token, id)
		}),
		s.Settings(),
		WithProgress(func(p model.TaskProgress) {
			s.update(jobID, func(j *model.CreationJob) { j.Progress = &p })
		}),
	)

	s.mu.Lock()
	entry, ok := s.jobs[jobID]
	if !ok || entry.job.Status.Terminal() {
		s.mu.Unlock()
		return
	}
	handle := poller.Start(ctx, taskID)
	entry.handle = handle
	entry.job.TaskID = taskID
	entry.job.SubjectID = subjectID
	entry.job.Status = model.JobPolling
	entry.job.Touch(s.now())
	s.publishLocked(entry)
	s.mu.Unlock()

	result, err := handle.Result()
	if err != nil {
		s.fail(jobID, err)
		return
	}
	s.finish(jobID, s.creation.InterpretResult(result))
}

// update 修改非终态 job 并推送快照
func (s *CreationJobService) update(jobID string, fn func(j *model.CreationJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.jobs[jobID]
	if !ok || entry.job.Status.Terminal() {
		return
	}
	fn(&entry.job)
	entry.job.Touch(s.now())
	s.publishLocked(entry)
}

// terminate 进入终态，Loading 一律清除；已终态时丢弃（取消后到达的结果）
func (s *CreationJobService) terminate(jobID string, fn func(j *model.CreationJob)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.jobs[jobID]
	if !ok || entry.job.Status.Terminal() {
		return false
	}
	fn(&entry.job)
	entry.job.Loading = false
	entry.job.Touch(s.now())
	s.publishLocked(entry)
	return true
}

func (s *CreationJobService) finish(jobID string, outcome model.CreationOutcome) {
	if outcome.Kind == model.OutcomeCancelled {
		s.finishCancelled(jobID)
		return
	}
	applied := s.terminate(jobID, func(j *model.CreationJob) {
		j.Status = model.JobDone
		j.Outcome = &outcome
	})
	if !applied {
		return
	}
	monitoring.QuizCreationOutcomes.WithLabelValues(string(outcome.Kind)).Inc()
	logger.Log.Info("Quiz creation job finished",
		zap.String("jobId", jobID),
		zap.String("outcome", string(outcome.Kind)),
		zap.String("quizId", outcome.QuizID.String()),
		zap.Int("ungenerated", outcome.UngeneratedCount))
}

func (s *CreationJobService) finishCancelled(jobID string) {
	outcome := model.CreationOutcome{Kind: model.OutcomeCancelled, Message: "Quiz creation was cancelled"}
	if s.terminate(jobID, func(j *model.CreationJob) {
		j.Status = model.JobCancelled
		j.Outcome = &outcome
	}) {
		monitoring.QuizCreationOutcomes.WithLabelValues(string(outcome.Kind)).Inc()
		logger.Log.Info("Quiz creation job cancelled", zap.String("jobId", jobID))
	}
}

func errorKind(err error) string {
	var verr *util.ValidationError
	switch {
	case errors.As(err, &verr):
		return util.KindValidation
	case errors.Is(err, util.ErrUnauthorized):
		return util.KindCredentials
	case errors.Is(err, util.ErrNotFound):
		return util.KindNotFound
	case errors.Is(err, util.ErrTaskStatusCheck), errors.Is(err, util.ErrRemote):
		return util.KindServer
	default:
		return util.KindInternal
	}
}

func (s *CreationJobService) fail(jobID string, err error) {
	kind := errorKind(err)
	message := "Quiz creation failed"
	if s.exposeDetail {
		message = err.Error()
	}
	if s.terminate(jobID, func(j *model.CreationJob) {
		j.Status = model.JobFailed
		j.ErrorKind = kind
		j.Error = message
	}) {
		monitoring.QuizCreationOutcomes.WithLabelValues("error").Inc()
		logger.Log.Error("Quiz creation job failed",
			zap.String("jobId", jobID),
			zap.String("kind", kind),
			zap.Error(err))
	}
}

// publishLocked 每个订阅者只保留最新快照；终态快照发送后关闭通道
func (s *CreationJobService) publishLocked(entry *jobEntry) {
	snapshot := entry.job
	for ch := range entry.subscribers {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
		if snapshot.Status.Terminal() {
			close(ch)
			delete(entry.subscribers, ch)
		}
	}
}

func (s *CreationJobService) lookupLocked(owner model.RemoteID, jobID string) (*jobEntry, error) {
	entry, ok := s.jobs[jobID]
	if !ok || entry.job.OwnerID != owner {
		return nil, util.ErrNotFound
	}
	return entry, nil
}

func (s *CreationJobService) Get(owner model.RemoteID, jobID string) (*model.CreationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.lookupLocked(owner, jobID)
	if err != nil {
		return nil, err
	}
	snapshot := entry.job
	return &snapshot, nil
}

// Cancel 立即进入 cancelled 状态；正在进行的查询允许完成但结果被丢弃
func (s *CreationJobService) Cancel(owner model.RemoteID, jobID string) (*model.CreationJob, error) {
	s.mu.Lock()
	entry, err := s.lookupLocked(owner, jobID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	handle := entry.handle
	terminal := entry.job.Status.Terminal()
	s.mu.Unlock()

	if !terminal {
		if handle != nil {
			handle.Cancel()
		} else {
			// 仍在提交阶段，中止请求
			entry.cancelRun()
		}
		s.finishCancelled(jobID)
	}
	return s.Get(owner, jobID)
}

// Subscribe 立即收到当前快照，之后每次变化推送一次，终态后通道关闭
func (s *CreationJobService) Subscribe(owner model.RemoteID, jobID string) (<-chan model.CreationJob, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.lookupLocked(owner, jobID)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan model.CreationJob, 1)
	ch <- entry.job
	if entry.job.Status.Terminal() {
		close(ch)
		return ch, func() {}, nil
	}
	entry.subscribers[ch] = struct{}{}

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := entry.subscribers[ch]; ok {
			delete(entry.subscribers, ch)
			close(ch)
		}
	}
	return ch, unsubscribe, nil
}

// Evict 删除结束超过 retention 的 job
func (s *CreationJobService) Evict(retention time.Duration) int {
	cutoff := s.now().Add(-retention)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, entry := range s.jobs {
		if entry.job.Status.Terminal() && entry.job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			n++
		}
	}
	return n
}

// Shutdown 取消所有后台 job 并等待退出
func (s *CreationJobService) Shutdown(ctx context.Context) error {
	s.stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
