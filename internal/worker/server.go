package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/ayushanand27/xhire/internal/tasks"
)

// Config configures the task server and its periodic schedule.
type Config struct {
	Concurrency int
	// SweepSchedule is a cron expression or "@every" interval for both room sweeps.
	// Empty disables the scheduler.
	SweepSchedule string
	Sweep         SweepConfig
}

// Dependencies are the collaborators the task handlers call into.
type Dependencies struct {
	Activity ActivityRecorder
	Rooms    RoomSweeper
	Video    ChannelDeleter
}

// WorkerServer runs the asynq task server and the sweep scheduler.
type WorkerServer struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	cfg       Config
	log       *logrus.Entry
}

func NewWorkerServer(redisOpt asynq.RedisConnOpt, deps Dependencies, cfg Config, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			tasks.QueueCritical: 6,
			tasks.QueueDefault:  3,
			tasks.QueueLow:      1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retry, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			taskLogger(ctx, task).WithFields(logrus.Fields{
				"retries":   retry,
				"max_retry": maxRetry,
			}).WithError(err).Error("Task failed")
		}),
		Logger: logEntry,
	})

	var scheduler *asynq.Scheduler
	if cfg.SweepSchedule != "" {
		scheduler = asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Logger: logEntry})
	}

	return &WorkerServer{
		server:    server,
		scheduler: scheduler,
		mux:       NewServeMux(deps, cfg.Sweep),
		cfg:       cfg,
		log:       logEntry,
	}
}

// NewServeMux routes every task type to its handler.
func NewServeMux(deps Dependencies, sweep SweepConfig) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeActivityRecord, NewActivityRecordHandler(deps.Activity))
	sweeper := NewRoomSweepHandler(deps.Rooms, sweep)
	mux.HandleFunc(tasks.TypeRoomExpirySweep, sweeper.ProcessExpired)
	mux.HandleFunc(tasks.TypeRoomArchiveInactive, sweeper.ProcessInactive)
	mux.Handle(tasks.TypeVideoChannelCleanup, NewChannelCleanupHandler(deps.Video))
	return mux
}

// Start runs the server and the scheduler. It returns once both are started.
func (ws *WorkerServer) Start() error {
	if ws.scheduler != nil {
		for _, task := range []*asynq.Task{tasks.NewRoomExpirySweepTask(), tasks.NewRoomArchiveTask()} {
			entryID, err := ws.scheduler.Register(ws.cfg.SweepSchedule, task)
			if err != nil {
				return err
			}
			ws.log.WithFields(logrus.Fields{"task_type": task.Type(), "entry_id": entryID, "schedule": ws.cfg.SweepSchedule}).
				Info("Periodic task registered")
		}
		if err := ws.scheduler.Start(); err != nil {
			return err
		}
	}
	if err := ws.server.Start(ws.mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
		return err
	}
	ws.log.Info("Worker server started")
	return nil
}

// Shutdown stops the scheduler, then waits for in-flight tasks.
func (ws *WorkerServer) Shutdown() {
	if ws.scheduler != nil {
		ws.scheduler.Shutdown()
	}
	ws.server.Shutdown()
	ws.log.Info("Worker server stopped")
}
