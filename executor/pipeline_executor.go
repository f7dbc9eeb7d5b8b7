package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/closeloop/actionpipe/logger"
	"github.com/closeloop/actionpipe/model"
	"github.com/closeloop/actionpipe/pipeline"
	"github.com/closeloop/actionpipe/util"
	"github.com/spaolacci/murmur3"
	"go.uber.org/zap"
)

var _ Executor = new(PipelineExecutor)

// PipelineExecutor processes queued pipeline requests on a pool of workers.
// Requests are partitioned across the pool by opportunity id, so actions
// against the same opportunity never interleave while unrelated
// opportunities proceed in parallel.
type PipelineExecutor struct {
	orchestrator *pipeline.Orchestrator
	poolSize     int
	capacity     int
	workers      []*util.Worker[*model.PipelineRequest]
	wg           *sync.WaitGroup
}

func NewPipelineExecutor(orchestrator *pipeline.Orchestrator, poolSize int, capacity int, wg *sync.WaitGroup) *PipelineExecutor {
	if poolSize < 1 {
		poolSize = 1
	}
	return &PipelineExecutor{
		orchestrator: orchestrator,
		poolSize:     poolSize,
		capacity:     capacity,
		wg:           wg,
	}
}

func (ex *PipelineExecutor) handler(req *model.PipelineRequest) error {
	report := ex.orchestrator.Process(context.Background(), req)
	logger.Info("pipeline run finished",
		zap.String("action", report.MainActionId),
		zap.String("status", string(report.MainStatus)),
		zap.Int("inconsistencies", len(report.Inconsistencies)))
	return nil
}

func (ex *PipelineExecutor) Start() error {
	ex.workers = make([]*util.Worker[*model.PipelineRequest], ex.poolSize)
	for i := range ex.workers {
		ex.workers[i] = util.NewWorker(fmt.Sprintf("pipeline-executor-%d", i), ex.wg, ex.handler, ex.capacity)
		ex.workers[i].Start()
	}
	logger.Info("pipeline executor started", zap.Int("workers", ex.poolSize))
	return nil
}

func (ex *PipelineExecutor) Stop() error {
	for _, w := range ex.workers {
		w.Stop()
	}
	return nil
}

func (ex *PipelineExecutor) Name() string {
	return "pipeline-executor"
}

func (ex *PipelineExecutor) Enqueue(req *model.PipelineRequest) {
	ex.workers[ex.workerIndex(req)].Sender() <- req
}

func (ex *PipelineExecutor) workerIndex(req *model.PipelineRequest) int {
	return int(murmur3.Sum64([]byte(req.Action.OpportunityId)) % uint64(ex.poolSize))
}

// Process runs one request synchronously, bypassing the queue. The REST
// surface uses it for callers that want the run report back.
func (ex *PipelineExecutor) Process(ctx context.Context, req *model.PipelineRequest) *pipeline.RunReport {
	return ex.orchestrator.Process(ctx, req)
}
