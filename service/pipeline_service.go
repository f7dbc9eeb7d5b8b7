package service

import (
	"context"
	"fmt"

	"github.com/closeloop/actionpipe/config"
	"github.com/closeloop/actionpipe/executor"
	"github.com/closeloop/actionpipe/logger"
	"github.com/closeloop/actionpipe/model"
	"github.com/closeloop/actionpipe/pipeline"
	"github.com/closeloop/actionpipe/registry"
	"go.uber.org/zap"
)

// PipelineService is the entry point for proposed actions arriving from the
// decision layer.
type PipelineService struct {
	registry *registry.Registry
	executor *executor.PipelineExecutor
	conf     config.Config
}

func NewPipelineService(reg *registry.Registry, ex *executor.PipelineExecutor, conf config.Config) *PipelineService {
	return &PipelineService{
		registry: reg,
		executor: ex,
		conf:     conf,
	}
}

// ProcessAction runs one proposed action graph synchronously and returns the
// run report.
func (s *PipelineService) ProcessAction(ctx context.Context, req *model.PipelineRequest) (*pipeline.RunReport, error) {
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}
	logger.Info("processing action",
		zap.String("action", req.Action.Id),
		zap.String("type", string(req.Action.Type)),
		zap.String("opportunity", req.Action.OpportunityId))
	return s.executor.Process(ctx, req), nil
}

// EnqueueAction queues a proposed action graph for asynchronous processing.
func (s *PipelineService) EnqueueAction(req *model.PipelineRequest) error {
	if err := s.checkRequest(req); err != nil {
		return err
	}
	s.executor.Enqueue(req)
	return nil
}

func (s *PipelineService) checkRequest(req *model.PipelineRequest) error {
	if req == nil || req.Action == nil {
		return fmt.Errorf("request carries no action")
	}
	if req.Action.Id == "" {
		return fmt.Errorf("action has no id")
	}
	if req.Context == nil || req.Context.Opportunity == nil {
		return fmt.Errorf("request carries no opportunity context")
	}
	return nil
}

// Types lists every registered action type.
func (s *PipelineService) Types() []model.ActionType {
	return s.registry.Types()
}

// OfferableTypes lists the registered types minus the hidden set, the
// enumeration surfaced to downstream proposers.
func (s *PipelineService) OfferableTypes() []model.ActionType {
	handlers := s.registry.List(s.conf.HiddenTypeSet())
	types := make([]model.ActionType, 0, len(handlers))
	for _, h := range handlers {
		types = append(types, h.Type())
	}
	return types
}
