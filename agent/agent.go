package agent

import (
	"sync"
	"time"

	"github.com/closeloop/actionpipe/config"
	"github.com/closeloop/actionpipe/container"
	"github.com/closeloop/actionpipe/executor"
	"github.com/closeloop/actionpipe/logger"
	"github.com/closeloop/actionpipe/pipeline"
	"github.com/closeloop/actionpipe/rest"
	"github.com/closeloop/actionpipe/service"
)

type Agent struct {
	Config           config.Config
	container        *container.DIContiner
	orchestrator     *pipeline.Orchestrator
	pipelineExecutor *executor.PipelineExecutor
	pipelineService  *service.PipelineService
	httpServer       *rest.Server
	shutdown         bool
	shutdowns        chan struct{}
	shutdownLock     sync.Mutex
	wg               sync.WaitGroup
}

func New(config config.Config) (*Agent, error) {
	a := &Agent{
		Config:    config,
		shutdowns: make(chan struct{}),
	}
	setup := []func() error{
		a.setupContainer,
		a.setupOrchestrator,
		a.setupPipelineExecutor,
		a.setupPipelineService,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupContainer() error {
	a.container = container.NewDiContainer()
	return a.container.Init(a.Config)
}

func (a *Agent) setupOrchestrator() error {
	a.orchestrator = pipeline.NewOrchestrator(
		a.container.GetRegistry(),
		a.container.GetStore(),
		a.container.GetAuditTrail(),
		time.Duration(a.Config.ComposeTimeoutSeconds)*time.Second,
		time.Duration(a.Config.StoreTimeoutSeconds)*time.Second,
	)
	return nil
}

func (a *Agent) setupPipelineExecutor() error {
	a.pipelineExecutor = executor.NewPipelineExecutor(a.orchestrator, a.Config.ExecutorWorkers, a.Config.ExecutorCapacity, &a.wg)
	return a.pipelineExecutor.Start()
}

func (a *Agent) setupPipelineService() error {
	a.pipelineService = service.NewPipelineService(a.container.GetRegistry(), a.pipelineExecutor, a.Config)
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.pipelineService)
	if err != nil {
		return err
	}
	return nil
}

func (a *Agent) Start() error {
	go func() {
		if err := a.httpServer.Start(); err != nil {
			_ = a.Shutdown()
			panic(err)
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	close(a.shutdowns)

	shutdown := []func() error{
		a.pipelineExecutor.Stop,
		a.httpServer.Stop,
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	return nil
}
