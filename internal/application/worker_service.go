package application

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
)

// WorkerService manages floor worker registration and availability
type WorkerService struct {
	deps ServiceDependencies
}

// NewWorkerService creates a new WorkerService
func NewWorkerService(deps ServiceDependencies) *WorkerService {
	return &WorkerService{deps: deps}
}

// RegisterWorker registers a new floor worker
func (s *WorkerService) RegisterWorker(ctx context.Context, cmd RegisterWorkerCommand) (*WorkerDTO, error) {
	roles := make([]domain.WorkerRole, 0, len(cmd.Roles))
	for _, raw := range cmd.Roles {
		role, err := domain.ParseWorkerRole(raw)
		if err != nil {
			return nil, errors.ErrValidation(err.Error())
		}
		roles = append(roles, role)
	}

	worker, err := domain.NewWorker(cmd.WorkerID, cmd.Name, roles)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	var dto *WorkerDTO
	err = s.deps.Tx.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.deps.Workers.Save(sessCtx, worker); err != nil {
			return err
		}
		dto = ToWorkerDTO(worker)
		return nil
	})
	if err != nil {
		appErr := toAppError(err)
		if appErr.HTTPStatus >= 500 {
			s.deps.Logger.WithError(err).Error("Failed to register worker", "workerId", cmd.WorkerID)
		}
		return nil, appErr
	}

	s.deps.Logger.Info("Worker registered", "workerId", cmd.WorkerID, "roles", cmd.Roles)
	return dto, nil
}

// SetWorkerActive puts a worker on or off the floor
func (s *WorkerService) SetWorkerActive(ctx context.Context, cmd SetWorkerActiveCommand) (*WorkerDTO, error) {
	var dto *WorkerDTO
	err := s.deps.Tx.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		worker, err := s.deps.Workers.FindByID(sessCtx, cmd.WorkerID)
		if err != nil {
			return err
		}
		if cmd.Active {
			worker.Activate()
		} else {
			worker.Deactivate()
		}
		if err := s.deps.Workers.Update(sessCtx, worker); err != nil {
			return err
		}
		dto = ToWorkerDTO(worker)
		return nil
	})
	if err != nil {
		return nil, toAppError(err)
	}
	return dto, nil
}

// GetWorker returns a single worker
func (s *WorkerService) GetWorker(ctx context.Context, query GetWorkerQuery) (*WorkerDTO, error) {
	worker, err := s.deps.Workers.FindByID(ctx, query.WorkerID)
	if err != nil {
		return nil, toAppError(err)
	}
	return ToWorkerDTO(worker), nil
}

// ListWorkers returns a page of workers
func (s *WorkerService) ListWorkers(ctx context.Context, query ListWorkersQuery) ([]*WorkerDTO, int64, error) {
	workers, total, err := s.deps.Workers.List(ctx, query.Page, query.PageSize)
	if err != nil {
		return nil, 0, toAppError(err)
	}
	dtos := make([]*WorkerDTO, 0, len(workers))
	for _, worker := range workers {
		dtos = append(dtos, ToWorkerDTO(worker))
	}
	return dtos, total, nil
}
