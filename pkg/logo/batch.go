package logo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/logo-objects/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrUnsupportedOperationType = errors.New("unsupported operation type")
	ErrMissingEntityID          = errors.New("operation requires an entity id")
	ErrMissingActionName        = errors.New("action operation requires an action name")
)

// BatchOperationType names what a BatchOperation does.
type BatchOperationType string

const (
	BatchGetAll BatchOperationType = "getAll"
	BatchGet    BatchOperationType = "get"
	BatchCreate BatchOperationType = "create"
	BatchUpdate BatchOperationType = "update"
	BatchPatch  BatchOperationType = "patch"
	BatchDelete BatchOperationType = "delete"
	BatchAction BatchOperationType = "action"
)

// BatchOperation represents a single operation in a batch.
type BatchOperation struct {
	ID       string
	Type     BatchOperationType
	Entity   string
	EntityID string
	Data     interface{}
	Query    *QueryOptions
	Action   string
	Method   Method
	Params   ActionParams
	Callback func(result *BatchResult)
}

// BatchResult represents the result of a batch operation.
type BatchResult struct {
	ID       string
	Success  bool
	Data     interface{}
	Error    error
	Duration time.Duration
}

// BatchExecutor runs independent operations concurrently against a Client.
type BatchExecutor struct {
	client      Client
	concurrency int
	timeout     time.Duration
}

// NewBatchExecutor creates a new batch executor.
func NewBatchExecutor(client Client, concurrency int) *BatchExecutor {
	if concurrency <= 0 {
		concurrency = constants.DefaultConcurrencyLimit
	}

	if concurrency > constants.MaxConcurrencyLimit {
		concurrency = constants.MaxConcurrencyLimit
	}

	return &BatchExecutor{
		client:      client,
		concurrency: concurrency,
		timeout:     constants.DefaultHTTPTimeout,
	}
}

// SetTimeout sets the per-operation timeout. Zero or less disables it.
func (b *BatchExecutor) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// Execute runs a batch of operations. Results keep the order of operations;
// a failing operation never stops the others.
func (b *BatchExecutor) Execute(ctx context.Context, operations []BatchOperation) ([]BatchResult, error) {
	results := make([]BatchResult, len(operations))

	var waitGroup sync.WaitGroup

	semaphore := make(chan struct{}, b.concurrency)

	for index, operation := range operations {
		waitGroup.Add(1)

		go func(index int, operation BatchOperation) {
			defer waitGroup.Done()

			var result *BatchResult

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()

				start := time.Now()
				result = b.runWithTimeout(ctx, operation)
				result.Duration = time.Since(start)
			case <-ctx.Done():
				result = &BatchResult{
					ID:    operation.ID,
					Error: fmt.Errorf("%w: %s %s not started", ctx.Err(), operation.Type, operation.Entity),
				}
			}

			results[index] = *result

			if operation.Callback != nil {
				operation.Callback(result)
			}
		}(index, operation)
	}

	waitGroup.Wait()

	return results, nil
}

func (b *BatchExecutor) runWithTimeout(ctx context.Context, operation BatchOperation) *BatchResult {
	if b.timeout <= 0 {
		return b.executeOperation(ctx, operation)
	}

	opCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	return b.executeOperation(opCtx, operation)
}

func (b *BatchExecutor) executeOperation(ctx context.Context, operation BatchOperation) *BatchResult {
	result := &BatchResult{ID: operation.ID}

	entity, err := b.client.Entity(operation.Entity)
	if err != nil {
		result.Error = err

		return result
	}

	result.Data, result.Error = runOperation(ctx, entity, operation)
	result.Success = result.Error == nil

	return result
}

func runOperation(ctx context.Context, entity EntityClient, operation BatchOperation) (interface{}, error) {
	needsID := operation.Type == BatchGet || operation.Type == BatchUpdate ||
		operation.Type == BatchPatch || operation.Type == BatchDelete
	if needsID && operation.EntityID == "" {
		return nil, fmt.Errorf("%w: %s %s", ErrMissingEntityID, operation.Type, operation.Entity)
	}

	switch operation.Type {
	case BatchGetAll:
		return entity.GetAll(ctx, operation.Query)
	case BatchGet:
		return entity.GetByID(ctx, operation.EntityID, operation.Query)
	case BatchCreate:
		return entity.Create(ctx, operation.Data)
	case BatchUpdate:
		return entity.Update(ctx, operation.EntityID, operation.Data)
	case BatchPatch:
		return entity.Patch(ctx, operation.EntityID, operation.Data)
	case BatchDelete:
		return nil, entity.Delete(ctx, operation.EntityID)
	case BatchAction:
		if operation.Action == "" {
			return nil, ErrMissingActionName
		}

		method := operation.Method
		if method == "" {
			method = MethodPost
		}

		return entity.Invoke(ctx, operation.Action, method, operation.Params)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperationType, operation.Type)
	}
}

// FailedResults returns the results that did not succeed.
func FailedResults(results []BatchResult) []BatchResult {
	failed := make([]BatchResult, 0)

	for _, result := range results {
		if !result.Success {
			failed = append(failed, result)
		}
	}

	return failed
}
