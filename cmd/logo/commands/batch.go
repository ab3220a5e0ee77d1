package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/logo-objects/internal/constants"
	"github.com/fivetwenty-io/logo-objects/pkg/logo"
)

// batchFile is the document read by 'logo batch'. A bare list of
// operations is accepted as well.
type batchFile struct {
	Operations []batchFileOperation `json:"operations" yaml:"operations"`
}

type batchFileOperation struct {
	ID       string                 `json:"id"        yaml:"id"`
	Type     string                 `json:"type"      yaml:"type"`
	Entity   string                 `json:"entity"    yaml:"entity"`
	EntityID string                 `json:"entity_id" yaml:"entity_id"`
	Data     interface{}            `json:"data"      yaml:"data"`
	Query    string                 `json:"query"     yaml:"query"`
	Action   string                 `json:"action"    yaml:"action"`
	Method   string                 `json:"method"    yaml:"method"`
	Params   map[string]interface{} `json:"params"    yaml:"params"`
}

type batchOutcome struct {
	ID       string      `json:"id"              yaml:"id"`
	Success  bool        `json:"success"         yaml:"success"`
	Duration string      `json:"duration"        yaml:"duration"`
	Error    string      `json:"error,omitempty" yaml:"error,omitempty"`
	Data     interface{} `json:"data,omitempty"  yaml:"data,omitempty"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand() *cobra.Command {
	var (
		concurrency int
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Run operations from a YAML or JSON file concurrently",
		Long: `Run independent operations concurrently. Each operation has a type
(getAll, get, create, update, patch, delete, action), an entity and, depending
on the type, entity_id, data, query, action, method and params.`,
		Example: `  # ops.yml
  operations:
    - {id: one, type: get, entity: items, entity_id: "42"}
    - {type: getAll, entity: arps, query: "limit=5&fields=CODE,TITLE"}
    - {type: action, entity: arps, action: GetRiskInfo, params: {code: "320.01"}}

  logo batch ops.yml --concurrency 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// args[0] is an explicit command line argument
			// #nosec G304
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read batch file: %w", err)
			}

			operations, err := parseBatchFile(data)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			logoClient, err := CreateClientWithAPI(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = logoClient.Close() }()

			executor := logo.NewBatchExecutor(logoClient, concurrency)
			if timeout > 0 {
				executor.SetTimeout(timeout)
			}

			results, err := executor.Execute(ctx, operations)
			if err != nil {
				return fmt.Errorf("batch execution failed: %w", err)
			}

			err = printBatchResults(newPrinter(cmd), results)
			if err != nil {
				return err
			}

			if failed := logo.FailedResults(results); len(failed) > 0 {
				return fmt.Errorf("%w: %d of %d", constants.ErrBatchHadFailures, len(failed), len(results))
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", constants.DefaultConcurrencyLimit, "operations run at the same time")
	cmd.Flags().DurationVar(&timeout, "op-timeout", 0, "timeout of each operation")

	return cmd
}

func parseBatchFile(data []byte) ([]logo.BatchOperation, error) {
	var file batchFile

	err := yaml.Unmarshal(data, &file)
	if err != nil {
		var list []batchFileOperation

		listErr := yaml.Unmarshal(data, &list)
		if listErr != nil {
			return nil, fmt.Errorf("failed to parse batch file: %w", err)
		}

		file.Operations = list
	}

	if len(file.Operations) == 0 {
		return nil, constants.ErrNoBatchOperations
	}

	operations := make([]logo.BatchOperation, 0, len(file.Operations))

	for index, entry := range file.Operations {
		operation := logo.BatchOperation{
			ID:       entry.ID,
			Type:     logo.BatchOperationType(entry.Type),
			Entity:   entry.Entity,
			EntityID: entry.EntityID,
			Data:     entry.Data,
			Action:   entry.Action,
			Params:   logo.ActionParams(entry.Params),
		}

		if operation.ID == "" {
			operation.ID = "op-" + strconv.Itoa(index+1)
		}

		if entry.Query != "" {
			query, err := logo.ParseQueryString(entry.Query)
			if err != nil {
				return nil, fmt.Errorf("operation %s: %w", operation.ID, err)
			}

			operation.Query = query
		}

		if entry.Method != "" {
			method, err := logo.ParseMethod(entry.Method)
			if err != nil {
				return nil, fmt.Errorf("operation %s: %w", operation.ID, err)
			}

			operation.Method = method
		}

		operations = append(operations, operation)
	}

	return operations, nil
}

func printBatchResults(out *printer, results []logo.BatchResult) error {
	outcomes := make([]batchOutcome, 0, len(results))

	for _, result := range results {
		outcome := batchOutcome{
			ID:       result.ID,
			Success:  result.Success,
			Duration: result.Duration.Round(time.Millisecond).String(),
			Data:     result.Data,
		}

		if result.Error != nil {
			outcome.Error = result.Error.Error()
		}

		outcomes = append(outcomes, outcome)
	}

	if out.format != constants.FormatTable {
		return out.Value(outcomes)
	}

	rows := make([][]string, 0, len(outcomes))

	for _, outcome := range outcomes {
		status := "ok"
		if !outcome.Success {
			status = "failed"
		}

		rows = append(rows, []string{outcome.ID, status, outcome.Duration, outcome.Error})
	}

	return out.Table([]string{"ID", "Status", "Duration", "Error"}, rows)
}
