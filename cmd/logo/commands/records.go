package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/logo-objects/pkg/logo"
)

// withEntity opens a client for the selected API and runs fn against the
// named entity.
func withEntity(cmd *cobra.Command, name string, fn func(ctx context.Context, entity logo.EntityClient) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logoClient, err := CreateClientWithAPI(ctx)
	if err != nil {
		return err
	}

	defer func() { _ = logoClient.Close() }()

	entity, err := logoClient.Entity(name)
	if err != nil {
		return err
	}

	return fn(ctx, entity)
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	var (
		query    queryFlags
		all      bool
		pageSize int
		maxPages int
	)

	cmd := &cobra.Command{
		Use:   "list ENTITY",
		Short: "List records of an entity",
		Long:  "List records with paging, field selection, sorting and filtering. --all follows every page.",
		Example: `  logo list items --limit 10 --sort CODE --desc
  logo list arps --fields CODE,TITLE --filter "CITY eq 'Ankara'" --count
  logo list items --all --output xlsx --output-file items.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := query.options(cmd)
			out := newPrinter(cmd)

			return withEntity(cmd, args[0], func(ctx context.Context, entity logo.EntityClient) error {
				if all {
					records, err := logo.FetchAllPages[logo.Record](ctx, entity, opts, &logo.PaginationOptions{
						PageSize: pageSize,
						MaxPages: maxPages,
					})
					truncated := errors.Is(err, logo.ErrMaxPagesReached)
					if err != nil && !truncated {
						return fmt.Errorf("failed to list %s: %w", entity.Name(), err)
					}

					err = out.Records(entity.Name(), records, query.fields, nil)
					if err != nil {
						return err
					}

					if truncated {
						newLogger().Warn("listing stopped at --max-pages", map[string]interface{}{
							"entity":  entity.Name(),
							"records": len(records),
						})
					}

					return nil
				}

				list, err := entity.GetAll(ctx, opts)
				if err != nil {
					return fmt.Errorf("failed to list %s: %w", entity.Name(), err)
				}

				return out.Records(entity.Name(), list.Data, query.fields, list.TotalCount)
			})
		},
	}

	query.register(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "page size used with --all")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after this many pages with --all")

	return cmd
}

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	var (
		fields []string
		expand []string
	)

	cmd := &cobra.Command{
		Use:   "get ENTITY ID",
		Short: "Get a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := logo.NewQueryOptions()
			if len(fields) > 0 {
				opts.WithFields(fields...)
			}

			if len(expand) > 0 {
				opts.WithExpand(expand...)
			}

			out := newPrinter(cmd)

			return withEntity(cmd, args[0], func(ctx context.Context, entity logo.EntityClient) error {
				record, err := entity.GetByID(ctx, args[1], opts)
				if err != nil {
					return fmt.Errorf("failed to get %s %s: %w", entity.Name(), args[1], err)
				}

				return out.Value(record)
			})
		},
	}

	cmd.Flags().StringSliceVar(&fields, "fields", nil, "fields to return")
	cmd.Flags().StringSliceVar(&expand, "expand", nil, "relations to expand")

	return cmd
}

// NewCreateCommand creates the create command.
func NewCreateCommand() *cobra.Command {
	var data, dataFile string

	cmd := &cobra.Command{
		Use:     "create ENTITY",
		Short:   "Create a record",
		Example: `  logo create items --data '{"CODE":"HDD-1","NAME":"Disk"}'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readData(data, dataFile, cmd.InOrStdin())
			if err != nil {
				return err
			}

			out := newPrinter(cmd)

			return withEntity(cmd, args[0], func(ctx context.Context, entity logo.EntityClient) error {
				record, err := entity.Create(ctx, body)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", entity.Name(), err)
				}

				return out.Value(record)
			})
		},
	}

	addDataFlags(cmd, &data, &dataFile)

	return cmd
}

// NewUpdateCommand creates the update command, which replaces a record.
func NewUpdateCommand() *cobra.Command {
	return newWriteCommand("update", "Replace a record", func(ctx context.Context, entity logo.EntityClient, id string, body interface{}) (logo.Record, error) {
		return entity.Update(ctx, id, body)
	})
}

// NewPatchCommand creates the patch command, which changes some fields.
func NewPatchCommand() *cobra.Command {
	return newWriteCommand("patch", "Change fields of a record", func(ctx context.Context, entity logo.EntityClient, id string, body interface{}) (logo.Record, error) {
		return entity.Patch(ctx, id, body)
	})
}

func newWriteCommand(name, short string, write func(ctx context.Context, entity logo.EntityClient, id string, body interface{}) (logo.Record, error)) *cobra.Command {
	var data, dataFile string

	cmd := &cobra.Command{
		Use:   name + " ENTITY ID",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readData(data, dataFile, cmd.InOrStdin())
			if err != nil {
				return err
			}

			out := newPrinter(cmd)

			return withEntity(cmd, args[0], func(ctx context.Context, entity logo.EntityClient) error {
				record, err := write(ctx, entity, args[1], body)
				if err != nil {
					return fmt.Errorf("failed to %s %s %s: %w", name, entity.Name(), args[1], err)
				}

				return out.Value(record)
			})
		},
	}

	addDataFlags(cmd, &data, &dataFile)

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ENTITY ID",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEntity(cmd, args[0], func(ctx context.Context, entity logo.EntityClient) error {
				err := entity.Delete(ctx, args[1])
				if err != nil {
					return fmt.Errorf("failed to delete %s %s: %w", entity.Name(), args[1], err)
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", entity.Name(), args[1])

				return nil
			})
		},
	}
}

// NewSearchCommand creates the search command.
func NewSearchCommand() *cobra.Command {
	var (
		query  queryFlags
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "search ENTITY KEY=VALUE...",
		Short: "Search records by catalog search keys",
		Long: `Search records with prefix matches on the entity's search keys.
Criteria are combined with "and"; use 'logo entities describe ENTITY' to list the keys.`,
		Example: `  logo search arps title=ACME city=Ankara
  logo search items code=HDD --fields CODE,NAME --dry-run`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseKeyValues(args[1:])
			if err != nil {
				return err
			}

			criteria := logo.SearchCriteria(values)
			opts := query.options(cmd)
			out := newPrinter(cmd)

			return withEntity(cmd, args[0], func(ctx context.Context, entity logo.EntityClient) error {
				if dryRun {
					q, ok, err := entity.BuildSearchQuery(criteria)
					if err != nil {
						return err
					}

					if ok {
						_, _ = fmt.Fprintln(cmd.OutOrStdout(), q)
					}

					return nil
				}

				list, err := entity.Search(ctx, criteria, opts)
				if err != nil {
					return fmt.Errorf("failed to search %s: %w", entity.Name(), err)
				}

				return out.Records(entity.Name(), list.Data, query.fields, list.TotalCount)
			})
		},
	}

	query.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the filter expression without searching")

	return cmd
}

// NewActionCommand creates the action command.
func NewActionCommand() *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "action ENTITY ACTION [KEY=VALUE|KEY:=JSON]...",
		Short: "Invoke a vendor action",
		Long: `Invoke a vendor action of an entity. Without --method the first method
the action accepts is used. GET parameters become path segments, POST
parameters the JSON body.`,
		Example: `  logo action arps GetRiskInfo code=320.01
  logo action items GetPrice itemCode=HDD-1 priceType:=2
  logo action items ApplyCampaign itemCode=HDD-1 campaignCode=SUMMER amount:=10`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseKeyValues(args[2:])
			if err != nil {
				return err
			}

			out := newPrinter(cmd)

			return withEntity(cmd, args[0], func(ctx context.Context, entity logo.EntityClient) error {
				selected, err := actionMethod(entity, args[1], method)
				if err != nil {
					return err
				}

				result, err := entity.Invoke(ctx, args[1], selected, logo.ActionParams(values))
				if err != nil {
					return fmt.Errorf("failed to invoke %s %s: %w", entity.Name(), args[1], err)
				}

				return out.Value(result)
			})
		},
	}

	cmd.Flags().StringVarP(&method, "method", "X", "", "HTTP method (GET or POST)")

	return cmd
}

func actionMethod(entity logo.EntityClient, action, method string) (logo.Method, error) {
	if method != "" {
		return logo.ParseMethod(method)
	}

	for _, info := range entity.Actions() {
		if info.Name == action && len(info.Methods) > 0 {
			return info.Methods[0], nil
		}
	}

	return logo.MethodGet, nil
}
