package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/logo-objects/internal/catalog"
	"github.com/fivetwenty-io/logo-objects/internal/constants"
	"github.com/fivetwenty-io/logo-objects/pkg/logo"
)

// NewEntitiesCommand creates the entities command, which describes the
// catalog without contacting the service.
func NewEntitiesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entities",
		Aliases: []string{"entity"},
		Short:   "List catalog entities",
		Long:    "List the entities, search keys and vendor actions known to the client",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entityCatalog, err := loadCatalog()
			if err != nil {
				return err
			}

			out := newPrinter(cmd)
			names := entityCatalog.Entities()

			if out.format != constants.FormatTable {
				descriptions := make([]entityDescription, 0, len(names))

				for _, name := range names {
					entity, err := entityCatalog.Entity(name)
					if err != nil {
						return err
					}

					descriptions = append(descriptions, describeEntity(entity))
				}

				return out.Value(descriptions)
			}

			rows := make([][]string, 0, len(names))

			for _, name := range names {
				entity, err := entityCatalog.Entity(name)
				if err != nil {
					return err
				}

				rows = append(rows, []string{
					entity.Name,
					entity.Path,
					strings.Join(searchKeys(entity.Search), ", "),
					strconv.Itoa(len(entity.ActionInfos())),
				})
			}

			return out.Table([]string{"Name", "Path", "Search Keys", "Actions"}, rows)
		},
	}

	cmd.AddCommand(newEntitiesDescribeCommand())

	return cmd
}

func newEntitiesDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe ENTITY",
		Short: "Describe an entity",
		Long:  "Show the search keys and vendor actions of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityCatalog, err := loadCatalog()
			if err != nil {
				return err
			}

			entity, err := entityCatalog.Entity(args[0])
			if err != nil {
				return err
			}

			out := newPrinter(cmd)
			description := describeEntity(entity)

			if out.format != constants.FormatTable {
				return out.Value(description)
			}

			_, _ = fmt.Fprintf(out.writer, "Entity: %s\nPath: %s\n\n", description.Name, description.Path)

			if len(description.Search) > 0 {
				rows := make([][]string, 0, len(description.Search))
				for _, field := range description.Search {
					rows = append(rows, []string{field.Key, field.Field})
				}

				err = out.Table([]string{"Search Key", "Field"}, rows)
				if err != nil {
					return err
				}
			}

			rows := make([][]string, 0, len(description.Actions))

			for _, action := range description.Actions {
				methods := make([]string, len(action.Methods))
				for index, method := range action.Methods {
					methods[index] = string(method)
				}

				rows = append(rows, []string{action.Name, strings.Join(methods, ", "), strings.Join(action.Params, ", "), action.Returns})
			}

			return out.Table([]string{"Action", "Methods", "Params", "Returns"}, rows)
		},
	}
}

type entityDescription struct {
	Name    string             `json:"name"    yaml:"name"`
	Path    string             `json:"path"    yaml:"path"`
	Search  []logo.SearchField `json:"search"  yaml:"search"`
	Actions []logo.ActionInfo  `json:"actions" yaml:"actions"`
}

func describeEntity(entity *catalog.Entity) entityDescription {
	return entityDescription{
		Name:    entity.Name,
		Path:    entity.Path,
		Search:  entity.Search,
		Actions: entity.ActionInfos(),
	}
}

func searchKeys(fields []logo.SearchField) []string {
	keys := make([]string, len(fields))
	for index, field := range fields {
		keys[index] = field.Key
	}

	return keys
}

// catalogOverride returns the contents of --catalog, or nil for the
// embedded catalog.
func catalogOverride() ([]byte, error) {
	catalogFile := viper.GetString("catalog")
	if catalogFile == "" {
		return nil, nil
	}

	// catalogFile is an explicit command line argument
	// #nosec G304
	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	return data, nil
}

func loadCatalog() (*catalog.Catalog, error) {
	data, err := catalogOverride()
	if err != nil {
		return nil, err
	}

	if data == nil {
		return catalog.Default()
	}

	return catalog.Load(data)
}
