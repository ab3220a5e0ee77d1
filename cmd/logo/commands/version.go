package commands

import (
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/logo-objects/internal/constants"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long:  "Display detailed version information about the logo CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			type VersionInfo struct {
				Version string `json:"version" yaml:"version"`
				Commit  string `json:"commit"  yaml:"commit"`
				Built   string `json:"built"   yaml:"built"`
			}

			versionInfo := VersionInfo{
				Version: version,
				Commit:  commit,
				Built:   date,
			}

			out := newPrinter(cmd)

			switch out.format {
			case constants.FormatJSON:
				return out.JSON(versionInfo)
			case constants.FormatYAML:
				return out.YAML(versionInfo)
			default:
				return out.Table([]string{"Property", "Value"}, [][]string{
					{"Version", version},
					{"Commit", commit},
					{"Built", date},
				})
			}
		},
	}
}
