// Package cli — list.go implements the "devenv list" command.
//
// The list command shows every devenv environment: containers the engine
// knows about (by the "devenv-" name prefix) merged with the name
// registry, so registered environments whose container was never created
// or has been removed still appear, in the absent state.
//
// Output is a text table by default; --output json or yaml produces a
// machine-readable form.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/petehayes102/devenv/internal/model"
	"github.com/petehayes102/devenv/internal/registry"
)

// listFlags holds the flag values for the list command.
type listFlags struct {
	// output selects the output format: text, json, or yaml.
	output string
}

// NewListCommand creates the "list" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewListCommand() *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all development environments",
		Long: `List all devenv environments and their container state.

Environments are discovered from both the container engine and the name
registry. A registered environment without a container is shown as
absent.

Examples:
  devenv list
  devenv list --output json
  devenv list -o yaml`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "text",
		"Output format: text, json, yaml")

	return cmd
}

// EnvRow is one row of list output: an environment's name, container
// state, image, and registered project path. Path is "-" when the
// environment is not in the registry, Image is "-" when no container
// exists.
type EnvRow struct {
	Name  string `json:"name" yaml:"name"`
	State string `json:"state" yaml:"state"`
	Image string `json:"image" yaml:"image"`
	Path  string `json:"path" yaml:"path"`
}

// runList is the main logic function for the list command.
func runList(ctx context.Context, flags *listFlags) error {
	// Step 1: Validate the --output flag before touching the daemon.
	switch flags.output {
	case "text", "json", "yaml":
	default:
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("invalid output format %q: valid values are text, json, yaml", flags.output))
	}

	// Step 2: Connect to the engine and registry.
	c, cleanup, err := newCoordinator()
	if err != nil {
		return err
	}
	defer cleanup()

	// Step 3: Gather containers from the engine and names from the
	// registry.
	handles, err := c.List(ctx)
	if err != nil {
		return err
	}
	VerboseLog("Found %d managed containers", len(handles))

	entries, err := c.Registry.List()
	if err != nil {
		return err
	}
	VerboseLog("Found %d registered environments", len(entries))

	// Step 4: Merge the two views and print.
	rows := MergeRows(handles, entries)
	return printListResult(rows, flags.output)
}

// MergeRows joins engine container handles with registry entries into
// one sorted row per environment name.
//
// A container without a registry entry gets Path "-"; a registry entry
// without a container gets State "absent" and Image "-".
func MergeRows(handles []model.ContainerHandle, entries []registry.Entry) []EnvRow {
	byName := make(map[string]*EnvRow)

	for _, h := range handles {
		byName[h.EnvName()] = &EnvRow{
			Name:  h.EnvName(),
			State: h.State.String(),
			Image: h.Image,
			Path:  "-",
		}
	}
	for _, e := range entries {
		if row, ok := byName[e.Name]; ok {
			row.Path = e.Path
			continue
		}
		byName[e.Name] = &EnvRow{
			Name:  e.Name,
			State: model.StateAbsent.String(),
			Image: "-",
			Path:  e.Path,
		}
	}

	rows := make([]EnvRow, 0, len(byName))
	for _, row := range byName {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

// printListResult outputs the rows in the selected format.
func printListResult(rows []EnvRow, format string) error {
	switch format {
	case "json":
		// An empty slice renders as [] instead of null.
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "yaml":
		data, err := yaml.Marshal(rows)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	default:
		printListResultText(rows)
	}
	return nil
}

// printListResultText outputs the environment list as a human-readable
// text table with aligned columns.
//
// The table format is:
//
//	NAME        STATE     IMAGE                 PATH
//	my-api      running   devenv-my-api:latest  /home/me/src/my-api
//	scratch     absent    -                     /home/me/src/scratch
func printListResultText(rows []EnvRow) {
	if len(rows) == 0 {
		fmt.Println("No environments found.")
		return
	}

	fmt.Printf("%-20s %-9s %-28s %s\n", "NAME", "STATE", "IMAGE", "PATH")
	for _, row := range rows {
		fmt.Printf("%-20s %-9s %-28s %s\n", row.Name, row.State, row.Image, row.Path)
	}
}
