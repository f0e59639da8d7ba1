package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/picogrid/descent-simulations/pkg/simulation"
	"github.com/picogrid/descent-simulations/pkg/utils"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available simulations",
	Long:  `List all available simulations with their descriptions`,
	RunE:  listSimulations,
}

func init() {
	listCmd.Flags().BoolP("verbose", "v", false, "show the parameters of each simulation")
}

func listSimulations(cmd *cobra.Command, args []string) error {
	// Discover available simulations
	simInfos, err := utils.DiscoverSimulations()
	if err != nil {
		return fmt.Errorf("failed to discover simulations: %w", err)
	}

	if len(simInfos) == 0 {
		fmt.Println("No simulations found")
		return nil
	}

	// Create tabwriter for formatted output
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tVERSION\tCATEGORY\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "----\t-------\t--------\t-----------")

	verbose, _ := cmd.Flags().GetBool("verbose")
	for _, info := range simInfos {
		name := info.Config.Name
		if !simulation.DefaultRegistry.Has(name) {
			name += " (not built in)"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			name,
			info.Config.Version,
			info.Config.Category,
			info.Config.Description,
		)
		if !verbose {
			continue
		}
		for _, p := range info.Config.Parameters {
			def := ""
			if p.Default != nil {
				def = fmt.Sprintf(" = %v", p.Default)
			}
			_, _ = fmt.Fprintf(w, "  %s\t%s%s\t\t%s\n", p.Name, p.Type, def, p.Description)
		}
	}

	return w.Flush()
}
