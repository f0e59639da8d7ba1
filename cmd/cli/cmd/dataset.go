package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/picogrid/descent-simulations/pkg/config"
	"github.com/picogrid/descent-simulations/pkg/gridfile"
	"github.com/picogrid/descent-simulations/pkg/logger"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Manage atmospheric datasets",
	Long:  `Register gridded wind files under short names for use by simulations`,
}

var datasetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered datasets",
	RunE:  listDatasets,
}

var datasetAddCmd = &cobra.Command{
	Use:   "add [name] [path]",
	Short: "Register a grid file",
	Args:  cobra.MaximumNArgs(2),
	RunE:  addDataset,
}

var datasetRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a registered dataset",
	Args:  cobra.MaximumNArgs(1),
	RunE:  removeDataset,
}

var datasetSelectCmd = &cobra.Command{
	Use:   "select <name>",
	Short: "Make a dataset the default selection",
	Args:  cobra.ExactArgs(1),
	RunE:  selectDefaultDataset,
}

func init() {
	datasetAddCmd.Flags().String("description", "", "description of the dataset")
	datasetAddCmd.Flags().Bool("no-check", false, "register without loading the file")

	datasetCmd.AddCommand(datasetListCmd)
	datasetCmd.AddCommand(datasetAddCmd)
	datasetCmd.AddCommand(datasetRemoveCmd)
	datasetCmd.AddCommand(datasetSelectCmd)
}

func listDatasets(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadDatasets()
	if err != nil {
		return fmt.Errorf("failed to load datasets: %w", err)
	}

	if len(cfg.Datasets) == 0 {
		fmt.Println("No datasets registered")
		return nil
	}

	t := logger.NewTable("NAME", "PATH", "DESCRIPTION")
	for _, d := range cfg.Datasets {
		name := d.Name
		if d.Name == cfg.Selected {
			name += " *"
		}
		t.AddRow(name, d.Path, d.Description)
	}
	t.Print()
	return nil
}

func addDataset(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadDatasets()
	if err != nil {
		return fmt.Errorf("failed to load datasets: %w", err)
	}

	var d config.Dataset
	d.Description, _ = cmd.Flags().GetString("description")
	if len(args) > 0 {
		d.Name = args[0]
	} else if err := survey.AskOne(&survey.Input{Message: "Dataset name:"}, &d.Name, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	if _, exists := cfg.Find(d.Name); exists {
		return fmt.Errorf("dataset %s already exists", d.Name)
	}

	if len(args) > 1 {
		d.Path = args[1]
	} else if err := survey.AskOne(&survey.Input{
		Message: "Grid file:",
		Help:    "JSON or YAML grid, optionally .zst or .gz compressed",
	}, &d.Path, survey.WithValidator(survey.Required)); err != nil {
		return err
	}
	if abs, err := filepath.Abs(d.Path); err == nil {
		d.Path = abs
	}

	if noCheck, _ := cmd.Flags().GetBool("no-check"); !noCheck {
		err := logger.WithSpinner("Checking grid file", func() error {
			_, err := gridfile.Load(d.Path)
			return err
		})
		if err != nil {
			return err
		}
	}

	if err := cfg.Add(d); err != nil {
		return err
	}
	if err := config.SaveDatasets(cfg); err != nil {
		return fmt.Errorf("failed to save datasets: %w", err)
	}

	fmt.Printf("Dataset %s added successfully\n", d.Name)
	return nil
}

func removeDataset(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadDatasets()
	if err != nil {
		return fmt.Errorf("failed to load datasets: %w", err)
	}

	if len(cfg.Datasets) == 0 {
		fmt.Println("No datasets to remove")
		return nil
	}

	var selected string
	if len(args) > 0 {
		selected = args[0]
	} else {
		prompt := &survey.Select{
			Message: "Select dataset to remove:",
			Options: cfg.Names(),
		}
		if err := survey.AskOne(prompt, &selected); err != nil {
			return err
		}
	}

	var confirm bool
	confirmPrompt := &survey.Confirm{
		Message: fmt.Sprintf("Are you sure you want to remove %s?", selected),
		Default: false,
	}
	if err := survey.AskOne(confirmPrompt, &confirm); err != nil {
		return err
	}

	if !confirm {
		fmt.Println("Removal cancelled")
		return nil
	}

	if err := cfg.Remove(selected); err != nil {
		return err
	}
	if err := config.SaveDatasets(cfg); err != nil {
		return fmt.Errorf("failed to save datasets: %w", err)
	}

	fmt.Printf("Dataset %s removed successfully\n", selected)
	return nil
}

func selectDefaultDataset(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadDatasets()
	if err != nil {
		return fmt.Errorf("failed to load datasets: %w", err)
	}
	if _, ok := cfg.Find(args[0]); !ok {
		return fmt.Errorf("dataset %s not found", args[0])
	}
	cfg.Selected = args[0]
	if err := config.SaveDatasets(cfg); err != nil {
		return fmt.Errorf("failed to save datasets: %w", err)
	}
	fmt.Printf("Dataset %s selected\n", args[0])
	return nil
}
