package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/codefionn/toolrelay/internal/budget"
	"github.com/codefionn/toolrelay/internal/config"
	"github.com/codefionn/toolrelay/internal/consts"
	"github.com/codefionn/toolrelay/internal/llm"
	"github.com/codefionn/toolrelay/internal/tools"
)

func buildToolsCmd() *cobra.Command {
	var schemaFor string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tool catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := tools.NewDefaultRegistry()
			if err != nil {
				return err
			}
			if schemaFor != "" {
				return printToolSchema(cmd.OutOrStdout(), registry, schemaFor)
			}
			return printTools(cmd.OutOrStdout(), registry)
		},
	}
	cmd.Flags().StringVar(&schemaFor, "schema", "", "Print the input schema of this tool")
	return cmd
}

func printTools(w io.Writer, registry *tools.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tCLASS\tDESCRIPTION")
	for _, spec := range registry.List() {
		class := string(spec.Class)
		if class == "" {
			class = "(configured)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", spec.ID, class, spec.Description)
	}
	return tw.Flush()
}

func printToolSchema(w io.Writer, registry *tools.Registry, id string) error {
	spec, err := registry.Lookup(id)
	if err != nil {
		return err
	}
	var schema any
	if err := json.Unmarshal(spec.InputSchema(), &schema); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(schema)
}

type planOptions struct {
	configPath string
	model      string
	window     int
	class      string
	streaming  bool
}

func buildPlanCmd() *cobra.Command {
	var opts planOptions
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the context budget for a model and reasoning class",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to a config file supplying budget settings")
	cmd.Flags().StringVar(&opts.model, "model", consts.DefaultModel, "Model whose capabilities bound the plan")
	cmd.Flags().IntVar(&opts.window, "window", 0, "Context window in tokens (default: the model's window)")
	cmd.Flags().StringVar(&opts.class, "class", string(budget.ClassMedium), "Reasoning class: low, medium, high or max")
	cmd.Flags().BoolVar(&opts.streaming, "streaming", false, "Plan for a streaming response")
	return cmd
}

func runPlan(w io.Writer, opts planOptions) error {
	class, err := budget.ParseClass(opts.class)
	if err != nil {
		return err
	}
	cfg := config.DefaultConfig()
	if opts.configPath != "" {
		if cfg, err = loadConfig(opts.configPath, nil); err != nil {
			return err
		}
	}

	caps := llm.LookupCapabilities(opts.model)
	window := opts.window
	if window <= 0 {
		window = caps.ContextWindow
	}
	planner := newPlanner(cfg).WithReasoningCeiling(caps.ReasoningCeiling(cfg.MaxReasoningTokens))
	plan := planner.Plan(window, class, opts.streaming)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}

func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := config.JSONSchema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(schema))
			return err
		},
	}

	var path string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath(path), os.LookupEnv)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg.Redacted()); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	showCmd.Flags().StringVarP(&path, "config", "c", "", "Path to a JSON or YAML config file")

	cmd.AddCommand(schemaCmd, showCmd)
	return cmd
}
