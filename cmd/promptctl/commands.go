package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	domainprompt "github.com/alanyang/prompt-manager/internal/domain/prompt"
	portprompt "github.com/alanyang/prompt-manager/internal/port/prompt"
	promptsvc "github.com/alanyang/prompt-manager/internal/service/prompt"
)

// clipboardWriteAll is swapped in tests; CI hosts have no clipboard.
var clipboardWriteAll = clipboard.WriteAll

func (c *cli) listCmd() *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List prompts in storage order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prompts := domainprompt.Filter(c.svc.Prompts(), query)
			if msg := c.svc.LastError(); msg != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), msg)
			}
			if len(prompts) == 0 {
				fmt.Fprintln(out(cmd), "No prompts.")
				return nil
			}

			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tCOLOR\tUPDATED")
			for _, p := range prompts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Title, p.ColorOrDefault(), p.UpdatedAt)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Only prompts whose title or description contains this text")
	return cmd
}

func (c *cli) addCmd() *cobra.Command {
	var d domainprompt.Draft
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a new prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := c.svc.Add(cmd.Context(), d)
			if err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), p.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&d.Title, "title", "t", "", "Prompt title")
	cmd.Flags().StringVarP(&d.Description, "description", "d", "", "Prompt text")
	cmd.Flags().StringVarP(&d.Color, "color", "c", "", "Card color (one of the palette colors)")
	return cmd
}

func (c *cli) editCmd() *cobra.Command {
	var d domainprompt.Draft
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a prompt's title, description or color",
		Long:  "Fields whose flag is not given keep their current value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := c.svc.Get(args[0])
			if err != nil {
				return err
			}

			next := domainprompt.Draft{Title: current.Title, Description: current.Description, Color: current.Color}
			flags := cmd.Flags()
			if flags.Changed("title") {
				next.Title = d.Title
			}
			if flags.Changed("description") {
				next.Description = d.Description
			}
			if flags.Changed("color") {
				next.Color = d.Color
			}

			p, err := c.svc.Update(cmd.Context(), current.ID, next)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Updated %s (%s)\n", p.ID, p.Title)
			return nil
		},
	}
	cmd.Flags().StringVarP(&d.Title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&d.Description, "description", "d", "", "New prompt text")
	cmd.Flags().StringVarP(&d.Color, "color", "c", "", "New card color")
	return cmd
}

func (c *cli) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a prompt",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.svc.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func (c *cli) copyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <id>",
		Short: "Copy a prompt's text to the system clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.svc.Get(args[0])
			if err != nil {
				return err
			}
			if err := clipboardWriteAll(p.Description); err != nil {
				return fmt.Errorf("failed to copy: %w", err)
			}
			fmt.Fprintln(out(cmd), "Copied to clipboard!")
			return nil
		},
	}
}

// exportRecord fixes the YAML field names to match the JSON form.
type exportRecord struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	CreatedAt   string `yaml:"createdAt"`
	UpdatedAt   string `yaml:"updatedAt"`
	Color       string `yaml:"color,omitempty"`
}

func (c *cli) exportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every prompt to stdout as YAML or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prompts := c.svc.Prompts()
			switch format {
			case "json":
				enc := json.NewEncoder(out(cmd))
				enc.SetIndent("", "  ")
				return enc.Encode(prompts)
			case "yaml":
				records := make([]exportRecord, 0, len(prompts))
				for _, p := range prompts {
					records = append(records, exportRecord(p))
				}
				enc := yaml.NewEncoder(out(cmd))
				enc.SetIndent(2)
				if err := enc.Encode(records); err != nil {
					return fmt.Errorf("encode yaml: %w", err)
				}
				return enc.Close()
			default:
				return fmt.Errorf("unknown format %q (want yaml or json)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml or json")
	return cmd
}

func (c *cli) backendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backend",
		Short: "Show which storage backend is active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b := c.svc.Backend()
			fmt.Fprintf(out(cmd), "%s (%s)\n", promptsvc.BackendLabel(b), b)
			if b == portprompt.BackendMisconfigured {
				fmt.Fprintln(out(cmd), portprompt.MisconfigurationMessage)
			}
			return nil
		},
	}
}
