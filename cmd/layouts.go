package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/vfs-autofill/internal/autofill"
)

func newLayoutsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "layouts",
		Aliases: []string{"layout"},
		Short:   "List the built-in form layouts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tINJECTION\tFIELDS\tDESCRIPTION")
			for _, name := range autofill.BuiltinNames() {
				l, err := autofill.Builtin(name)
				if err != nil {
					return err
				}
				marker := ""
				if name == cfg.Fill.Layout && cfg.Fill.LayoutFile == "" {
					marker = " (default)"
				}
				fmt.Fprintf(tw, "%s%s\t%s\t%d\t%s\n", l.Name, marker, l.Injection, len(l.Fields), l.Description)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Print a built-in layout as YAML, ready to customize",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := autofill.Builtin(args[0])
			if err != nil {
				return err
			}
			data, err := autofill.MarshalLayout(l)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})
	return cmd
}
