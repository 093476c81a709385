package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSkillsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "skills",
		Short: "List the skills of the prompt catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			if err := a.catalog.LoadPrompts(); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SKILL\tLANGUAGE\tDESCRIPTION")
			for _, name := range a.catalog.AvailableSkills() {
				s, _ := a.catalog.Skill(name)
				lang := "-"
				if s.RequiresProgrammingLanguage {
					lang = "required"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, lang, s.Description)
			}
			return w.Flush()
		},
	}
}
