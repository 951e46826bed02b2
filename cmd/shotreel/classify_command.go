package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shotreel/internal/autofix"
	"shotreel/internal/classify"
)

func newClassifyCommand() *cobra.Command {
	var showRepair bool

	cmd := &cobra.Command{
		Use:         "classify <message>",
		Short:       "Classify a render error as a code defect or an infrastructure fault",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			verdict := classify.Classify(message)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, verdict.String())
			if showRepair && verdict == classify.CodeDefect {
				fmt.Fprintln(out)
				fmt.Fprintln(out, strings.TrimSpace(autofix.BuildRepairDescription("", message)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showRepair, "repair", false, "Print the repair guidance auto-fix would send for a code defect")
	return cmd
}
