package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tabclean/domain/cleaning"
	"tabclean/internal/errors"
	"tabclean/presets"
)

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [name]",
		Short: "List bundled pipeline presets, or print one",
		Args:  cobra.MaximumNArgs(1),
		// presets need no environment configuration
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				data, err := presets.Raw(args[0])
				if err != nil {
					return errors.InvalidInput(err.Error())
				}
				_, err = out.Write(data)
				return err
			}
			for _, name := range presets.Names() {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}

// loadJobConfig resolves a batch job reference: a path ending in .yaml/.yml, otherwise a preset
func loadJobConfig(ref string) (*cleaning.Config, error) {
	if strings.HasSuffix(ref, ".yaml") || strings.HasSuffix(ref, ".yml") {
		return loadPipelineConfig("", ref)
	}
	return loadPipelineConfig(ref, "")
}
