package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"persona/internal/capability"
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "List and manage registered capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := shutdownContext()
		defer cancel()

		rt, err := buildRuntime(ctx, false)
		if err != nil {
			return err
		}
		defer rt.close()

		for _, info := range rt.registry.List() {
			fmt.Printf("%-30s %-12s %s\n", info.Name, info.Origin, info.Description)
		}
		return nil
	},
}

var capabilitiesDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a synthesized capability and retire its name",
	Long: `Unregisters the capability, records its name on the deleted-capability
ledger, and removes the persisted source. The name can never be reused:
a later replacement gets a fresh, disambiguated name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := shutdownContext()
		defer cancel()

		rt, err := buildRuntime(ctx, false)
		if err != nil {
			return err
		}
		defer rt.close()

		name := args[0]
		if origin, ok := rt.registry.Origin(name); ok && origin == capability.OriginBuiltin {
			return fmt.Errorf("capability %q is built-in and cannot be deleted", name)
		}
		if err := rt.pipeline.Delete(name); err != nil {
			return err
		}
		fmt.Printf("capability %q deleted and retired\n", name)
		return nil
	},
}

func init() {
	capabilitiesCmd.AddCommand(capabilitiesDeleteCmd)
}
