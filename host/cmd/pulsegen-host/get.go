package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pulsegen/host/client"
)

var getCmd = &cobra.Command{
	Use:   "get [param...]",
	Short: "Read parameters (all when none are named)",
	RunE:  runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	c, err := connect(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	names := args
	if len(names) == 0 {
		names = client.Names()
	}

	for _, name := range names {
		spec, err := client.Lookup(name)
		if err != nil {
			return err
		}
		v, err := c.Get(cmd.Context(), spec.Name)
		if err != nil {
			return fmt.Errorf("get %s: %w", spec.Name, err)
		}
		fmt.Println(formatValue(c.Units(), spec.Name, v))
	}
	return nil
}

// formatValue prints name=value, adding nanoseconds for durations when
// --ns is set.
func formatValue(u client.Units, name string, v uint32) string {
	if useNs && name != "repeats" {
		if ns, err := u.Nanoseconds(v); err == nil {
			return fmt.Sprintf("%s=%d (%gns)", name, v, ns)
		}
	}
	return fmt.Sprintf("%s=%d", name, v)
}
