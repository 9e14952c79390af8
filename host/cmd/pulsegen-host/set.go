package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pulsegen/host/client"
)

var setCmd = &cobra.Command{
	Use:   "set param=value [param=value...]",
	Short: "Write parameters in a single all-or-nothing command",
	Example: `  pulsegen-host -p /dev/ttyACM0 set offset=150 length=50 repeats=2 spacing=300
  pulsegen-host -p /dev/ttyACM0 --ns --clock-period-ns 8 set offset=1200 length=400`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	c, err := connect(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := applyAssignments(cmd, c, args); err != nil {
		return err
	}
	fmt.Println("OK")
	return nil
}

// applyAssignments parses name=value pairs and sends them as one SET.
func applyAssignments(cmd *cobra.Command, c *client.Client, args []string) error {
	if useNs {
		durations := make(map[string]float64, len(args))
		for _, arg := range args {
			name, raw, err := splitAssignment(arg)
			if err != nil {
				return err
			}
			ns, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", arg, err)
			}
			durations[name] = ns
		}
		return c.SetNs(cmd.Context(), durations)
	}

	values := make([]client.Assignment, 0, len(args))
	for _, arg := range args {
		name, raw, err := splitAssignment(arg)
		if err != nil {
			return err
		}
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", arg, err)
		}
		values = append(values, client.Assignment{Name: name, Value: uint32(v)})
	}
	return c.Set(cmd.Context(), values...)
}

func splitAssignment(arg string) (string, string, error) {
	name, value, ok := strings.Cut(arg, "=")
	if !ok || name == "" || value == "" {
		return "", "", fmt.Errorf("expected param=value, got %q", arg)
	}
	return name, value, nil
}
