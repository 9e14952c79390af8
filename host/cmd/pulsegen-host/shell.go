package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pulsegen/host/client"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive session",
	RunE:  runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	c, err := connect(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Println("Connected. Type 'help' for available commands, 'quit' to exit.")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		switch parts[0] {
		case "quit", "exit", "q":
			return nil

		case "help", "?":
			printHelp()

		case "get":
			names := parts[1:]
			if len(names) == 0 {
				names = client.Names()
			}
			for _, name := range names {
				spec, err := client.Lookup(name)
				if err != nil {
					fmt.Printf("Error: %v\n", err)
					break
				}
				v, err := c.Get(cmd.Context(), spec.Name)
				if err != nil {
					fmt.Printf("Error: %v\n", err)
					break
				}
				fmt.Println(formatValue(c.Units(), spec.Name, v))
			}

		case "set":
			if len(parts) < 2 {
				fmt.Println("Usage: set param=value [param=value...]")
				continue
			}
			if err := applyAssignments(cmd, c, parts[1:]); err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Println("OK")

		case "raw":
			// Send the rest of the line unchanged
			reply, err := c.Raw(cmd.Context(), strings.TrimSpace(strings.TrimPrefix(line, "raw")))
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Printf("%q\n", reply)

		default:
			fmt.Printf("Unknown command: %s (type 'help')\n", parts[0])
		}
	}
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  get [param...]              read parameters (all when none named)")
	fmt.Println("  set param=value [...]       write parameters atomically")
	fmt.Println("  raw <line>                  send a raw command line, e.g. 'raw G o'")
	fmt.Println("  help                        this text")
	fmt.Println("  quit                        leave the shell")
	fmt.Println()
	fmt.Println("Parameters: " + strings.Join(client.Names(), ", "))
}
