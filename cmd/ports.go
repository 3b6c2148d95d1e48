package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/smazurov/coolledctl/internal/serial"
	"github.com/spf13/cobra"
)

// PortLister enumerates serial ports.
type PortLister func() ([]serial.PortInfo, error)

// CreatePortsCmd creates the ports command.
func CreatePortsCmd(list PortLister) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Long:  `Lists the serial ports present on this host, with USB vendor and product IDs where available.`,
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			ports, err := list()
			if err != nil {
				return err
			}

			out := c.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(ports)
			}
			if len(ports) == 0 {
				fmt.Fprintln(out, "No serial ports found")
				return nil
			}
			for _, p := range ports {
				fmt.Fprintln(out, p.Label())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the list as JSON")
	return cmd
}
