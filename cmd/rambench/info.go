package main

import (
	"encoding/json"
	"fmt"

	units "github.com/docker/go-units"
	"github.com/pojntfx/rambench/pkg/host"
	"github.com/spf13/cobra"
)

func newInfoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print the CPU and memory of this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := host.GetInfo(cmd.Context())
			if err != nil {
				return err
			}

			if a.v.GetString(formatFlag) == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(info)
			}

			_, err = fmt.Fprintf(
				cmd.OutOrStdout(),
				"CPU:\t\t%v (%v logical)\nMemory:\t\t%v total, %v available\nPlatform:\t%v/%v\nWidth:\t\t%v bytes (%v)\n",
				info.CPUModel,
				info.LogicalCPUs,
				units.BytesSize(float64(info.TotalMemory)),
				units.BytesSize(float64(info.AvailableMemory)),
				info.OS,
				info.Arch,
				info.Width,
				info.Features,
			)

			return err
		},
	}

	cmd.Flags().String(formatFlag, "text", "Output format (text or json)")

	return cmd
}
