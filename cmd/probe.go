package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-minixfs/pkg/app"
	"github.com/deploymenttheory/go-minixfs/pkg/app/probe"
)

var probeCmd = &cobra.Command{
	Use:   "probe <device>",
	Short: "Detect a Minix file system",
	Long: `Look for a Minix superblock on a device and describe it.

The superblock is accepted in either byte order. Devices carrying an ext2,
ext3 or ext4 signature are rejected even when the Minix magic matches.

Examples:
  go-minixfs probe /dev/sdb1
  go-minixfs probe -o json disk.img`,

	Args: deviceArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := newContext(cmd)

		response, err := probe.Handle(ctx, &probe.Request{Target: app.DeviceTarget{Path: args[0]}})
		if err != nil {
			return err
		}
		return writeReport(os.Stdout, response)
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
