package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-minixfs/pkg/app"
	"github.com/deploymenttheory/go-minixfs/pkg/app/fsck"
)

var fsckRequest fsck.Request

var fsckCmd = &cobra.Command{
	Use:   "fsck [options] <device>",
	Short: "Check the consistency of a Minix file system",
	Long: `Check a Minix file system and optionally repair it.

Without -a or -r the device is opened read-only and nothing is changed.
A file system marked clean is skipped unless -f is given.

Exit status is the sum of 3 when the file system was changed and 4 when
errors were left uncorrected; 8 is an operational error and 16 a usage
error.

Examples:
  # Report problems without touching the device
  go-minixfs fsck /dev/sdb1

  # Repair automatically and list every file
  go-minixfs fsck -a -l disk.img

  # Check a clean file system and print usage statistics
  go-minixfs fsck -f -v disk.img`,

	Args: deviceArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFsck(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(fsckCmd)

	fsckCmd.Flags().BoolVarP(&fsckRequest.List, "list", "l", false, "list all filenames")
	fsckCmd.Flags().BoolVarP(&fsckRequest.Automatic, "auto", "a", false, "automatic repair")
	fsckCmd.Flags().BoolVarP(&fsckRequest.Repair, "repair", "r", false, "interactive repair")
	fsckCmd.Flags().BoolVarP(&fsckRequest.Verbose, "verbose", "v", false, "be verbose")
	fsckCmd.Flags().BoolVarP(&fsckRequest.ShowSuper, "super", "s", false, "output super-block information")
	fsckCmd.Flags().BoolVarP(&fsckRequest.WarnMode, "uncleared", "m", false, "activate mode not cleared warnings")
	fsckCmd.Flags().BoolVarP(&fsckRequest.Force, "force", "f", false, "force check")
}

func runFsck(cmd *cobra.Command, devicePath string) error {
	ctx := newContext(cmd)

	request := fsckRequest
	request.Target = app.DeviceTarget{Path: devicePath}

	response, err := fsck.Handle(ctx, &request)
	if err != nil {
		return err
	}
	exitStatus = response.ExitStatus

	return writeReport(os.Stdout, response)
}
