package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-minixfs/pkg/app"
	"github.com/deploymenttheory/go-minixfs/pkg/app/mkfs"
)

var mkfsRequest mkfs.Request

var mkfsCmd = &cobra.Command{
	Use:   "mkfs [options] <device> [blocks]",
	Short: "Create a Minix file system",
	Long: `Create a Minix file system on a block device or image file.

The size in 1024 byte blocks defaults to the size of the device. The
version and name length default to the configured values (v1 with 30
character names unless configured otherwise).

Examples:
  # Create a v2 file system over the whole device
  go-minixfs mkfs --fs-version 2 /dev/sdb1

  # Create a 1440 block v1 file system with 14 character names
  go-minixfs mkfs -n 14 floppy.img 1440

  # Scan for bad blocks first
  go-minixfs mkfs -c /dev/sdb1`,

	Args: deviceArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMkfs(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(mkfsCmd)

	mkfsCmd.Flags().BoolVarP(&mkfsRequest.CheckBlocks, "check", "c", false, "check the device for bad blocks")
	mkfsCmd.Flags().Uint64VarP(&mkfsRequest.Inodes, "inodes", "i", 0, "number of inodes for the filesystem")
	mkfsCmd.Flags().StringVarP(&mkfsRequest.BadBlocksFile, "badblocks", "l", "", "list of bad blocks from file")
	mkfsCmd.Flags().IntVarP(&mkfsRequest.NameLen, "namelength", "n", 0, "maximum length of filenames")
	mkfsCmd.Flags().IntVar(&mkfsRequest.Version, "fs-version", 0, "file system version (1, 2 or 3)")
}

func runMkfs(cmd *cobra.Command, args []string) error {
	ctx := newContext(cmd)

	// An interrupt stops a bad block scan between chunks.
	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt)
	defer stop()
	ctx.Context = sigCtx

	request := mkfsRequest
	request.Target = app.DeviceTarget{Path: args[0]}
	if len(args) > 1 {
		blocks, err := strconv.ParseUint(args[1], 0, 64)
		if err != nil {
			return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("invalid block count %q", args[1]), err)
		}
		request.Blocks = blocks
	}

	response, err := mkfs.Handle(ctx, &request)
	if err != nil {
		return err
	}

	return writeReport(os.Stdout, response)
}
