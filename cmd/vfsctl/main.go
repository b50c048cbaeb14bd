// Command vfsctl is a demonstration CLI over the vfs package: it assembles a VirtualFileSystem from a YAML
// mount config and exposes browse/read/copy/delete/mkdir as subcommands, the same "one root command, several
// leaf subcommands sharing package state" shape rclone's cmd package uses.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/arcfs/vfs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	root       *vfs.VirtualFileSystem
	pool       *vfs.BlockPool
)

var rootCmd = &cobra.Command{
	Use:   "vfsctl",
	Short: "Inspect and manipulate a composed virtual filesystem",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		pool = vfs.NewBlockPool("vfsctl", 256*1024*1024, vfs.DefaultBlockSize)
		root = vfs.NewVirtualFileSystem(nil)

		if configPath == "" {
			return nil
		}
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		for _, m := range cfg.Mounts {
			mountPool := pool
			if m.CapacityBytes > 0 {
				blocks := (m.CapacityBytes + vfs.DefaultBlockSize - 1) / vfs.DefaultBlockSize
				mountPool = vfs.NewBlockPool(m.Name, blocks, vfs.DefaultBlockSize)
			}
			fs := vfs.NewMemoryFileSystem(m.Name, mountPool)
			root.Mount(vfs.Path(m.Path), fs, vfs.Option{})
			logrus.WithField("path", m.Path).Info("mounted")
		}
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a vfsctl mount config (YAML)")
	rootCmd.AddCommand(lsCmd, catCmd, cpCmd, rmCmd, mkdirCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a directory's children",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := vfs.Path("")
		if len(args) == 1 {
			path = vfs.Path(args[0])
		}
		content, err := root.Browse(path, vfs.Option{})
		if err != nil {
			return err
		}
		if !content.Exists {
			return fmt.Errorf("%s: no such directory", path)
		}
		for _, entry := range content.Children {
			marker := " "
			if entry.IsDir() {
				marker = "/"
			}
			fmt.Printf("%-10d %s%s\n", entry.Length, entry.Name(), marker)
		}
		return nil
	},
}

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print a file's content to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stream, err := root.Open(vfs.Path(args[0]), vfs.NewOption(vfs.OpenOption{CanOpen: true, CanRead: true}))
		if err != nil {
			return err
		}
		defer stream.Close()
		_, err = io.Copy(os.Stdout, stream)
		return err
	},
}

var cpCmd = &cobra.Command{
	Use:   "cp <src> <dst>",
	Short: "Copy a file or directory tree",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		session := vfs.NewOperationSession(pool, vfs.OperationPolicy{DstConflict: vfs.PolicyOverwrite}, nil)
		defer session.Close()
		result, err := vfs.CopyTree(context.Background(), session, root, vfs.Path(args[0]), root, vfs.Path(args[1]), 4)
		if err != nil {
			return err
		}
		fmt.Printf("copied %d operations\n", len(result.Operations))
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Delete a file or empty directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return root.Delete(vfs.Path(args[0]), vfs.Option{})
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a directory and its missing ancestors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := root.CreateDirectory(vfs.Path(args[0]), vfs.Option{})
		return err
	},
}
