package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "deduplicator",
		Short: "Deduplicate addresses from several sources",
		Long:  `Deduplicate addresses gathered from multiple sources using locality-sensitive hashing and libpostal comparison.`,
	}

	rootCmd.AddCommand(createRunCmd())
	rootCmd.AddCommand(createParseCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
