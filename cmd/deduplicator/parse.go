package main

import (
	"fmt"

	"github.com/openvenues/gopostal/parser"
	"github.com/spf13/cobra"
)

func createParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [address]",
		Short: "Parse a single address with libpostal and print its labelled components",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			components := parser.ParseAddress(args[0])
			if len(components) == 0 {
				fmt.Println("no components parsed")
				return nil
			}
			for _, c := range components {
				fmt.Printf("%-15s %s\n", c.Label, c.Value)
			}
			return nil
		},
	}
}
