package main

import (
	"fmt"

	"github.com/mpieniak01/venom/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("venom version %s\n", version.String())
	},
}
