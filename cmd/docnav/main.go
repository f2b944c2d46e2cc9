package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var cfgPath string
	root := &cobra.Command{
		Use:           "docnav",
		Short:         "Answer questions about long documents by navigating their section tree",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config/docnav.yaml or ./docnav.yaml)")

	root.AddCommand(
		serveCMD(&cfgPath),
		mcpCMD(&cfgPath),
		queryCMD(&cfgPath),
		outlineCMD(&cfgPath),
		searchCMD(&cfgPath),
		interactiveCMD(&cfgPath),
	)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
