package main

import (
	"os"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
)

const configFlag = "config"

func configFlags() map[string]cobraflags.Flag {
	return map[string]cobraflags.Flag{
		configFlag: &cobraflags.StringFlag{
			Name:  configFlag,
			Value: "",
			Usage: "Optional config file (yaml, json, toml). Environment variables override it",
		},
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "shopfront",
		Short: "Product catalogue API with image assets",
		Long: `shopfront serves products, their image assets and the category tree over a JSON API.

Examples:
  shopfront serve                          # listen on $PORT (default 8080)
  shopfront serve --config shopfront.yaml
  shopfront assets sweep --dry-run         # list files no asset row references`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(newAssetsCommand())
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
