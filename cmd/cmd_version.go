package cmd

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/origins-network/sale-engine/common/errs"
	"github.com/origins-network/sale-engine/core/constants"
	"github.com/origins-network/sale-engine/modules/lockedfund"
	"github.com/origins-network/sale-engine/modules/sale"
	"github.com/spf13/cobra"
)

var versions = map[string]string{
	"":           constants.Version,
	"sale":       sale.Version,
	"lockedfund": lockedfund.Version,
}

type versionCmdOptions struct {
	Module string
}

func NewVersionCommand() *cobra.Command {
	opts := &versionCmdOptions{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show origins version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return versionHandler(opts, cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Module, "module", "", `Show version of a specific module. E.g. "sale"`)

	return cmd
}

func versionHandler(opts *versionCmdOptions, _ *cobra.Command, _ []string) error {
	version, ok := versions[opts.Module]
	if !ok {
		return errors.Wrapf(errs.NotFound, "unknown module %q", opts.Module)
	}
	fmt.Println(version)
	return nil
}
