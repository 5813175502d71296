package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lite-lake/infra-cfdns/internal/config"
	"github.com/lite-lake/infra-cfdns/internal/constants"
	"github.com/lite-lake/infra-cfdns/internal/domain/entity"
)

var Version = "dev"

func newRootCommand(ctx *Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   constants.AppName + " <aliyun|dnspod>",
		Short: "Point line-aware DNS records at optimized Cloudflare IPs",
		Long: "cfdns fetches recommended Cloudflare edge IPs per network line and keeps the A/AAAA\n" +
			"records of the configured sub domains on Aliyun DNS or DNSPod pointed at them.",
		Example: `  cfdns aliyun -4 -d '{"example.com": {"shop": ["CM", "CU"]}}'
  cfdns dnspod -4 -6 -n 3 -f domains.json`,
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		ValidArgs:     providerNames(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runSync(cmd, ctx, args[0])
		},
	}

	config.RegisterProviderFlags(rootCmd.PersistentFlags())
	config.RegisterSyncFlags(rootCmd.Flags())
	rootCmd.MarkFlagsMutuallyExclusive("domain", "domain-file")

	rootCmd.AddCommand(
		newDomainsCommand(ctx),
		newRecordsCommand(ctx),
		newLinesCommand(ctx),
		newPurgeCommand(ctx),
	)
	return rootCmd
}

func providerNames() []string {
	var names []string
	for _, t := range entity.ISPTypes() {
		names = append(names, string(t))
	}
	return names
}

// loadSettings merges the settings visible to cmd and binds the provider.
func loadSettings(cmd *cobra.Command, provider string) (*config.Settings, error) {
	s, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	s.Provider = entity.ISPType(provider)
	return s, nil
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(NewContext()).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ErrorStyle.Render("Error: "+err.Error()))
		stop()
		os.Exit(1)
	}
}
