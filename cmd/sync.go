package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"

	"github.com/commerce-iam/magento-fga-sync/internal/config"
	"github.com/commerce-iam/magento-fga-sync/internal/fga"
	"github.com/commerce-iam/magento-fga-sync/internal/magento"
	"github.com/commerce-iam/magento-fga-sync/internal/output"
	"github.com/commerce-iam/magento-fga-sync/internal/pipeline"
	"github.com/commerce-iam/magento-fga-sync/internal/push"
	"github.com/commerce-iam/magento-fga-sync/internal/rolegap"
)

// SyncCommand runs one extraction and push cycle.
type SyncCommand struct{}

// Run parses flags and executes the sync pipeline.
func (c *SyncCommand) Run(args []string) error {
	flags := pflag.NewFlagSet("sync", pflag.ContinueOnError)

	dryRun := flags.Bool("dry-run", false, "Extract and write artifacts without pushing")
	doPush := flags.Bool("push", false, "Push the assembled graph to OpenFGA")
	debug := flags.Bool("debug", false, "Enable debug logging")
	noRest := flags.Bool("no-rest", false, "Skip the REST role-permission supplement on GraphQL variants")
	strategy := flags.String("strategy", "default_role", "Role-gap strategy: default_role, csv_supplement, all_roles, skip")
	roleCSV := flags.String("role-csv", "", "Path to an email,role_name CSV for the csv_supplement strategy")
	envFile := flags.String("env", "", "Path to a .env file")
	variant := flags.String("variant", "", "Connector variant: onprem-graphql, onprem-rest, cloud-graphql, cloud-rest")
	outDir := flags.StringP("out", "o", "", "Output directory for run artifacts")
	providerPrefix := flags.String("provider-prefix", "", "Prefix applied to the provider name before preflight and push")
	onConflict := flags.String("on-conflict", "abort", "Conflict resolution: abort, skip, recreate")

	if err := flags.Parse(args); err != nil {
		return err
	}
	if *dryRun && *doPush {
		return fmt.Errorf("--dry-run and --push are mutually exclusive")
	}
	// Dry run is the default: pushing requires an explicit opt-in.
	pushing := *doPush

	level := hclog.Info
	if *debug {
		level = hclog.Debug
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "magento-fga-sync",
		Level:  level,
		Output: os.Stderr,
	})

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	// Flags override environment configuration.
	if *variant != "" {
		v, err := config.ParseVariant(*variant)
		if err != nil {
			return err
		}
		cfg.Variant = v
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}
	if *providerPrefix != "" {
		cfg.ProviderPrefix = *providerPrefix
	}
	if err := cfg.Validate(pushing); err != nil {
		return fmt.Errorf("configuration invalid:\n%w", err)
	}

	p, err := buildPipeline(cfg, pushing, *noRest, *strategy, *roleCSV, *onConflict, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := p.Run(ctx)
	if err != nil {
		return err
	}
	printSummary(report)
	return nil
}

func buildPipeline(cfg *config.Config, pushing, noRest bool, strategy, roleCSV, onConflict string, logger hclog.Logger) (*pipeline.Pipeline, error) {
	tokens, err := buildTokenSource(cfg)
	if err != nil {
		return nil, err
	}
	client, err := magento.NewClient(cfg.StoreURL, tokens, logger)
	if err != nil {
		return nil, err
	}

	var source pipeline.Source
	if cfg.Variant.UsesGraphQL() {
		source = pipeline.NewGraphQLSource(client, !noRest, logger)
	} else {
		source = pipeline.NewRESTSource(client, logger)
	}

	// The REST transport never learns user-role edges, so the gap
	// resolver only runs on that path.
	var resolver *rolegap.Resolver
	applyRoleGap := !cfg.Variant.UsesGraphQL()
	if applyRoleGap {
		parsed, err := rolegap.ParseStrategy(strategy)
		if err != nil {
			return nil, err
		}
		resolver, err = rolegap.New(parsed, roleCSV, logger)
		if err != nil {
			return nil, err
		}
	}

	var coordinator *push.Coordinator
	if pushing {
		policy, err := push.ParseConflictPolicy(onConflict)
		if err != nil {
			return nil, err
		}
		vendor, err := fga.NewClient(cfg.FGAAPIURL, logger)
		if err != nil {
			return nil, err
		}
		registry, err := push.LoadRegistry(cfg.RegistryPath)
		if err != nil {
			return nil, err
		}
		coordinator = push.NewCoordinator(vendor, registry, policy, logger)
	}

	return pipeline.New(pipeline.Params{
		Source:         source,
		Resolver:       resolver,
		ApplyRoleGap:   applyRoleGap,
		Coordinator:    coordinator,
		Writer:         output.NewWriter(cfg.OutputDir, cfg.RetentionDays, logger),
		Variant:        string(cfg.Variant),
		ProviderPrefix: cfg.ProviderPrefix,
		Logger:         logger,
	})
}

func buildTokenSource(cfg *config.Config) (magento.TokenSource, error) {
	if cfg.Variant.UsesIMS() {
		tokens, err := magento.NewClientCredentialsTokenSource("", cfg.ClientID, cfg.ClientSecret,
			strings.Join(cfg.IMSScopes, ","))
		if err != nil {
			return nil, err
		}
		return tokens, nil
	}
	tokens, err := magento.NewPasswordTokenSource(cfg.StoreURL, cfg.Username, cfg.Password)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func printSummary(report *output.RunReport) {
	fmt.Printf("Run %s (%s) complete in %s\n",
		report.RunID, report.Variant, report.FinishedAt.Sub(report.StartedAt).Round(10*time.Millisecond))
	fmt.Printf("  Provider:      %s\n", report.Provider)
	fmt.Printf("  Users:         %d (%d placeholders)\n", report.Counts.Users, report.Counts.PlaceholderUser)
	fmt.Printf("  Groups:        %d\n", report.Counts.Groups)
	fmt.Printf("  Roles:         %d\n", report.Counts.Roles)
	fmt.Printf("  Relationships: %d\n", report.Counts.Relationships)
	if report.Strategy != "" {
		fmt.Printf("  Gap strategy:  %s\n", report.Strategy)
	}
	if len(report.Unclassified) > 0 {
		fmt.Printf("  Unclassified permissions: %s\n", strings.Join(report.Unclassified, ", "))
	}
	for _, w := range report.Warnings {
		fmt.Printf("  Warning: %s\n", w)
	}
	switch {
	case report.DryRun:
		fmt.Println("  Dry run: nothing pushed")
	case report.Push != nil && report.Push.Skipped:
		fmt.Printf("  Push skipped: provider name conflict (%s)\n", report.Push.Outcome)
	case report.Push != nil:
		fmt.Printf("  Pushed: provider %s, data source %s (%s)\n",
			report.Push.ProviderID, report.Push.DataSourceID, report.Push.Outcome)
	}
}
