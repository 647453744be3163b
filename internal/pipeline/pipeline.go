// Package pipeline orchestrates one connector run: fetch, extract,
// resolve role gaps, assemble the graph, write artifacts, and push.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/commerce-iam/magento-fga-sync/internal/appmodel"
	"github.com/commerce-iam/magento-fga-sync/internal/assembler"
	"github.com/commerce-iam/magento-fga-sync/internal/output"
	"github.com/commerce-iam/magento-fga-sync/internal/push"
	"github.com/commerce-iam/magento-fga-sync/internal/rolegap"
)

// Pipeline wires the run stages together. Collaborators are fixed at
// construction; Run holds no state between invocations.
type Pipeline struct {
	source         Source
	resolver       *rolegap.Resolver
	applyRoleGap   bool
	coordinator    *push.Coordinator
	writer         *output.Writer
	variant        string
	providerPrefix string
	logger         hclog.Logger
	now            func() time.Time
	newRunID       func() string
}

// Params carries the pipeline's collaborators and settings. Coordinator
// nil means dry run: artifacts are written but nothing is pushed.
type Params struct {
	Source         Source
	Resolver       *rolegap.Resolver
	ApplyRoleGap   bool
	Coordinator    *push.Coordinator
	Writer         *output.Writer
	Variant        string
	ProviderPrefix string
	Logger         hclog.Logger
}

// New builds a pipeline.
func New(p Params) (*Pipeline, error) {
	if p.Source == nil {
		return nil, fmt.Errorf("pipeline: source is required")
	}
	if p.Writer == nil {
		return nil, fmt.Errorf("pipeline: output writer is required")
	}
	if p.ApplyRoleGap && p.Resolver == nil {
		return nil, fmt.Errorf("pipeline: role-gap resolver is required")
	}
	logger := p.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Pipeline{
		source:         p.Source,
		resolver:       p.Resolver,
		applyRoleGap:   p.ApplyRoleGap,
		coordinator:    p.Coordinator,
		writer:         p.Writer,
		variant:        p.Variant,
		providerPrefix: p.ProviderPrefix,
		logger:         logger.Named("pipeline"),
		now:            time.Now,
		newRunID:       uuid.NewString,
	}, nil
}

// Run executes one end-to-end sync. The returned report is valid even on
// error for stages that completed.
func (p *Pipeline) Run(ctx context.Context) (*output.RunReport, error) {
	report := &output.RunReport{
		RunID:     p.newRunID(),
		Variant:   p.variant,
		StartedAt: p.now().UTC(),
		DryRun:    p.coordinator == nil,
	}
	p.logger.Info("run starting", "run_id", report.RunID, "variant", p.variant, "dry_run", report.DryRun)

	if err := p.writer.Cleanup(); err != nil {
		// Retention cleanup never blocks a sync.
		p.logger.Warn("output cleanup failed", "error", err)
		report.Warnings = append(report.Warnings, fmt.Sprintf("output cleanup failed: %v", err))
	}

	set, err := p.source.Fetch(ctx)
	if err != nil {
		return report, fmt.Errorf("extraction failed: %w", err)
	}
	if err := set.Validate(); err != nil {
		return report, fmt.Errorf("extracted data is inconsistent: %w", err)
	}

	if p.applyRoleGap {
		users, result := p.resolver.Resolve(set.Users, set.Roles)
		set.Users = users
		report.Strategy = result.Strategy
		report.Warnings = append(report.Warnings, result.Warnings...)
		report.Extra = map[string]string{
			"role_gap_assigned":    strconv.Itoa(result.Assigned),
			"role_gap_csv_matched": strconv.Itoa(result.CSVMatched),
		}
		p.logger.Info("role gaps resolved", "strategy", result.Strategy, "assigned", result.Assigned)
	}

	app := assembler.Build(set, p.logger)
	report.Provider = p.providerPrefix + app.Name
	report.Counts = app.CountTotals()
	report.Unclassified = app.Unclassified
	report.Warnings = append(report.Warnings, app.Warnings...)

	dir, err := p.writer.RunDir(report.Provider)
	if err != nil {
		return report, err
	}
	if _, err := p.writer.WriteApplication(dir, app); err != nil {
		return report, err
	}

	pushErr := p.pushIfConfigured(ctx, report, app)

	report.FinishedAt = p.now().UTC()
	if _, err := p.writer.WriteReport(dir, report); err != nil {
		p.logger.Warn("run report write failed", "error", err)
	}
	if pushErr != nil {
		return report, pushErr
	}
	p.logger.Info("run complete", "run_id", report.RunID, "provider", report.Provider,
		"users", report.Counts.Users, "relationships", report.Counts.Relationships)
	return report, nil
}

func (p *Pipeline) pushIfConfigured(ctx context.Context, report *output.RunReport, app *appmodel.Application) error {
	if p.coordinator == nil {
		p.logger.Info("dry run, skipping push", "provider", report.Provider)
		return nil
	}
	result, err := p.coordinator.Push(ctx, report.Provider, app)
	report.Push = &result
	if err != nil {
		return fmt.Errorf("push failed: %w", err)
	}
	return nil
}
