// Package push delivers an assembled application graph to the vendor
// backend without ever duplicating a provider. Preflight distinguishes
// providers this connector created (safe to update in place) from
// providers something else owns (a conflict requiring explicit operator
// resolution).
package push

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/commerce-iam/magento-fga-sync/internal/appmodel"
)

// ErrProviderConflict reports a vendor-side provider with the same name
// that this connector did not create.
var ErrProviderConflict = errors.New("provider name is already taken by an externally owned provider")

// VendorClient is the minimal surface the coordinator needs from a graph
// backend. The concrete adapter lives elsewhere; nothing in this package
// imports a vendor SDK.
type VendorClient interface {
	// FindProviderByName looks up an existing provider. found is false
	// when no provider carries the name.
	FindProviderByName(ctx context.Context, name string) (providerID string, found bool, err error)

	// CreateProvider creates an empty provider and returns its vendor ID.
	CreateProvider(ctx context.Context, name string) (providerID string, err error)

	// DeleteProvider removes a provider and everything under it.
	DeleteProvider(ctx context.Context, providerID string) error

	// PushApplication uploads the graph under an existing provider and
	// returns the vendor-assigned data-source ID for this push.
	PushApplication(ctx context.Context, providerID string, app *appmodel.Application) (dataSourceID string, err error)
}

// Outcome is the preflight classification.
type Outcome string

const (
	// OutcomeNoConflict means no provider with the name exists.
	OutcomeNoConflict Outcome = "NO_CONFLICT"
	// OutcomeSelfMatch means the existing provider's vendor ID matches
	// the one recorded by a prior run of this connector.
	OutcomeSelfMatch Outcome = "SELF_MATCH"
	// OutcomeConflict means a provider with the name exists but its ID
	// does not match any local record.
	OutcomeConflict Outcome = "CONFLICT"
)

// ConflictPolicy decides what a CONFLICT outcome does.
type ConflictPolicy string

const (
	// ConflictAbort refuses to push. The default.
	ConflictAbort ConflictPolicy = "abort"
	// ConflictSkip reports the conflict and ends the run without a push.
	ConflictSkip ConflictPolicy = "skip"
	// ConflictRecreate deletes the conflicting provider and creates a
	// fresh one. Destructive; requires the operator to opt in.
	ConflictRecreate ConflictPolicy = "recreate"
)

// ParseConflictPolicy validates a policy name from configuration.
func ParseConflictPolicy(name string) (ConflictPolicy, error) {
	switch ConflictPolicy(name) {
	case ConflictAbort, ConflictSkip, ConflictRecreate:
		return ConflictPolicy(name), nil
	}
	return "", fmt.Errorf("unknown conflict policy %q (valid: abort, skip, recreate)", name)
}

// Coordinator runs the preflight/push/registry-update sequence.
type Coordinator struct {
	vendor   VendorClient
	registry *Registry
	policy   ConflictPolicy
	logger   hclog.Logger
	now      func() time.Time
}

// NewCoordinator wires a coordinator. The registry must already be loaded.
func NewCoordinator(vendor VendorClient, registry *Registry, policy ConflictPolicy, logger hclog.Logger) *Coordinator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Coordinator{
		vendor:   vendor,
		registry: registry,
		policy:   policy,
		logger:   logger.Named("push"),
		now:      time.Now,
	}
}

// Result reports what a push did, for the run report.
type Result struct {
	Outcome      Outcome `json:"outcome"`
	ProviderName string  `json:"provider_name"`
	ProviderID   string  `json:"provider_id,omitempty"`
	DataSourceID string  `json:"data_source_id,omitempty"`
	Skipped      bool    `json:"skipped,omitempty"`
}

// Push delivers the application under the given provider name. A
// transport failure during preflight aborts before any write. The
// registry file is only rewritten after the vendor confirms the push.
func (c *Coordinator) Push(ctx context.Context, providerName string, app *appmodel.Application) (Result, error) {
	result := Result{ProviderName: providerName}

	existingID, found, err := c.vendor.FindProviderByName(ctx, providerName)
	if err != nil {
		// Fail closed: without a trustworthy preflight answer a push
		// could silently duplicate or overwrite.
		return result, fmt.Errorf("preflight check for provider %q failed: %w", providerName, err)
	}

	local, hasLocal := c.registry.Lookup(providerName)
	result.Outcome = classify(found, hasLocal, existingID, local.ProviderID)
	c.logger.Info("preflight complete", "provider", providerName, "outcome", result.Outcome)

	providerID := existingID
	switch result.Outcome {
	case OutcomeSelfMatch:
		// Push by ID so the vendor updates in place instead of stacking
		// a second data source under the same name.
	case OutcomeNoConflict:
		providerID, err = c.vendor.CreateProvider(ctx, providerName)
		if err != nil {
			return result, fmt.Errorf("creating provider %q: %w", providerName, err)
		}
		c.logger.Info("created provider", "provider", providerName, "id", providerID)
	case OutcomeConflict:
		switch c.policy {
		case ConflictSkip:
			c.logger.Warn("provider name conflict, skipping push",
				"provider", providerName, "vendor_id", existingID)
			result.Skipped = true
			return result, nil
		case ConflictRecreate:
			c.logger.Warn("provider name conflict, deleting and recreating",
				"provider", providerName, "vendor_id", existingID)
			if err := c.vendor.DeleteProvider(ctx, existingID); err != nil {
				return result, fmt.Errorf("deleting conflicting provider %q (id %s): %w", providerName, existingID, err)
			}
			c.registry.Forget(providerName)
			providerID, err = c.vendor.CreateProvider(ctx, providerName)
			if err != nil {
				return result, fmt.Errorf("recreating provider %q: %w", providerName, err)
			}
		default:
			return result, fmt.Errorf("%w: provider %q exists with vendor ID %s and no local record; rerun with a provider prefix, or an explicit skip or recreate policy", ErrProviderConflict, providerName, existingID)
		}
	}
	result.ProviderID = providerID

	dataSourceID, err := c.vendor.PushApplication(ctx, providerID, app)
	if err != nil {
		return result, fmt.Errorf("pushing application to provider %q (id %s): %w", providerName, providerID, err)
	}
	result.DataSourceID = dataSourceID

	counts := app.CountTotals()
	c.registry.Record(providerName, RegistryEntry{
		ProviderID:    providerID,
		DataSourceID:  dataSourceID,
		Users:         counts.Users,
		Groups:        counts.Groups,
		Relationships: counts.Relationships,
		PushedAt:      c.now().UTC(),
	})
	if err := c.registry.Save(); err != nil {
		return result, fmt.Errorf("push succeeded but registry update failed: %w", err)
	}
	c.logger.Info("push complete", "provider", providerName,
		"provider_id", providerID, "data_source_id", dataSourceID)
	return result, nil
}

func classify(found, hasLocal bool, existingID, localID string) Outcome {
	if !found {
		return OutcomeNoConflict
	}
	if hasLocal && localID == existingID {
		return OutcomeSelfMatch
	}
	return OutcomeConflict
}
