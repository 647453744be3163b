// Package fga adapts the push coordinator's vendor interface to an
// OpenFGA backend. A provider maps to an OpenFGA store and a data source
// to an authorization model: each push writes a fresh model under the
// store and reports the new model ID.
package fga

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/openfga/go-sdk/client"

	"github.com/commerce-iam/magento-fga-sync/internal/appmodel"
)

const tupleBatchSize = 100

// Client implements the coordinator's VendorClient against OpenFGA.
type Client struct {
	fga    *client.OpenFgaClient
	logger hclog.Logger
}

// NewClient connects to an OpenFGA API endpoint.
func NewClient(apiURL string, logger hclog.Logger) (*Client, error) {
	if apiURL == "" {
		return nil, fmt.Errorf("fga: api url is required")
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	fgaClient, err := client.NewSdkClient(&client.ClientConfiguration{
		ApiUrl: apiURL,
	})
	if err != nil {
		return nil, fmt.Errorf("fga: cannot build client: %w", err)
	}
	return &Client{fga: fgaClient, logger: logger.Named("fga")}, nil
}

// FindProviderByName scans stores for an exact name match, following
// continuation tokens until the listing is exhausted.
func (c *Client) FindProviderByName(ctx context.Context, name string) (string, bool, error) {
	var token string
	for {
		req := c.fga.ListStores(ctx)
		if token != "" {
			req = req.Options(client.ClientListStoresOptions{ContinuationToken: &token})
		}
		response, err := req.Execute()
		if err != nil {
			return "", false, fmt.Errorf("fga: listing stores: %w", err)
		}
		for _, store := range response.Stores {
			if store.Name == name {
				return store.Id, true, nil
			}
		}
		token = response.ContinuationToken
		if token == "" {
			return "", false, nil
		}
	}
}

// CreateProvider creates an empty store.
func (c *Client) CreateProvider(ctx context.Context, name string) (string, error) {
	response, err := c.fga.CreateStore(ctx).
		Body(client.ClientCreateStoreRequest{Name: name}).
		Execute()
	if err != nil {
		return "", fmt.Errorf("fga: creating store %q: %w", name, err)
	}
	c.logger.Debug("created store", "name", name, "id", response.Id)
	return response.Id, nil
}

// DeleteProvider removes a store and all tuples under it.
func (c *Client) DeleteProvider(ctx context.Context, providerID string) error {
	_, err := c.fga.DeleteStore(ctx).
		Options(client.ClientDeleteStoreOptions{StoreId: &providerID}).
		Execute()
	if err != nil {
		return fmt.Errorf("fga: deleting store %s: %w", providerID, err)
	}
	return nil
}

// PushApplication writes a fresh authorization model to the store, then
// writes the application's tuples against it in batches. The model ID is
// the data-source ID recorded in the registry.
func (c *Client) PushApplication(ctx context.Context, providerID string, app *appmodel.Application) (string, error) {
	modelResponse, err := c.fga.WriteAuthorizationModel(ctx).
		Body(client.ClientWriteAuthorizationModelRequest{
			SchemaVersion:   schemaVersion,
			TypeDefinitions: TypeDefinitions(),
		}).
		Options(client.ClientWriteAuthorizationModelOptions{StoreId: &providerID}).
		Execute()
	if err != nil {
		return "", fmt.Errorf("fga: writing authorization model to store %s: %w", providerID, err)
	}
	modelID := modelResponse.AuthorizationModelId
	c.logger.Debug("wrote authorization model", "store", providerID, "model", modelID)

	tuples := Tuples(app)
	for start := 0; start < len(tuples); start += tupleBatchSize {
		end := start + tupleBatchSize
		if end > len(tuples) {
			end = len(tuples)
		}
		_, err := c.fga.Write(ctx).
			Body(client.ClientWriteRequest{Writes: tuples[start:end]}).
			Options(client.ClientWriteOptions{
				StoreId:              &providerID,
				AuthorizationModelId: &modelID,
			}).
			Execute()
		if err != nil {
			return "", fmt.Errorf("fga: writing tuples %d-%d of %d to store %s: %w",
				start, end, len(tuples), providerID, err)
		}
	}
	c.logger.Info("wrote tuples", "store", providerID, "model", modelID, "count", len(tuples))
	return modelID, nil
}
