// Package config loads connector settings from environment variables and
// an optional .env file.
package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

// Variant selects the source-auth and source-transport combination. The
// same pipeline runs all four; only the token source and the fetch
// strategy differ.
type Variant string

const (
	VariantOnPremGraphQL Variant = "onprem-graphql"
	VariantOnPremREST    Variant = "onprem-rest"
	VariantCloudGraphQL  Variant = "cloud-graphql"
	VariantCloudREST     Variant = "cloud-rest"
)

// ParseVariant validates a variant name from configuration.
func ParseVariant(name string) (Variant, error) {
	switch Variant(name) {
	case VariantOnPremGraphQL, VariantOnPremREST, VariantCloudGraphQL, VariantCloudREST:
		return Variant(name), nil
	}
	return "", fmt.Errorf("unknown variant %q (valid: onprem-graphql, onprem-rest, cloud-graphql, cloud-rest)", name)
}

// UsesIMS reports whether the variant authenticates with OAuth client
// credentials instead of a customer password grant.
func (v Variant) UsesIMS() bool {
	return v == VariantCloudGraphQL || v == VariantCloudREST
}

// UsesGraphQL reports whether the variant fetches through the single
// GraphQL extraction query instead of the REST endpoints.
func (v Variant) UsesGraphQL() bool {
	return v == VariantOnPremGraphQL || v == VariantCloudGraphQL
}

// Config carries everything a run needs. CLI flags may override fields
// after Load.
type Config struct {
	Variant Variant

	StoreURL string
	Username string
	Password string

	ClientID     string
	ClientSecret string
	IMSScopes    []string

	FGAAPIURL string

	ProviderPrefix string
	OutputDir      string
	RetentionDays  int
	RegistryPath   string
}

// Load reads configuration from the environment, with envFile (dotenv
// format) layered underneath when given. Validation is separate so flag
// overrides can apply first.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	v.SetDefault("VARIANT", string(VariantOnPremGraphQL))
	v.SetDefault("OUTPUT_DIR", "output")
	v.SetDefault("OUTPUT_RETENTION_DAYS", 30)
	v.SetDefault("REGISTRY_PATH", "provider_registry.json")
	v.SetDefault("IMS_SCOPES", "openid,AdobeID")
	v.AutomaticEnv()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read env file %s: %w", envFile, err)
		}
	}

	variant, err := ParseVariant(v.GetString("VARIANT"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Variant:        variant,
		StoreURL:       v.GetString("MAGENTO_STORE_URL"),
		Username:       v.GetString("MAGENTO_USERNAME"),
		Password:       v.GetString("MAGENTO_PASSWORD"),
		ClientID:       v.GetString("MAGENTO_CLIENT_ID"),
		ClientSecret:   v.GetString("MAGENTO_CLIENT_SECRET"),
		IMSScopes:      splitScopes(v.GetString("IMS_SCOPES")),
		FGAAPIURL:      v.GetString("FGA_API_URL"),
		ProviderPrefix: v.GetString("PROVIDER_PREFIX"),
		OutputDir:      v.GetString("OUTPUT_DIR"),
		RetentionDays:  v.GetInt("OUTPUT_RETENTION_DAYS"),
		RegistryPath:   v.GetString("REGISTRY_PATH"),
	}, nil
}

// Validate reports every missing required setting at once. The vendor
// endpoint is only required when the run will push.
func (c *Config) Validate(push bool) error {
	var result *multierror.Error
	if c.StoreURL == "" {
		result = multierror.Append(result, fmt.Errorf("MAGENTO_STORE_URL is required"))
	}
	if c.Variant.UsesIMS() {
		if c.ClientID == "" {
			result = multierror.Append(result, fmt.Errorf("MAGENTO_CLIENT_ID is required for variant %s", c.Variant))
		}
		if c.ClientSecret == "" {
			result = multierror.Append(result, fmt.Errorf("MAGENTO_CLIENT_SECRET is required for variant %s", c.Variant))
		}
	} else {
		if c.Username == "" {
			result = multierror.Append(result, fmt.Errorf("MAGENTO_USERNAME is required for variant %s", c.Variant))
		}
		if c.Password == "" {
			result = multierror.Append(result, fmt.Errorf("MAGENTO_PASSWORD is required for variant %s", c.Variant))
		}
	}
	if push && c.FGAAPIURL == "" {
		result = multierror.Append(result, fmt.Errorf("FGA_API_URL is required when pushing"))
	}
	return result.ErrorOrNil()
}

func splitScopes(raw string) []string {
	var scopes []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}
