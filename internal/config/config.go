// Package config loads the static settings of the secure-edge stack.
//
// Values are layered: built-in defaults, then an optional YAML/JSON file,
// then SECURE_EDGE_* environment variables. Command flags are applied by the
// CLI on top of the returned Config.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultFile is read when no config path is given and the file exists.
const DefaultFile = "secure-edge.yaml"

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "SECURE_EDGE"

// Placeholders understood by ArtifactKey.
const (
	AppPlaceholder = "${app}"
	EnvPlaceholder = "${env}"
)

// NamePattern restricts the app name and environment to values safe inside
// resource names and ARNs.
var NamePattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// Config is the static configuration of the stack.
type Config struct {
	AppName      string            `mapstructure:"app_name"`
	StackName    string            `mapstructure:"stack_name"`
	DeployBucket string            `mapstructure:"deploy_bucket"`
	ArtifactKey  string            `mapstructure:"artifact_key"`
	Runtime      string            `mapstructure:"runtime"`
	Handler      string            `mapstructure:"handler"`
	MemorySize   int               `mapstructure:"memory_size"`
	Timeout      time.Duration     `mapstructure:"timeout"`
	UsagePlan    UsagePlan         `mapstructure:"usage_plan"`
	Region       string            `mapstructure:"region"`
	Parameters   Parameters        `mapstructure:"parameters"`
	Tags         map[string]string `mapstructure:"tags"`
}

// UsagePlan holds the optional throttle and quota of the API usage plan.
// Zero values leave the plan unlimited.
type UsagePlan struct {
	RateLimit   float64 `mapstructure:"rate_limit"`
	BurstLimit  int     `mapstructure:"burst_limit"`
	QuotaLimit  int     `mapstructure:"quota_limit"`
	QuotaPeriod string  `mapstructure:"quota_period"`
}

// Parameters are the deploy-time values of the template parameters.
type Parameters struct {
	Env       string `mapstructure:"env"`
	Whitelist string `mapstructure:"whitelist"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		AppName:      "example-secure-edge-rest",
		StackName:    "example-secure-edge-rest",
		DeployBucket: "support-service-lambdas-dist",
		ArtifactKey:  EnvPlaceholder + "/" + AppPlaceholder + "/" + AppPlaceholder + ".jar",
		Runtime:      "java8",
		Handler:      "com.mkuzdowicz.api.Handler::handle",
		MemorySize:   1536,
		Timeout:      300 * time.Second,
	}
}

// Load reads the configuration. An empty path falls back to DefaultFile
// when it exists; a missing explicit path is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("app_name", d.AppName)
	v.SetDefault("stack_name", d.StackName)
	v.SetDefault("deploy_bucket", d.DeployBucket)
	v.SetDefault("artifact_key", d.ArtifactKey)
	v.SetDefault("runtime", d.Runtime)
	v.SetDefault("handler", d.Handler)
	v.SetDefault("memory_size", d.MemorySize)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("usage_plan.rate_limit", 0)
	v.SetDefault("usage_plan.burst_limit", 0)
	v.SetDefault("usage_plan.quota_limit", 0)
	v.SetDefault("usage_plan.quota_period", "")
	v.SetDefault("region", "")
	v.SetDefault("parameters.env", "")
	v.SetDefault("parameters.whitelist", "")
}

// ArtifactKeyFor expands the artifact key for the given environment. Pass a
// Fn::Sub variable such as "${envParameter}" to defer the environment to
// deploy time.
func (c *Config) ArtifactKeyFor(env string) string {
	key := strings.ReplaceAll(c.ArtifactKey, AppPlaceholder, c.AppName)
	return strings.ReplaceAll(key, EnvPlaceholder, env)
}

// Validate checks the configuration for values CloudFormation would reject.
func (c *Config) Validate() error {
	var errs []error

	if !NamePattern.MatchString(c.AppName) {
		errs = append(errs, fmt.Errorf("app_name %q must match %s", c.AppName, NamePattern))
	}
	if c.StackName == "" {
		errs = append(errs, errors.New("stack_name is required"))
	}
	if c.DeployBucket == "" {
		errs = append(errs, errors.New("deploy_bucket is required"))
	}
	if !strings.Contains(c.ArtifactKey, EnvPlaceholder) {
		errs = append(errs, fmt.Errorf("artifact_key %q must contain %s", c.ArtifactKey, EnvPlaceholder))
	}
	if c.Runtime == "" || c.Handler == "" {
		errs = append(errs, errors.New("runtime and handler are required"))
	}
	if c.MemorySize < 128 || c.MemorySize > 10240 {
		errs = append(errs, fmt.Errorf("memory_size %d out of range [128, 10240]", c.MemorySize))
	}
	if c.Timeout < time.Second || c.Timeout > 900*time.Second || c.Timeout%time.Second != 0 {
		errs = append(errs, fmt.Errorf("timeout %s must be whole seconds between 1s and 900s", c.Timeout))
	}
	if err := c.UsagePlan.validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Parameters.Env != "" && !NamePattern.MatchString(c.Parameters.Env) {
		errs = append(errs, fmt.Errorf("parameters.env %q must match %s", c.Parameters.Env, NamePattern))
	}
	if c.Parameters.Whitelist != "" {
		if err := ValidateWhitelist(c.Parameters.Whitelist); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (u UsagePlan) validate() error {
	if u.RateLimit < 0 || u.BurstLimit < 0 || u.QuotaLimit < 0 {
		return errors.New("usage_plan limits must not be negative")
	}
	if u.QuotaLimit > 0 {
		switch u.QuotaPeriod {
		case "DAY", "WEEK", "MONTH":
		default:
			return fmt.Errorf("usage_plan.quota_period %q must be DAY, WEEK or MONTH", u.QuotaPeriod)
		}
	}
	return nil
}

// ValidateWhitelist checks a comma-joined list of CIDR blocks. Entries must
// not carry whitespace because Fn::Split does not trim.
func ValidateWhitelist(list string) error {
	for _, cidr := range strings.Split(list, ",") {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return fmt.Errorf("whitelist entry %q: %w", cidr, err)
		}
	}
	return nil
}
