package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkuzdowicz/secure-edge-rest/internal/config"
	"github.com/mkuzdowicz/secure-edge-rest/internal/resolve"
	"github.com/mkuzdowicz/secure-edge-rest/internal/stack"
)

// parameterFlags are the deploy-time parameter values shared by resolve,
// diff and deploy. Empty flags fall back to the configuration.
type parameterFlags struct {
	env       string
	whitelist string
}

func (p *parameterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.env, "env", "", "Value for "+stack.EnvParameterName+" (default: parameters.env)")
	cmd.Flags().StringVar(&p.whitelist, "whitelist", "", "Value for "+stack.WhitelistParameterName+", comma-separated CIDRs (default: parameters.whitelist)")
}

func (p *parameterFlags) set() bool {
	return p.env != "" || p.whitelist != ""
}

// values returns the template parameter values, validated.
func (p *parameterFlags) values(cfg *config.Config) (map[string]string, error) {
	env := p.env
	if env == "" {
		env = cfg.Parameters.Env
	}
	whitelist := p.whitelist
	if whitelist == "" {
		whitelist = cfg.Parameters.Whitelist
	}

	var errs []error
	if env == "" {
		errs = append(errs, errors.New("environment is required: set --env or parameters.env"))
	} else if !config.NamePattern.MatchString(env) {
		errs = append(errs, fmt.Errorf("environment %q must match %s", env, config.NamePattern))
	}
	if whitelist == "" {
		errs = append(errs, errors.New("whitelist is required: set --whitelist or parameters.whitelist"))
	} else if err := config.ValidateWhitelist(whitelist); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return map[string]string{
		stack.EnvParameterName:       env,
		stack.WhitelistParameterName: whitelist,
	}, nil
}

func newResolveCmd() *cobra.Command {
	var (
		params       parameterFlags
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Preview the template with concrete parameter values",
		Long: `Resolve synthesizes the template and substitutes envParameter and
allWhitelistedIps, evaluating Ref, Fn::Sub, Fn::Split and Fn::Join where only
parameters are involved. References to resources and pseudo parameters are
left as they are.

Examples:
    secure-edge resolve --env CODE --whitelist 10.0.0.0/8
    secure-edge resolve --format yaml -o resolved.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			values, err := params.values(cfg)
			if err != nil {
				return err
			}

			tmpl, err := stack.Synthesize(cfg)
			if err != nil {
				return err
			}
			resolved, err := resolve.Template(tmpl, values)
			if err != nil {
				return err
			}
			return writeTemplate(cmd.OutOrStdout(), resolved, outputFormat, outputFile)
		},
	}

	params.register(cmd)
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}
