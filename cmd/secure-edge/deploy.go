package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	edgerest "github.com/mkuzdowicz/secure-edge-rest"
	"github.com/mkuzdowicz/secure-edge-rest/internal/config"
	"github.com/mkuzdowicz/secure-edge-rest/internal/deploy"
	"github.com/mkuzdowicz/secure-edge-rest/internal/stack"
	"github.com/mkuzdowicz/secure-edge-rest/internal/template"
)

// stackNameFor returns the CloudFormation stack name for one environment.
func stackNameFor(cfg *config.Config, env string) string {
	return cfg.StackName + "-" + env
}

// signalContext is cancelled on SIGINT or SIGTERM so polling stops promptly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newDeployCmd() *cobra.Command {
	var (
		params            parameterFlags
		dryRun            bool
		skipArtifactCheck bool
		pollInterval      time.Duration
		outputFormat      string
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create or update the stack",
		Long: `Deploy synthesizes the template and creates or updates the stack
<stack_name>-<env> with CAPABILITY_IAM, then waits for it to settle.

The Lambda artifact must already exist in the deploy bucket; the check can be
skipped with --skip-artifact-check. Stacks not created by secure-edge are
never touched.

Examples:
    secure-edge deploy --env CODE --whitelist 10.0.0.0/8,192.168.0.0/16
    secure-edge deploy --env PROD --dry-run`,
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
			env := values[stack.EnvParameterName]

			tmpl, err := stack.Synthesize(cfg)
			if err != nil {
				return err
			}
			body, err := template.ToJSON(tmpl)
			if err != nil {
				return err
			}

			sess, err := deploy.NewSession(cfg.Region)
			if err != nil {
				return err
			}
			deployer, checker := deploy.New(sess, logrus.StandardLogger(), dryRun)
			deployer.PollInterval = pollInterval

			ctx, cancel := signalContext()
			defer cancel()

			if !skipArtifactCheck {
				key := cfg.ArtifactKeyFor(env)
				logrus.WithFields(logrus.Fields{"bucket": cfg.DeployBucket, "key": key}).Info("checking artifact")
				if err := checker.Check(ctx, cfg.DeployBucket, key); err != nil {
					return err
				}
			}

			result, err := deployer.Deploy(ctx, deploy.Request{
				StackName:  stackNameFor(cfg, env),
				Template:   body,
				Parameters: values,
				Tags:       stackTags(cfg, env),
			})
			if err != nil {
				return err
			}
			return outputDeployResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	params.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log the stack operation without performing it")
	cmd.Flags().BoolVar(&skipArtifactCheck, "skip-artifact-check", false, "Do not check the Lambda artifact exists")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", deploy.DefaultPollInterval, "Delay between stack status checks")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

// stackTags are the configured tags plus App and Env.
func stackTags(cfg *config.Config, env string) map[string]string {
	tags := map[string]string{}
	for k, v := range cfg.Tags {
		tags[k] = v
	}
	tags["App"] = cfg.AppName
	tags["Env"] = env
	return tags
}

func outputDeployResult(w io.Writer, result *edgerest.DeployResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.DryRun {
			fmt.Fprintf(w, "Dry run: %s not changed\n", result.StackName)
			return nil
		}
		fmt.Fprintf(w, "%s: %s\n", result.StackName, result.Status)
		for _, key := range sortedKeys(result.Outputs) {
			fmt.Fprintf(w, "  %s = %s\n", key, result.Outputs[key])
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}

func newDestroyCmd() *cobra.Command {
	var (
		env          string
		dryRun       bool
		pollInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete the stack for an environment",
		Long: `Destroy deletes the stack <stack_name>-<env> and waits until it is gone.
Only stacks carrying the secure-edge ownership tag are deleted.

Examples:
    secure-edge destroy --env CODE
    secure-edge destroy --env CODE --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if env == "" {
				env = cfg.Parameters.Env
			}
			if env == "" {
				return fmt.Errorf("environment is required: set --env or parameters.env")
			}

			sess, err := deploy.NewSession(cfg.Region)
			if err != nil {
				return err
			}
			deployer, _ := deploy.New(sess, logrus.StandardLogger(), dryRun)
			deployer.PollInterval = pollInterval

			ctx, cancel := signalContext()
			defer cancel()

			name := stackNameFor(cfg, env)
			if err := deployer.Destroy(ctx, name); err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "Dry run: %s not deleted\n", name)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s deleted\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&env, "env", "", "Environment whose stack is deleted (default: parameters.env)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log the deletion without performing it")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", deploy.DefaultPollInterval, "Delay between stack status checks")

	return cmd
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
