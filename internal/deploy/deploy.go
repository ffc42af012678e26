// Package deploy creates, updates and deletes the edge stack through the
// CloudFormation API.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudformation"
	"github.com/aws/aws-sdk-go/service/cloudformation/cloudformationiface"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sirupsen/logrus"

	edgerest "github.com/mkuzdowicz/secure-edge-rest"
)

// Ownership tag added to every stack this tool creates. Stacks without it are
// never updated or deleted.
const (
	OwnerTagKey   = "secure-edge:managed-by"
	OwnerTagValue = "secure-edge"
)

// DefaultPollInterval is the delay between DescribeStacks calls while waiting.
const DefaultPollInterval = 5 * time.Second

var (
	ErrStackNotFound   = errors.New("stack not found")
	ErrNotOwned        = errors.New("stack is not managed by secure-edge")
	ErrArtifactMissing = errors.New("deploy artifact not found")
)

const noUpdates = "No updates are to be performed."

// Request describes a stack to create or update.
type Request struct {
	StackName  string
	Template   []byte
	Parameters map[string]string
	Tags       map[string]string
}

// Deployer drives CloudFormation stack operations.
type Deployer struct {
	CF           cloudformationiface.CloudFormationAPI
	Log          logrus.FieldLogger
	DryRun       bool
	PollInterval time.Duration
}

// NewSession returns an AWS session for region using the shared config chain.
func NewSession(region string) (*session.Session, error) {
	opts := session.Options{SharedConfigState: session.SharedConfigEnable}
	if region != "" {
		opts.Config.Region = aws.String(region)
	}
	sess, err := session.NewSessionWithOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("creating AWS session: %w", err)
	}
	return sess, nil
}

// New returns a Deployer and ArtifactChecker sharing sess.
func New(sess *session.Session, log logrus.FieldLogger, dryRun bool) (*Deployer, *ArtifactChecker) {
	return &Deployer{
			CF:     cloudformation.New(sess),
			Log:    log,
			DryRun: dryRun,
		}, &ArtifactChecker{
			S3: s3.New(sess),
		}
}

func (d *Deployer) logger(stack string) logrus.FieldLogger {
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return log.WithField("stack", stack)
}

// Deploy creates the stack, or updates it when it already exists and is owned
// by this tool, and waits for the operation to finish.
func (d *Deployer) Deploy(ctx context.Context, req Request) (*edgerest.DeployResult, error) {
	log := d.logger(req.StackName)

	existing, err := d.getStack(ctx, req.StackName)
	switch {
	case errors.Is(err, ErrStackNotFound):
		return d.createStack(ctx, req, log)
	case err != nil:
		return nil, err
	}

	if !hasOwnership(existing) {
		return nil, fmt.Errorf("%s: %w", req.StackName, ErrNotOwned)
	}
	if status := aws.StringValue(existing.StackStatus); status == cloudformation.StackStatusRollbackComplete {
		return nil, fmt.Errorf("stack %s is in %s and must be destroyed before redeploying", req.StackName, status)
	}
	return d.updateStack(ctx, req, existing, log)
}

func (d *Deployer) createStack(ctx context.Context, req Request, log logrus.FieldLogger) (*edgerest.DeployResult, error) {
	log.Info("creating stack")

	if d.DryRun {
		log.Info("skipping stack creation")
		return &edgerest.DeployResult{StackName: req.StackName, DryRun: true}, nil
	}

	input := &cloudformation.CreateStackInput{
		Capabilities: aws.StringSlice([]string{cloudformation.CapabilityCapabilityIam}),
		StackName:    aws.String(req.StackName),
		TemplateBody: aws.String(string(req.Template)),
		Parameters:   stackParameters(req.Parameters),
		Tags:         stackTags(req.Tags),
	}
	if _, err := d.CF.CreateStackWithContext(ctx, input); err != nil {
		return nil, fmt.Errorf("creating stack %s: %w", req.StackName, err)
	}

	return d.finish(ctx, req.StackName, log)
}

// updateStack updates an existing stack. When CloudFormation reports nothing
// to change, the stack is left as found and its current state is returned;
// UPDATE_ROLLBACK_COMPLETE from an earlier deploy is not a failure of this one.
func (d *Deployer) updateStack(ctx context.Context, req Request, existing *cloudformation.Stack, log logrus.FieldLogger) (*edgerest.DeployResult, error) {
	log.Info("updating stack")

	if d.DryRun {
		log.Info("skipping stack update")
		return &edgerest.DeployResult{StackName: req.StackName, DryRun: true}, nil
	}

	input := &cloudformation.UpdateStackInput{
		Capabilities: aws.StringSlice([]string{cloudformation.CapabilityCapabilityIam}),
		StackName:    aws.String(req.StackName),
		TemplateBody: aws.String(string(req.Template)),
		Parameters:   stackParameters(req.Parameters),
		Tags:         stackTags(req.Tags),
	}
	if _, err := d.CF.UpdateStackWithContext(ctx, input); err != nil {
		if !strings.Contains(err.Error(), noUpdates) {
			return nil, fmt.Errorf("updating stack %s: %w", req.StackName, err)
		}
		log.WithField("status", aws.StringValue(existing.StackStatus)).Info("stack already up to date")
		return result(existing), nil
	}

	return d.finish(ctx, req.StackName, log)
}

// finish waits for the stack to settle and reports its final state.
func (d *Deployer) finish(ctx context.Context, name string, log logrus.FieldLogger) (*edgerest.DeployResult, error) {
	cfs, err := d.waitWhileInProgress(ctx, name, log)
	if err != nil {
		return nil, err
	}

	status := aws.StringValue(cfs.StackStatus)
	if failed(status) {
		return nil, fmt.Errorf("stack %s finished in %s: %s", name, status, aws.StringValue(cfs.StackStatusReason))
	}
	log.WithField("status", status).Info("stack ready")

	return result(cfs), nil
}

// Destroy deletes an owned stack and waits until it is gone.
func (d *Deployer) Destroy(ctx context.Context, name string) error {
	log := d.logger(name)

	cfs, err := d.getStack(ctx, name)
	if err != nil {
		return err
	}
	if !hasOwnership(cfs) {
		return fmt.Errorf("%s: %w", name, ErrNotOwned)
	}

	log.Info("deleting stack")
	if d.DryRun {
		log.Info("skipping stack deletion")
		return nil
	}

	if _, err := d.CF.DeleteStackWithContext(ctx, &cloudformation.DeleteStackInput{
		StackName: aws.String(name),
	}); err != nil {
		return fmt.Errorf("deleting stack %s: %w", name, err)
	}

	cfs, err = d.waitWhileInProgress(ctx, name, log)
	if errors.Is(err, ErrStackNotFound) {
		log.Info("stack deleted")
		return nil
	}
	if err != nil {
		return err
	}
	if status := aws.StringValue(cfs.StackStatus); status != cloudformation.StackStatusDeleteComplete {
		return fmt.Errorf("stack %s finished in %s: %s", name, status, aws.StringValue(cfs.StackStatusReason))
	}
	log.Info("stack deleted")
	return nil
}

// Describe returns the current state of a stack.
func (d *Deployer) Describe(ctx context.Context, name string) (*edgerest.DeployResult, error) {
	cfs, err := d.getStack(ctx, name)
	if err != nil {
		return nil, err
	}
	return result(cfs), nil
}

func (d *Deployer) getStack(ctx context.Context, name string) (*cloudformation.Stack, error) {
	resp, err := d.CF.DescribeStacksWithContext(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(name),
	})
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return nil, ErrStackNotFound
		}
		return nil, fmt.Errorf("describing stack %s: %w", name, err)
	}
	if len(resp.Stacks) != 1 {
		return nil, ErrStackNotFound
	}
	return resp.Stacks[0], nil
}

// waitWhileInProgress polls until the stack leaves every *_IN_PROGRESS state.
func (d *Deployer) waitWhileInProgress(ctx context.Context, name string, log logrus.FieldLogger) (*cloudformation.Stack, error) {
	interval := d.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	for {
		cfs, err := d.getStack(ctx, name)
		if err != nil {
			return nil, err
		}
		current := aws.StringValue(cfs.StackStatus)
		if !strings.HasSuffix(current, "_IN_PROGRESS") {
			return cfs, nil
		}

		log.WithField("status", current).Debug("waiting for stack")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

func failed(status string) bool {
	return strings.HasSuffix(status, "_FAILED") || strings.HasSuffix(status, "ROLLBACK_COMPLETE")
}

func hasOwnership(cfs *cloudformation.Stack) bool {
	for _, tag := range cfs.Tags {
		if aws.StringValue(tag.Key) == OwnerTagKey && aws.StringValue(tag.Value) == OwnerTagValue {
			return true
		}
	}
	return false
}

func result(cfs *cloudformation.Stack) *edgerest.DeployResult {
	outputs := map[string]string{}
	for _, output := range cfs.Outputs {
		outputs[aws.StringValue(output.OutputKey)] = aws.StringValue(output.OutputValue)
	}
	return &edgerest.DeployResult{
		StackName: aws.StringValue(cfs.StackName),
		StackID:   aws.StringValue(cfs.StackId),
		Status:    aws.StringValue(cfs.StackStatus),
		Outputs:   outputs,
	}
}

// stackParameters converts parameter values to CloudFormation Parameters in key order.
func stackParameters(values map[string]string) []*cloudformation.Parameter {
	params := []*cloudformation.Parameter{}
	for _, k := range sortedKeys(values) {
		params = append(params, &cloudformation.Parameter{
			ParameterKey:   aws.String(k),
			ParameterValue: aws.String(values[k]),
		})
	}
	return params
}

// stackTags converts tags to CloudFormation Tags, ownership tag first.
func stackTags(values map[string]string) []*cloudformation.Tag {
	tags := []*cloudformation.Tag{
		{
			Key:   aws.String(OwnerTagKey),
			Value: aws.String(OwnerTagValue),
		},
	}
	for _, k := range sortedKeys(values) {
		if k == OwnerTagKey {
			continue
		}
		tags = append(tags, &cloudformation.Tag{
			Key:   aws.String(k),
			Value: aws.String(values[k]),
		})
	}
	return tags
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
