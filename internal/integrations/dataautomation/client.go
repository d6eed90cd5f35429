package dataautomation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockdataautomation"
	bdatypes "github.com/aws/aws-sdk-go-v2/service/bedrockdataautomation/types"
	"github.com/aws/aws-sdk-go-v2/service/bedrockdataautomationruntime"
	runtimetypes "github.com/aws/aws-sdk-go-v2/service/bedrockdataautomationruntime/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/windson/bda-usecases/internal/domain"
)

const (
	defaultMaxWait  = 5 * time.Minute
	statusPollEvery = 10 * time.Second
)

// controlAPI is the minimal blueprint control-plane interface required by
// Client. Defined here for testability.
type controlAPI interface {
	GetBlueprint(ctx context.Context, in *bedrockdataautomation.GetBlueprintInput, optFns ...func(*bedrockdataautomation.Options)) (*bedrockdataautomation.GetBlueprintOutput, error)
	UpdateBlueprint(ctx context.Context, in *bedrockdataautomation.UpdateBlueprintInput, optFns ...func(*bedrockdataautomation.Options)) (*bedrockdataautomation.UpdateBlueprintOutput, error)
	CreateBlueprint(ctx context.Context, in *bedrockdataautomation.CreateBlueprintInput, optFns ...func(*bedrockdataautomation.Options)) (*bedrockdataautomation.CreateBlueprintOutput, error)
}

// runtimeAPI covers async invocation and status polling.
type runtimeAPI interface {
	InvokeDataAutomationAsync(ctx context.Context, in *bedrockdataautomationruntime.InvokeDataAutomationAsyncInput, optFns ...func(*bedrockdataautomationruntime.Options)) (*bedrockdataautomationruntime.InvokeDataAutomationAsyncOutput, error)
	GetDataAutomationStatus(ctx context.Context, in *bedrockdataautomationruntime.GetDataAutomationStatusInput, optFns ...func(*bedrockdataautomationruntime.Options)) (*bedrockdataautomationruntime.GetDataAutomationStatusOutput, error)
}

// stsAPI resolves the caller's account for the profile ARN.
type stsAPI interface {
	GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// JobStatus is the terminal state of one async extraction invocation.
type JobStatus struct {
	Status       string
	ErrorMessage string
	OutputURI    string
}

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	switch s.Status {
	case "Success", "ServiceError", "ClientError":
		return true
	}
	return false
}

// Succeeded reports a successful terminal status.
func (s JobStatus) Succeeded() bool {
	return s.Status == "Success"
}

// Client wraps the managed document-extraction service: blueprint reads and
// promotion on the control plane, async document processing on the runtime
// plane.
type Client struct {
	control controlAPI
	runtime runtimeAPI
	sts     stsAPI
	region  string

	// sleep is replaced in tests to drive the status poll without waiting.
	sleep func(time.Duration)
}

// New creates a Client. region is needed to derive the account-scoped
// data-automation profile ARN.
func New(control controlAPI, runtime runtimeAPI, stsClient stsAPI, region string) (*Client, error) {
	if control == nil {
		return nil, errors.New("dataautomation: control api must not be nil")
	}
	if runtime == nil {
		return nil, errors.New("dataautomation: runtime api must not be nil")
	}
	if stsClient == nil {
		return nil, errors.New("dataautomation: sts api must not be nil")
	}
	if strings.TrimSpace(region) == "" {
		return nil, errors.New("dataautomation: region must not be empty")
	}
	return &Client{
		control: control,
		runtime: runtime,
		sts:     stsClient,
		region:  region,
		sleep:   time.Sleep,
	}, nil
}

// profileARN derives the cross-region data-automation profile ARN for the
// calling account. The apac profile matches the ap-south-1 deployment.
func (c *Client) profileARN(ctx context.Context) (string, error) {
	out, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("dataautomation: caller identity: %w", err)
	}
	account := aws.ToString(out.Account)
	if account == "" {
		return "", errors.New("dataautomation: caller identity has no account")
	}
	return fmt.Sprintf("arn:aws:bedrock:%s:%s:data-automation-profile/apac.data-automation-v1", c.region, account), nil
}

// ProcessDocument starts one async extraction of inputURI into outputURI,
// optionally constrained to a blueprint, and returns the invocation ARN.
func (c *Client) ProcessDocument(ctx context.Context, inputURI, outputURI, blueprintARN string) (string, error) {
	profile, err := c.profileARN(ctx)
	if err != nil {
		return "", err
	}

	in := &bedrockdataautomationruntime.InvokeDataAutomationAsyncInput{
		InputConfiguration:       &runtimetypes.InputConfiguration{S3Uri: aws.String(inputURI)},
		OutputConfiguration:      &runtimetypes.OutputConfiguration{S3Uri: aws.String(outputURI)},
		DataAutomationProfileArn: aws.String(profile),
	}
	if blueprintARN != "" {
		in.Blueprints = []runtimetypes.Blueprint{{BlueprintArn: aws.String(blueprintARN)}}
	}

	out, err := c.runtime.InvokeDataAutomationAsync(ctx, in)
	if err != nil {
		return "", fmt.Errorf("dataautomation: invoke: %w", err)
	}
	arn := aws.ToString(out.InvocationArn)
	if arn == "" {
		return "", errors.New("dataautomation: invoke returned no invocation ARN")
	}
	return arn, nil
}

// Status fetches the current state of an invocation.
func (c *Client) Status(ctx context.Context, invocationARN string) (JobStatus, error) {
	out, err := c.runtime.GetDataAutomationStatus(ctx, &bedrockdataautomationruntime.GetDataAutomationStatusInput{
		InvocationArn: aws.String(invocationARN),
	})
	if err != nil {
		return JobStatus{}, fmt.Errorf("dataautomation: status: %w", err)
	}
	js := JobStatus{
		Status:       string(out.Status),
		ErrorMessage: aws.ToString(out.ErrorMessage),
	}
	if out.OutputConfiguration != nil {
		js.OutputURI = aws.ToString(out.OutputConfiguration.S3Uri)
	}
	return js, nil
}

// WaitForCompletion polls the invocation until it reaches a terminal state
// or maxWait elapses. Error statuses are returned as a JobStatus, not an
// error; only polling problems and the deadline produce an error.
func (c *Client) WaitForCompletion(ctx context.Context, invocationARN string, maxWait time.Duration) (JobStatus, error) {
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}
	deadline := time.Now().Add(maxWait)
	for {
		status, err := c.Status(ctx, invocationARN)
		if err != nil {
			return JobStatus{}, err
		}
		if status.Done() {
			return status, nil
		}
		if time.Now().After(deadline) {
			return JobStatus{}, fmt.Errorf("dataautomation: invocation %s not complete after %s", invocationARN, maxWait)
		}
		if err := ctx.Err(); err != nil {
			return JobStatus{}, err
		}
		c.sleep(statusPollEvery)
	}
}

// GetBlueprint reads one blueprint's stage and schema.
func (c *Client) GetBlueprint(ctx context.Context, arn string) (domain.BlueprintInfo, error) {
	out, err := c.control.GetBlueprint(ctx, &bedrockdataautomation.GetBlueprintInput{
		BlueprintArn: aws.String(arn),
	})
	if err != nil {
		return domain.BlueprintInfo{}, fmt.Errorf("dataautomation: get blueprint: %w", err)
	}
	if out.Blueprint == nil {
		return domain.BlueprintInfo{}, errors.New("dataautomation: get blueprint returned no blueprint")
	}
	return domain.BlueprintInfo{
		ARN:    aws.ToString(out.Blueprint.BlueprintArn),
		Name:   aws.ToString(out.Blueprint.BlueprintName),
		Stage:  string(out.Blueprint.BlueprintStage),
		Schema: aws.ToString(out.Blueprint.Schema),
	}, nil
}

// PromoteToLive moves the blueprint to the LIVE stage, carrying its current
// schema unchanged. The schema is opaque here.
func (c *Client) PromoteToLive(ctx context.Context, arn, schema string) error {
	_, err := c.control.UpdateBlueprint(ctx, &bedrockdataautomation.UpdateBlueprintInput{
		BlueprintArn:   aws.String(arn),
		Schema:         aws.String(schema),
		BlueprintStage: bdatypes.BlueprintStageLive,
	})
	if err != nil {
		return fmt.Errorf("dataautomation: update blueprint: %w", err)
	}
	return nil
}

// CreateBlueprint registers a new document blueprint in the given stage.
func (c *Client) CreateBlueprint(ctx context.Context, name, schema string, live bool) (string, error) {
	stage := bdatypes.BlueprintStageDevelopment
	if live {
		stage = bdatypes.BlueprintStageLive
	}
	out, err := c.control.CreateBlueprint(ctx, &bedrockdataautomation.CreateBlueprintInput{
		BlueprintName:  aws.String(name),
		Type:           bdatypes.TypeDocument,
		Schema:         aws.String(schema),
		BlueprintStage: stage,
	})
	if err != nil {
		return "", fmt.Errorf("dataautomation: create blueprint: %w", err)
	}
	if out.Blueprint == nil || aws.ToString(out.Blueprint.BlueprintArn) == "" {
		return "", errors.New("dataautomation: create blueprint returned no ARN")
	}
	return aws.ToString(out.Blueprint.BlueprintArn), nil
}
