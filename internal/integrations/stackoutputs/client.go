package stackoutputs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
)

// Output keys exported by the infrastructure stack.
const (
	KeyBlueprintARN = "BlueprintArn"
	KeyProjectARN   = "ProjectArn"
)

// cloudformationAPI is the minimal CloudFormation interface required by
// Client. Defined here for testability.
type cloudformationAPI interface {
	DescribeStacks(ctx context.Context, in *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
}

// Client reads deployment coordinates from CloudFormation stack outputs.
type Client struct {
	api       cloudformationAPI
	stackName string
}

// New creates a Client for the named stack.
func New(api cloudformationAPI, stackName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("stackoutputs: api must not be nil")
	}
	if strings.TrimSpace(stackName) == "" {
		return nil, errors.New("stackoutputs: stack name must not be empty")
	}
	return &Client{api: api, stackName: stackName}, nil
}

// Outputs returns the stack's outputs keyed by OutputKey.
func (c *Client) Outputs(ctx context.Context) (map[string]string, error) {
	out, err := c.api.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(c.stackName),
	})
	if err != nil {
		return nil, fmt.Errorf("stackoutputs: describe %s: %w", c.stackName, err)
	}
	if len(out.Stacks) == 0 {
		return nil, fmt.Errorf("stackoutputs: stack %s not found", c.stackName)
	}

	outputs := make(map[string]string, len(out.Stacks[0].Outputs))
	for _, o := range out.Stacks[0].Outputs {
		outputs[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return outputs, nil
}

// ExtractionARNs returns the blueprint and project ARNs the stack exports.
func (c *Client) ExtractionARNs(ctx context.Context) (blueprintARN, projectARN string, err error) {
	outputs, err := c.Outputs(ctx)
	if err != nil {
		return "", "", err
	}
	blueprintARN = outputs[KeyBlueprintARN]
	projectARN = outputs[KeyProjectARN]
	if blueprintARN == "" || projectARN == "" {
		return "", "", fmt.Errorf("stackoutputs: stack %s is missing %s or %s", c.stackName, KeyBlueprintARN, KeyProjectARN)
	}
	return blueprintARN, projectARN, nil
}
