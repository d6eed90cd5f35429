package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Parameter names under the deployment prefix.
const (
	nameBlueprintARN = "blueprint_arn"
	nameProjectARN   = "project_arn"
)

// ssmAPI is the minimal AWS SSM interface required by Client.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Client resolves deployment coordinates from SSM Parameter Store. It is
// the fallback ARN source for environments where the CloudFormation stack
// outputs are not readable by the operator's role.
type Client struct {
	api    ssmAPI
	prefix string
}

// New creates a Client reading parameters under the given prefix.
func New(api ssmAPI, prefix string) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return nil, errors.New("paramstore: prefix must not be empty")
	}
	return &Client{api: api, prefix: prefix}, nil
}

// GetParameter fetches one decrypted parameter under the client's prefix.
func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}
	full := c.prefix + "/" + strings.TrimLeft(name, "/")

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &full,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", full, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("paramstore: parameter %q missing value", full)
	}
	return *out.Parameter.Value, nil
}

// ExtractionARNs resolves the blueprint and project ARNs from the store.
func (c *Client) ExtractionARNs(ctx context.Context) (blueprintARN, projectARN string, err error) {
	blueprintARN, err = c.GetParameter(ctx, nameBlueprintARN)
	if err != nil {
		return "", "", err
	}
	projectARN, err = c.GetParameter(ctx, nameProjectARN)
	if err != nil {
		return "", "", err
	}
	return blueprintARN, projectARN, nil
}
