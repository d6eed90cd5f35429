package stackoutputs

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/stretchr/testify/require"
)

type fakeCFN struct {
	out    *cloudformation.DescribeStacksOutput
	err    error
	lastIn *cloudformation.DescribeStacksInput
}

func (f *fakeCFN) DescribeStacks(_ context.Context, in *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	f.lastIn = in
	return f.out, f.err
}

func stackWith(outputs map[string]string) *cloudformation.DescribeStacksOutput {
	stack := types.Stack{}
	for k, v := range outputs {
		stack.Outputs = append(stack.Outputs, types.Output{
			OutputKey:   aws.String(k),
			OutputValue: aws.String(v),
		})
	}
	return &cloudformation.DescribeStacksOutput{Stacks: []types.Stack{stack}}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "BDAResumeStack")
	require.Error(t, err)
	_, err = New(&fakeCFN{}, "  ")
	require.Error(t, err)
}

func TestOutputs(t *testing.T) {
	api := &fakeCFN{out: stackWith(map[string]string{"BucketName": "bda-docs"})}
	c, err := New(api, "BDAResumeStack")
	require.NoError(t, err)

	outputs, err := c.Outputs(context.Background())
	require.NoError(t, err)
	require.Equal(t, "bda-docs", outputs["BucketName"])
	require.Equal(t, "BDAResumeStack", aws.ToString(api.lastIn.StackName))
}

func TestOutputs_StackMissing(t *testing.T) {
	api := &fakeCFN{out: &cloudformation.DescribeStacksOutput{}}
	c, err := New(api, "BDAResumeStack")
	require.NoError(t, err)

	_, err = c.Outputs(context.Background())
	require.ErrorContains(t, err, "not found")
}

func TestOutputs_ApiError(t *testing.T) {
	api := &fakeCFN{err: errors.New("expired token")}
	c, err := New(api, "BDAResumeStack")
	require.NoError(t, err)

	_, err = c.Outputs(context.Background())
	require.ErrorContains(t, err, "expired token")
}

func TestExtractionARNs(t *testing.T) {
	api := &fakeCFN{out: stackWith(map[string]string{
		KeyBlueprintARN: "arn:bp",
		KeyProjectARN:   "arn:proj",
	})}
	c, err := New(api, "BDAResumeStack")
	require.NoError(t, err)

	bp, proj, err := c.ExtractionARNs(context.Background())
	require.NoError(t, err)
	require.Equal(t, "arn:bp", bp)
	require.Equal(t, "arn:proj", proj)
}

func TestExtractionARNs_MissingKeys(t *testing.T) {
	api := &fakeCFN{out: stackWith(map[string]string{KeyBlueprintARN: "arn:bp"})}
	c, err := New(api, "BDAResumeStack")
	require.NoError(t, err)

	_, _, err = c.ExtractionARNs(context.Background())
	require.ErrorContains(t, err, "missing")
}
