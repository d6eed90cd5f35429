package logstream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// cloudwatchAPI is the minimal CloudWatch Logs interface required by Client.
// Defined here for testability.
type cloudwatchAPI interface {
	FilterLogEvents(ctx context.Context, in *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// Client queries one log group of the external compute handler. It serves
// two purposes: scanning a time window for error markers, and tailing the
// group for human-readable console output.
type Client struct {
	api          cloudwatchAPI
	group        string
	errorPattern string
}

// New creates a Client for the given log group. errorPattern is the
// CloudWatch filter pattern that marks a processing failure.
func New(api cloudwatchAPI, group, errorPattern string) (*Client, error) {
	if api == nil {
		return nil, errors.New("logstream: api must not be nil")
	}
	if strings.TrimSpace(group) == "" {
		return nil, errors.New("logstream: log group must not be empty")
	}
	if strings.TrimSpace(errorPattern) == "" {
		return nil, errors.New("logstream: error pattern must not be empty")
	}
	return &Client{api: api, group: group, errorPattern: errorPattern}, nil
}

// ScanErrors returns every error-marker line emitted in [since, until).
func (c *Client) ScanErrors(ctx context.Context, since, until time.Time) ([]string, error) {
	var lines []string
	var token *string
	for {
		out, err := c.api.FilterLogEvents(ctx, &cloudwatchlogs.FilterLogEventsInput{
			LogGroupName:  aws.String(c.group),
			FilterPattern: aws.String(c.errorPattern),
			StartTime:     aws.Int64(since.UnixMilli()),
			EndTime:       aws.Int64(until.UnixMilli()),
			NextToken:     token,
		})
		if err != nil {
			return nil, fmt.Errorf("logstream: filter %s: %w", c.group, err)
		}
		for _, ev := range out.Events {
			lines = append(lines, aws.ToString(ev.Message))
		}
		if out.NextToken == nil {
			return lines, nil
		}
		token = out.NextToken
	}
}

// events returns all log lines (no filter pattern) from the given start
// time, together with the timestamp the next tail poll should resume from.
func (c *Client) events(ctx context.Context, from time.Time) ([]string, time.Time, error) {
	next := from
	var lines []string
	var token *string
	for {
		out, err := c.api.FilterLogEvents(ctx, &cloudwatchlogs.FilterLogEventsInput{
			LogGroupName: aws.String(c.group),
			StartTime:    aws.Int64(from.UnixMilli()),
			NextToken:    token,
		})
		if err != nil {
			return nil, next, fmt.Errorf("logstream: tail %s: %w", c.group, err)
		}
		for _, ev := range out.Events {
			lines = append(lines, aws.ToString(ev.Message))
			// Resume strictly after the newest event seen.
			if ts := time.UnixMilli(aws.ToInt64(ev.Timestamp) + 1); ts.After(next) {
				next = ts
			}
		}
		if out.NextToken == nil {
			return lines, next, nil
		}
		token = out.NextToken
	}
}
