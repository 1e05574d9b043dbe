package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	sfntypes "github.com/aws/aws-sdk-go-v2/service/sfn/types"

	"github.com/WessleyAI/holocron/engine/domain"
)

// SFNAPI is the part of the Step Functions client used here.
type SFNAPI interface {
	StartExecution(ctx context.Context, params *sfn.StartExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StartExecutionOutput, error)
	DescribeExecution(ctx context.Context, params *sfn.DescribeExecutionInput, optFns ...func(*sfn.Options)) (*sfn.DescribeExecutionOutput, error)
}

// StepFunctions runs each job as an execution of a state machine. The job
// id is the execution name, the last segment of the execution ARN.
type StepFunctions struct {
	api             SFNAPI
	stateMachineARN string
	logger          *slog.Logger
}

// NewStepFunctions creates the backend from an AWS config.
func NewStepFunctions(cfg aws.Config, stateMachineARN string, logger *slog.Logger) *StepFunctions {
	return NewStepFunctionsWithAPI(sfn.NewFromConfig(cfg), stateMachineARN, logger)
}

// NewStepFunctionsWithAPI creates the backend on an existing client.
func NewStepFunctionsWithAPI(api SFNAPI, stateMachineARN string, logger *slog.Logger) *StepFunctions {
	if logger == nil {
		logger = slog.Default()
	}
	return &StepFunctions{api: api, stateMachineARN: stateMachineARN, logger: logger}
}

// Submit starts an execution with the request as input.
func (s *StepFunctions) Submit(ctx context.Context, req domain.StoryRequest) (string, error) {
	input, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	out, err := s.api.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: aws.String(s.stateMachineARN),
		Input:           aws.String(string(input)),
	})
	if err != nil {
		return "", fmt.Errorf("jobs: start execution: %w", err)
	}
	arn := aws.ToString(out.ExecutionArn)
	id := arn[strings.LastIndex(arn, ":")+1:]
	s.logger.Info("jobs: execution started", "id", id)
	return id, nil
}

// ExecutionARN derives the ARN of execution id of the state machine.
func (s *StepFunctions) ExecutionARN(id string) string {
	name := s.stateMachineARN[strings.LastIndex(s.stateMachineARN, ":")+1:]
	return strings.Replace(s.stateMachineARN, ":stateMachine:"+name, ":execution:"+name+":"+id, 1)
}

// Status describes the execution.
func (s *StepFunctions) Status(ctx context.Context, id string) (domain.Job, error) {
	out, err := s.api.DescribeExecution(ctx, &sfn.DescribeExecutionInput{
		ExecutionArn: aws.String(s.ExecutionARN(id)),
	})
	var notFound *sfntypes.ExecutionDoesNotExist
	if errors.As(err, &notFound) {
		return domain.Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("jobs: describe execution: %w", err)
	}
	return toJob(id, string(out.Status), []byte(aws.ToString(out.Output))), nil
}
