package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSNS is a mock implementation of SNSAPI
type MockSNS struct {
	mock.Mock
}

func (m *MockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sns.PublishOutput), args.Error(1)
}

func TestSNSPublisher(t *testing.T) {
	client := new(MockSNS)
	client.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		var e Event
		if err := json.Unmarshal([]byte(aws.ToString(in.Message)), &e); err != nil {
			return false
		}
		return aws.ToString(in.TopicArn) == "arn:aws:sns:us-east-1:1:projects" &&
			e.Type == TypeProjectTransitioned &&
			e.ProjectID == 42 &&
			aws.ToString(in.MessageAttributes["event_type"].StringValue) == string(TypeProjectTransitioned)
	})).Return(&sns.PublishOutput{MessageId: aws.String("m-1")}, nil)

	p := NewSNSPublisher(client, "arn:aws:sns:us-east-1:1:projects")
	err := p.Publish(context.Background(), New(TypeProjectTransitioned, 42, "operator", map[string]any{"to": "STARTED"}))

	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestSNSPublisherError(t *testing.T) {
	client := new(MockSNS)
	client.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	err := NewSNSPublisher(client, "arn").Publish(context.Background(), New(TypeProjectCreated, 1, "op", nil))
	assert.ErrorContains(t, err, "throttled")
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, Event) error { return errors.New("down") }

func TestFanout(t *testing.T) {
	rec := &Recorder{}
	f := Fanout{rec, failingPublisher{}, NopPublisher{}}

	err := f.Publish(context.Background(), New(TypePositionsCommitted, 3, "op", nil))

	assert.ErrorContains(t, err, "down")
	assert.Equal(t, []Type{TypePositionsCommitted}, rec.Types())
}
