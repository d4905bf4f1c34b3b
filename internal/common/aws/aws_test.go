package aws

import (
	"context"
	"errors"
	"strings"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: awssdk.String("msg-1")}, nil
}

type fakeSES struct {
	input *ses.SendEmailInput
}

func (f *fakeSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	return &ses.SendEmailOutput{MessageId: awssdk.String("email-1")}, nil
}

func TestPublisher_Publish(t *testing.T) {
	api := &fakeSNS{}
	p := NewPublisherWithClient(api, "arn:aws:sns:us-east-1:123456789012:cleanup")

	id, err := p.Publish(context.Background(), strings.Repeat("s", 150), "deleted 3 schools")
	require.NoError(t, err)

	assert.Equal(t, "msg-1", id)
	assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:cleanup", awssdk.ToString(api.input.TopicArn))
	assert.Len(t, awssdk.ToString(api.input.Subject), 100)
	assert.Equal(t, "deleted 3 schools", awssdk.ToString(api.input.Message))
}

func TestPublisher_PublishError(t *testing.T) {
	p := NewPublisherWithClient(&fakeSNS{err: errors.New("throttled")}, "arn:topic")

	_, err := p.Publish(context.Background(), "subject", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestMailer_Send(t *testing.T) {
	api := &fakeSES{}
	m := NewMailerWithClient(api, "noreply@example.org")

	id, err := m.Send(context.Background(), []string{"mod@example.org"}, "New review", "Rating: 5")
	require.NoError(t, err)

	assert.Equal(t, "email-1", id)
	assert.Equal(t, "noreply@example.org", awssdk.ToString(api.input.Source))
	assert.Equal(t, []string{"mod@example.org"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "Rating: 5", awssdk.ToString(api.input.Message.Body.Text.Data))

	_, err = m.Send(context.Background(), nil, "s", "b")
	assert.Error(t, err)
}
