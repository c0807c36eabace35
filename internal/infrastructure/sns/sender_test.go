package sns

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/smithy-go"
	"github.com/mridang-api/internal/infrastructure/sms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	in  *sns.PublishInput
	out *sns.PublishOutput
	err error
}

func (f *fakePublisher) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.in = in
	return f.out, f.err
}

func TestSender_SendSMS_PublishesE164(t *testing.T) {
	pub := &fakePublisher{out: &sns.PublishOutput{MessageId: aws.String("msg-1")}}
	s := NewSenderWithClient(pub, "MRIDNG")

	id, err := s.SendSMS(context.Background(), "919876543210", "code 1234")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, "+919876543210", aws.ToString(pub.in.PhoneNumber))
	assert.Equal(t, "code 1234", aws.ToString(pub.in.Message))
	assert.Equal(t, "Transactional", aws.ToString(pub.in.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue))
	assert.Equal(t, "MRIDNG", aws.ToString(pub.in.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))
}

func TestSender_SendSMS_ClassifiesFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want sms.FailureKind
	}{
		{"auth", &smithy.GenericAPIError{Code: "AuthorizationError", Message: "not allowed"}, sms.KindConfig},
		{"throttled", &smithy.GenericAPIError{Code: "Throttling"}, sms.KindUnavailable},
		{"other api", &smithy.GenericAPIError{Code: "InvalidParameter"}, sms.KindUnknown},
		{"network", errors.New("dial tcp: connection refused"), sms.KindUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSenderWithClient(&fakePublisher{err: tc.err}, "")
			_, err := s.SendSMS(context.Background(), "919876543210", "x")
			require.Error(t, err)
			assert.Equal(t, tc.want, sms.KindOf(err))
			assert.ErrorIs(t, err, tc.err)
		})
	}
}
