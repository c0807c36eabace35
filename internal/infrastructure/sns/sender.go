package sns

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/smithy-go"
	"github.com/mridang-api/internal/config"
	"github.com/mridang-api/internal/infrastructure/awsconf"
	"github.com/mridang-api/internal/infrastructure/sms"
	"github.com/mridang-api/internal/pkg/identifier"
)

// PublishAPI is the subset of the SNS client the sender needs.
type PublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Sender publishes transactional SMS through AWS SNS.
type Sender struct {
	client   PublishAPI
	senderID string
}

// NewSender builds an SNS-backed sms.Sender in SNS_REGION. Credentials and
// the LocalStack endpoint are shared with the DynamoDB client.
func NewSender(ctx context.Context, cfg *config.Config) (*Sender, error) {
	awsCfg, err := awsconf.Load(ctx, cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	endpoint := awsconf.Endpoint(cfg)
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if endpoint != nil {
			o.BaseEndpoint = endpoint
		}
	})
	return NewSenderWithClient(client, cfg.MSG91SenderID), nil
}

// NewSenderWithClient wraps an existing Publish client.
func NewSenderWithClient(client PublishAPI, senderID string) *Sender {
	return &Sender{client: client, senderID: senderID}
}

// SendSMS publishes message to the E.164 form of the canonical number to and
// returns the SNS message id.
func (s *Sender) SendSMS(ctx context.Context, to, message string) (string, error) {
	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(s.senderID)}
	}

	out, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(identifier.E164(to)),
		Message:           aws.String(message),
		MessageAttributes: attrs,
	})
	if err != nil {
		return "", classify(err)
	}
	return aws.ToString(out.MessageId), nil
}

func classify(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return &sms.GatewayError{Kind: sms.KindUnavailable, Err: err}
	}

	kind := sms.KindUnknown
	switch apiErr.ErrorCode() {
	case "AuthorizationError", "InvalidClientTokenId", "UnrecognizedClientException",
		"AccessDenied", "AccessDeniedException", "SignatureDoesNotMatch":
		kind = sms.KindConfig
	case "KMSThrottling", "Throttling", "ThrottledException", "InternalError":
		kind = sms.KindUnavailable
	}
	return &sms.GatewayError{Kind: kind, Code: apiErr.ErrorCode(), Err: err}
}
