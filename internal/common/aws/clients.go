// internal/common/aws/clients.go
package aws

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Clients holds the SES and SNS clients used for broker notifications.
type Clients struct {
	SES *SESClient
	SNS *SNSClient
}

// NewClients loads the default AWS credential chain once for both services.
func NewClients(ctx context.Context, region string) (*Clients, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &Clients{
		SES: &SESClient{client: ses.NewFromConfig(cfg)},
		SNS: &SNSClient{client: sns.NewFromConfig(cfg)},
	}, nil
}
