package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
)

// Route53 discovers ring members by listing the A records under a
// hosted zone that share a domain suffix, pairing each resolved IP
// with a fixed port. It does not register or deregister records:
// chord nodes join the ring at runtime via Join, so Route53 here is
// read-only peer discovery, not service registration.
type Route53 struct {
	client       *route53.Client
	hostedZoneID string
	domainSuffix string
	port         int
}

// NewRoute53 builds a Route53 discoverer using the default AWS
// credential chain.
func NewRoute53(ctx context.Context, hostedZoneID, domainSuffix string, port int) (*Route53, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: loading AWS config: %w", err)
	}
	return &Route53{
		client:       route53.NewFromConfig(awsCfg),
		hostedZoneID: hostedZoneID,
		domainSuffix: strings.TrimSuffix(domainSuffix, "."),
		port:         port,
	}, nil
}

func (r *Route53) Discover(ctx context.Context) ([]string, error) {
	var out []string

	input := &route53.ListResourceRecordSetsInput{HostedZoneId: aws.String(r.hostedZoneID)}
	paginator := route53.NewListResourceRecordSetsPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: listing record sets: %w", err)
		}
		for _, rrset := range page.ResourceRecordSets {
			if rrset.Type != types.RRTypeA {
				continue
			}
			if !strings.HasSuffix(strings.TrimSuffix(aws.ToString(rrset.Name), "."), r.domainSuffix) {
				continue
			}
			for _, rr := range rrset.ResourceRecords {
				out = append(out, fmt.Sprintf("%s:%d", aws.ToString(rr.Value), r.port))
			}
		}
	}
	return out, nil
}
