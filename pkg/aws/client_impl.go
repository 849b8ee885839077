// Copyright 2025 Bidwell Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package aws

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// RealClient is a production implementation of the Client interface that
// makes real calls to AWS APIs using the AWS SDK v2.
//
// This implementation handles:
//   - Credential management using the AWS SDK default credential chain
//   - STS AssumeRole when AccountConfig.AssumeRoleARN is set
//   - Per-region client caching to avoid repeated AssumeRole calls
type RealClient struct {
	config ClientConfig

	mu         sync.Mutex
	ec2Clients map[string]*RealEC2Client // keyed by region
}

// EC2 returns an EC2Client for the specified account configuration.
// The client is cached per region so repeated calls within one process
// reuse assumed credentials.
func (c *RealClient) EC2(ctx context.Context, accountConfig AccountConfig) (EC2Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ec2Clients == nil {
		c.ec2Clients = make(map[string]*RealEC2Client)
	}
	if client, ok := c.ec2Clients[accountConfig.Region]; ok {
		return client, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(accountConfig.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	if accountConfig.AssumeRoleARN != "" {
		creds, err := c.assumeRole(ctx, awsCfg, accountConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to assume role %s: %w", accountConfig.AssumeRoleARN, err)
		}
		awsCfg.Credentials = creds
	}

	client := NewRealEC2Client(awsCfg, c.config)
	c.ec2Clients[accountConfig.Region] = client
	return client, nil
}

// assumeRole performs an STS AssumeRole operation and returns static
// credentials for the assumed role session.
func (c *RealClient) assumeRole(
	ctx context.Context,
	awsCfg aws.Config,
	accountConfig AccountConfig,
) (credentials.StaticCredentialsProvider, error) {
	stsOpts := []func(*sts.Options){}
	if c.config.EndpointURL != "" {
		stsOpts = append(stsOpts, func(o *sts.Options) {
			o.BaseEndpoint = &c.config.EndpointURL
		})
	}
	stsClient := sts.NewFromConfig(awsCfg, stsOpts...)

	sessionName := accountConfig.SessionName
	if sessionName == "" {
		sessionName = "bidwell"
	}

	result, err := stsClient.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         &accountConfig.AssumeRoleARN,
		RoleSessionName: &sessionName,
	})
	if err != nil {
		return credentials.StaticCredentialsProvider{}, err
	}

	return credentials.StaticCredentialsProvider{
		Value: aws.Credentials{
			AccessKeyID:     *result.Credentials.AccessKeyId,
			SecretAccessKey: *result.Credentials.SecretAccessKey,
			SessionToken:    *result.Credentials.SessionToken,
		},
	}, nil
}
