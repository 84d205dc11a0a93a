/*
Copyright 2023 The Qovery Engine Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package aws

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	gocache "github.com/patrickmn/go-cache"

	"github.com/qovery/engine-go/pkg/cloudprovider/types"
)

type provider struct {
	creds types.Credentials
	// offerings caches DescribeInstanceTypeOfferings responses; they are
	// stable well beyond the lifetime of one commit.
	offerings *gocache.Cache
}

// New returns an AWS provider.
func New(creds types.Credentials) types.Provider {
	return &provider{
		creds:     creds,
		offerings: gocache.New(30*time.Minute, 10*time.Minute),
	}
}

func (p *provider) Kind() types.Kind { return types.KindAWS }

func (p *provider) ManagedKubernetesName() string { return "EKS" }

func (p *provider) SupportsPause() bool { return true }

func (p *provider) ProtectedTerraformResources() []string {
	return []string{"aws_eks_cluster"}
}

func (p *provider) CredentialEnvironmentVariables(region string) [][2]string {
	envs := [][2]string{
		{"AWS_ACCESS_KEY_ID", p.creds.AccessKeyID},
		{"AWS_SECRET_ACCESS_KEY", p.creds.SecretAccessKey},
		{"AWS_DEFAULT_REGION", region},
	}
	if p.creds.SessionToken != "" {
		envs = append(envs, [2]string{"AWS_SESSION_TOKEN", p.creds.SessionToken})
	}
	return envs
}

func (p *provider) Login(_ context.Context) error {
	// AWS tools authenticate straight from the environment.
	return nil
}

func (p *provider) sdkConfig(ctx context.Context, region string) (awssdk.Config, error) {
	return config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(p.creds.AccessKeyID, p.creds.SecretAccessKey, p.creds.SessionToken),
		),
	)
}

func (p *provider) ValidateCredentials(ctx context.Context, region string) error {
	cfg, err := p.sdkConfig(ctx, region)
	if err != nil {
		return err
	}
	if _, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); err != nil {
		return fmt.Errorf("AWS credentials rejected: %w", err)
	}
	return nil
}

func (p *provider) ValidateInstanceType(ctx context.Context, region, instanceType string) error {
	cacheKey := region + "/" + instanceType
	if v, found := p.offerings.Get(cacheKey); found {
		if v.(bool) {
			return nil
		}
		return fmt.Errorf("instance type %q is not offered in region %q", instanceType, region)
	}

	cfg, err := p.sdkConfig(ctx, region)
	if err != nil {
		return err
	}
	out, err := ec2.NewFromConfig(cfg).DescribeInstanceTypeOfferings(ctx, &ec2.DescribeInstanceTypeOfferingsInput{
		LocationType: ec2types.LocationTypeRegion,
		Filters: []ec2types.Filter{
			{Name: awssdk.String("location"), Values: []string{region}},
			{Name: awssdk.String("instance-type"), Values: []string{instanceType}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to list instance type offerings: %w", err)
	}
	offered := len(out.InstanceTypeOfferings) > 0
	p.offerings.Set(cacheKey, offered, gocache.DefaultExpiration)
	if !offered {
		return fmt.Errorf("instance type %q is not offered in region %q", instanceType, region)
	}
	return nil
}

func (p *provider) FetchKubeconfig(ctx context.Context, clusterName, region string) ([]byte, error) {
	cfg, err := p.sdkConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	out, err := eks.NewFromConfig(cfg).DescribeCluster(ctx, &eks.DescribeClusterInput{
		Name: awssdk.String(clusterName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe EKS cluster %q: %w", clusterName, err)
	}
	cluster := out.Cluster
	if cluster == nil || cluster.Endpoint == nil || cluster.CertificateAuthority == nil || cluster.CertificateAuthority.Data == nil {
		return nil, fmt.Errorf("EKS cluster %q has no reachable endpoint yet", clusterName)
	}
	if _, err := base64.StdEncoding.DecodeString(*cluster.CertificateAuthority.Data); err != nil {
		return nil, fmt.Errorf("EKS cluster %q returned an invalid certificate authority: %w", clusterName, err)
	}

	return renderKubeconfig(clusterName, region, *cluster.Endpoint, *cluster.CertificateAuthority.Data), nil
}

// renderKubeconfig emits an exec-auth kubeconfig; the aws CLI resolves the
// token from the same environment variables the engine exports.
func renderKubeconfig(clusterName, region, endpoint, caData string) []byte {
	return []byte(fmt.Sprintf(`apiVersion: v1
kind: Config
clusters:
- name: %[1]s
  cluster:
    server: %[2]s
    certificate-authority-data: %[3]s
contexts:
- name: %[1]s
  context:
    cluster: %[1]s
    user: %[1]s
current-context: %[1]s
users:
- name: %[1]s
  user:
    exec:
      apiVersion: client.authentication.k8s.io/v1beta1
      command: aws
      args:
      - eks
      - get-token
      - --cluster-name
      - %[1]s
      - --region
      - %[4]s
`, clusterName, endpoint, caData, region))
}
