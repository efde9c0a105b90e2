package layer

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// LambdaAPI is the slice of the Lambda control plane the publisher needs.
// The SDK client satisfies it.
type LambdaAPI interface {
	PublishLayerVersion(ctx context.Context, params *awslambda.PublishLayerVersionInput, optFns ...func(*awslambda.Options)) (*awslambda.PublishLayerVersionOutput, error)
}

// Version identifies one published layer version.
type Version struct {
	Number int64
	ARN    string
}

// Publisher pushes built archives to the platform as new layer versions.
type Publisher struct {
	Client LambdaAPI
}

// Publish registers the archive as a new version of the spec's layer and
// returns the assigned version number and ARN. Archives over the direct
// upload limit are rejected before any network call.
func (p *Publisher) Publish(ctx context.Context, spec Spec, archive []byte) (*Version, error) {
	if spec.Name == "" {
		return nil, errors.New("layer: spec has no layer name")
	}
	if len(archive) == 0 {
		return nil, errors.New("layer: archive is empty")
	}
	if len(archive) > MaxArchiveBytes {
		return nil, fmt.Errorf("layer: archive is %d bytes which exceeds the %d byte direct upload limit", len(archive), MaxArchiveBytes)
	}

	input := &awslambda.PublishLayerVersionInput{
		LayerName: aws.String(spec.Name),
		Content:   &types.LayerVersionContentInput{ZipFile: archive},
	}
	for _, r := range spec.CompatibleRuntimes {
		input.CompatibleRuntimes = append(input.CompatibleRuntimes, types.Runtime(r))
	}
	for _, a := range spec.CompatibleArchitectures {
		input.CompatibleArchitectures = append(input.CompatibleArchitectures, types.Architecture(a))
	}
	if spec.Description != "" {
		input.Description = aws.String(spec.Description)
	}
	if spec.LicenseInfo != "" {
		input.LicenseInfo = aws.String(spec.LicenseInfo)
	}

	out, err := p.Client.PublishLayerVersion(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("layer: publish %s: %w", spec.Name, err)
	}
	return &Version{
		Number: out.Version,
		ARN:    aws.ToString(out.LayerVersionArn),
	}, nil
}
