package deploy

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// ArtifactChecker verifies the Lambda artifact exists before deploying.
type ArtifactChecker struct {
	S3 s3iface.S3API
}

// Check returns ErrArtifactMissing when s3://bucket/key does not exist.
func (c *ArtifactChecker) Check(ctx context.Context, bucket, key string) error {
	_, err := c.S3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return fmt.Errorf("%w: s3://%s/%s", ErrArtifactMissing, bucket, key)
	}
	return fmt.Errorf("checking artifact s3://%s/%s: %w", bucket, key, err)
}

// HeadObject reports a missing key as a bare 404 with code NotFound.
func isNotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case "NotFound", s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket:
			return true
		}
	}
	return false
}
