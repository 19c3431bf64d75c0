package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/aws/aws-sdk-go/aws"                  //nolint:staticcheck // TODO: Migrate to aws-sdk-go-v2
	"github.com/aws/aws-sdk-go/aws/awserr"           //nolint:staticcheck
	"github.com/aws/aws-sdk-go/aws/session"          //nolint:staticcheck
	"github.com/aws/aws-sdk-go/service/s3"           //nolint:staticcheck
	"github.com/aws/aws-sdk-go/service/s3/s3manager" //nolint:staticcheck
)

// downloader is the subset of s3manager.Downloader used here
type downloader interface {
	DownloadWithContext(
		ctx aws.Context, w io.WriterAt, input *s3.GetObjectInput, options ...func(*s3manager.Downloader),
	) (int64, error)
}

// S3Fetcher downloads bundles from an S3 bucket into Dir
type S3Fetcher struct {
	bucket     string
	dir        string
	downloader downloader
}

// NewS3Fetcher creates an S3 bundle fetcher using the default credential chain
func NewS3Fetcher(region, bucket, dir string) (*S3Fetcher, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	return &S3Fetcher{
		bucket:     bucket,
		dir:        dir,
		downloader: s3manager.NewDownloader(sess),
	}, nil
}

// Fetch returns the cached bundle or downloads s3://bucket/<name>
func (f *S3Fetcher) Fetch(ctx context.Context, name string) (string, error) {
	path, err := cachePath(f.dir, name)
	if err != nil {
		return "", err
	}
	if cached(path) {
		return path, nil
	}

	log.Printf("📦 Downloading bundle %s from s3://%s", name, f.bucket)

	err = writeAtomic(path, func(out *os.File) error {
		_, err := f.downloader.DownloadWithContext(ctx, out, &s3.GetObjectInput{
			Bucket: aws.String(f.bucket),
			Key:    aws.String(name),
		})
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrBundleNotFound, name)
		}
		if err != nil {
			return fmt.Errorf("download bundle %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	log.Printf("✅ Bundle %s cached at %s", name, path)
	return path, nil
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
			return true
		}
	}
	return false
}
