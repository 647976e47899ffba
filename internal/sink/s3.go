package sink

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/hashicorp/go-hclog"
)

// S3Sink archives the run record as a JSON artifact in the tenant's bucket.
type S3Sink struct {
	uploader *s3manager.Uploader
	bucket   string
	prefix   string
	logger   hclog.Logger
}

func NewS3Sink(logger hclog.Logger, bucket, region, prefix string) (*S3Sink, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, err
	}

	return &S3Sink{
		uploader: s3manager.NewUploader(sess),
		bucket:   bucket,
		prefix:   prefix,
		logger:   logger,
	}, nil
}

func (s *S3Sink) Deliver(record *RunRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s/%s/report.json", s.prefix, record.RunID)
	result, err := s.uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return err
	}

	s.logger.Info("report archived", "runID", record.RunID, "location", result.Location)
	return nil
}
