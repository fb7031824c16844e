package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"daan-backend/internal/timeutil"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ProofStore keeps payment proof files (screenshots, cheque scans) in
// an R2 bucket. Callers store only the returned reference string on the
// payment record and treat it as opaque.
type ProofStore struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	PublicURL string
}

// New builds a ProofStore. Returns nil when the bucket is not
// configured; uploads are then rejected at the handler.
func New(ctx context.Context, opts Options) *ProofStore {
	if opts.Endpoint == "" || opts.Bucket == "" {
		log.Printf("[Storage] proof bucket not configured, uploads disabled")
		return nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)),
		awsconfig.WithRegion(opts.Region),
	)
	if err != nil {
		log.Printf("[Storage] failed to configure R2 client: %v", err)
		return nil
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.Endpoint)
	})

	return &ProofStore{client: client, bucket: opts.Bucket, publicURL: strings.TrimSuffix(opts.PublicURL, "/")}
}

// UploadProof stores one proof file and returns its reference.
func (p *ProofStore) UploadProof(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	key := proofKey(filename)

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload proof: %w", err)
	}

	if p.publicURL != "" {
		return p.publicURL + "/" + key, nil
	}
	return key, nil
}

// proofKey builds a collision-resistant object key, partitioned by
// month for manual housekeeping.
func proofKey(filename string) string {
	var buf [8]byte
	rand.Read(buf[:])
	now := timeutil.Now()
	ext := path.Ext(filename)
	if len(ext) > 8 {
		ext = ""
	}
	return fmt.Sprintf("proofs/%04d/%02d/%s%s", now.Year(), int(now.Month()), hex.EncodeToString(buf[:]), ext)
}
