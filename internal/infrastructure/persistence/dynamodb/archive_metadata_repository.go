package dynamodb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/application/port"
)

const (
	attrPK          = "PK"
	attrArtifactID  = "artifact_id"
	attrObjectKey   = "object_key"
	attrURL         = "url"
	attrContentType = "content_type"
	attrSourceURL   = "source_url"
	attrWidth       = "width"
	attrHeight      = "height"
	attrFullPage    = "full_page"
	attrSizeBytes   = "size_bytes"
	attrCapturedAt  = "captured_at"
	attrExpiresAt   = "expires_at"
)

type Config struct {
	TableName       string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// ArchiveMetadataRepository implements port.ArchiveMetadataRepository on
// DynamoDB. expires_at is written as an epoch number so the table's TTL
// attribute can expire records the same way the cache does.
type ArchiveMetadataRepository struct {
	client    *dynamodb.Client
	tableName string
}

func NewArchiveMetadataRepository(ctx context.Context, cfg Config) (*ArchiveMetadataRepository, error) {
	if strings.TrimSpace(cfg.TableName) == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	accessKeyID := strings.TrimSpace(cfg.AccessKeyID)
	secretAccessKey := strings.TrimSpace(cfg.SecretAccessKey)
	if accessKeyID != "" || secretAccessKey != "" {
		if accessKeyID == "" || secretAccessKey == "" {
			return nil, fmt.Errorf("both dynamodb access key id and secret access key are required for static credentials")
		}
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config for dynamodb: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(options *dynamodb.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			options.BaseEndpoint = &endpoint
		}
	})

	return &ArchiveMetadataRepository{
		client:    client,
		tableName: cfg.TableName,
	}, nil
}

// Put writes one archive record keyed by artifact identifier.
func (r *ArchiveMetadataRepository) Put(ctx context.Context, record port.ArchiveRecord) error {
	if strings.TrimSpace(record.ArtifactID) == "" {
		return fmt.Errorf("artifact id is required")
	}

	item := map[string]types.AttributeValue{
		attrPK:          &types.AttributeValueMemberS{Value: "ARTIFACT#" + record.ArtifactID},
		attrArtifactID:  &types.AttributeValueMemberS{Value: record.ArtifactID},
		attrObjectKey:   &types.AttributeValueMemberS{Value: record.ObjectKey},
		attrURL:         &types.AttributeValueMemberS{Value: record.URL},
		attrContentType: &types.AttributeValueMemberS{Value: record.ContentType},
		attrSourceURL:   &types.AttributeValueMemberS{Value: record.SourceURL},
		attrWidth:       &types.AttributeValueMemberN{Value: strconv.Itoa(record.Width)},
		attrHeight:      &types.AttributeValueMemberN{Value: strconv.Itoa(record.Height)},
		attrFullPage:    &types.AttributeValueMemberBOOL{Value: record.FullPage},
		attrSizeBytes:   &types.AttributeValueMemberN{Value: strconv.FormatInt(record.SizeBytes, 10)},
		attrCapturedAt:  &types.AttributeValueMemberS{Value: record.CapturedAt.UTC().Format("2006-01-02T15:04:05.000Z")},
		attrExpiresAt:   &types.AttributeValueMemberN{Value: strconv.FormatInt(record.ExpiresAt.Unix(), 10)},
	}

	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &r.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put archive record: %w", err)
	}
	return nil
}
