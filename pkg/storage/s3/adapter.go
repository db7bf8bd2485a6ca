package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"rtblob/pkg/storage"
	"rtblob/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

const (
	TypeName      = "AmazonS3"
	defaultRegion = "us-east-1"
	presignTTL    = 15 * time.Minute
)

func init() {
	storage.Register(TypeName, func(ctx context.Context, opts storage.Options) (storage.Backend, error) {
		return NewAdapter(ctx, ConfigFromOptions(opts))
	})
}

// API 是 Adapter 用到的 *s3.Client 方法子集
// 抽出来是为了单元测试可以注入假的客户端，不依赖 MinIO
type API interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Presigner 生成直链用；*s3.PresignClient 满足这个接口
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Adapter 实现了 storage.Backend 和 storage.URLer 接口
type Adapter struct {
	client    API
	presigner Presigner
	bucket    string
	endpoint  string
}

// Config 用于初始化 Adapter
type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

// ConfigFromOptions 从通用配置项里取出 S3 相关字段
func ConfigFromOptions(opts storage.Options) Config {
	return Config{
		Endpoint:        opts.Get("Endpoint"),
		Region:          opts.Get("Region"),
		Bucket:          opts.Get("Bucket"),
		AccessKeyID:     opts.Get("AccessKeyId"),
		SecretAccessKey: opts.Get("SecretAccessKey"),
	}
}

// Validate 按固定顺序检查必填项，错误信息精确到缺的是哪一项
func (c Config) Validate() error {
	switch {
	case c.AccessKeyID == "":
		return &storage.ConfigError{Backend: TypeName, Option: "AccessKeyId"}
	case c.SecretAccessKey == "":
		return &storage.ConfigError{Backend: TypeName, Option: "SecretAccessKey"}
	case c.Bucket == "":
		return &storage.ConfigError{Backend: TypeName, Option: "Bucket"}
	}
	return nil
}

// NewAdapter 初始化 S3 客户端 (适配 AWS SDK v2 最新规范)
func NewAdapter(ctx context.Context, cfg Config) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}

	// 1. 加载基础配置 (仅包含 Region 和 Credentials)
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, &storage.ConfigError{Backend: TypeName, Reason: "unable to load SDK config", Err: err}
	}

	// 2. 创建 S3 客户端时，注入特定于 S3 的配置
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// 如果指定了 Endpoint (比如 MinIO 的 localhost:9000)，则覆盖默认值
		// MinIO 必须强制使用 Path Style
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(ctx, client, s3.NewPresignClient(client), cfg)
}

// NewWithClient 用现成的客户端完成初始化：校验 bucket 清单可达，bucket 不存在就创建
func NewWithClient(ctx context.Context, client API, presigner Presigner, cfg Config) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	found, err := bucketExists(ctx, client, cfg.Bucket)
	if err != nil {
		return nil, &storage.ConfigError{Backend: TypeName, Reason: "failed to list buckets", Err: remote(err)}
	}
	if !found {
		in := &s3.CreateBucketInput{Bucket: aws.String(cfg.Bucket)}
		// us-east-1 以外的区域必须显式声明 LocationConstraint
		if cfg.Region != "" && cfg.Region != defaultRegion {
			in.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
				LocationConstraint: s3types.BucketLocationConstraint(cfg.Region),
			}
		}
		if _, err := client.CreateBucket(ctx, in); err != nil {
			// 并发创建时别人可能抢先建好了
			var owned *s3types.BucketAlreadyOwnedByYou
			if !errors.As(err, &owned) {
				return nil, &storage.ConfigError{Backend: TypeName, Option: "Bucket", Reason: "failed to create bucket " + cfg.Bucket, Err: remote(err)}
			}
		}
	}

	return &Adapter{
		client:    client,
		presigner: presigner,
		bucket:    cfg.Bucket,
		endpoint:  cfg.Endpoint,
	}, nil
}

func bucketExists(ctx context.Context, client API, bucket string) (bool, error) {
	in := &s3.ListBucketsInput{}
	for {
		out, err := client.ListBuckets(ctx, in)
		if err != nil {
			return false, err
		}
		for _, b := range out.Buckets {
			if aws.ToString(b.Name) == bucket {
				return true, nil
			}
		}
		if aws.ToString(out.ContinuationToken) == "" {
			return false, nil
		}
		in.ContinuationToken = out.ContinuationToken
	}
}

func (s *Adapter) Name() string { return TypeName }

// Bucket 返回当前使用的 bucket
func (s *Adapter) Bucket() string { return s.bucket }

// Identity 是 endpoint 加 bucket；没有 endpoint 时就是 AWS 本身
func (s *Adapter) Identity() string {
	return TypeName + ":" + s.endpoint + "/" + s.bucket
}

// transformKey 将 Key 转换为 S3 Key (Sharding)
// Logic: "aabbcc..." -> "aa/bbcc..."
func (s *Adapter) transformKey(key types.Key) string {
	k := string(key)
	return k[:2] + "/" + k[2:]
}

// Store 上传对象
func (s *Adapter) Store(ctx context.Context, key types.Key, data []byte) error {
	if err := storage.CheckKey(TypeName, "store", key); err != nil {
		return err
	}

	// 1. 幂等性检查 (去重)
	// 对于 S3，Head 请求比 Put 请求便宜且快。如果已存在，直接跳过。
	exists, err := s.Has(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	// 2. 执行上传
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.transformKey(key)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return storage.Wrap(TypeName, "store", key, remote(err))
	}
	return nil
}

// Get 下载对象
func (s *Adapter) Get(ctx context.Context, key types.Key) ([]byte, error) {
	if err := storage.CheckKey(TypeName, "get", key); err != nil {
		return nil, err
	}

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.transformKey(key)),
	})
	if err != nil {
		// 将 AWS 的 NoSuchKey 错误映射为我们自己的 ErrNotFound
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, storage.Wrap(TypeName, "get", key, storage.ErrNotFound)
		}
		return nil, storage.Wrap(TypeName, "get", key, remote(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, storage.Wrap(TypeName, "get", key, err)
	}
	return data, nil
}

// Has 检查对象是否存在
func (s *Adapter) Has(ctx context.Context, key types.Key) (bool, error) {
	if err := storage.CheckKey(TypeName, "head", key); err != nil {
		return false, err
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.transformKey(key)),
	})
	if err == nil {
		return true, nil
	}

	var notFound *s3types.NotFound
	var noKey *s3types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noKey) {
		return false, nil
	}
	// 兼容性：某些 S3 实现可能返回 generic 404 error string
	if strings.Contains(err.Error(), "StatusCode: 404") {
		return false, nil
	}
	return false, storage.Wrap(TypeName, "head", key, remote(err))
}

// URLFor 返回一个有时效的预签名下载链接
func (s *Adapter) URLFor(ctx context.Context, key types.Key) (string, error) {
	if err := storage.CheckKey(TypeName, "presign", key); err != nil {
		return "", err
	}
	if s.presigner == nil {
		return "", storage.Wrap(TypeName, "presign", key, errors.New("presigning is not available"))
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.transformKey(key)),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return "", storage.Wrap(TypeName, "presign", key, err)
	}
	return req.URL, nil
}

// remoteError 保留远端服务自己的错误码和错误文本
type remoteError struct {
	code    string
	message string
	err     error
}

func (e *remoteError) Error() string {
	if e.message == "" {
		return e.code
	}
	return e.code + ": " + e.message
}

func (e *remoteError) Unwrap() error { return e.err }

func remote(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &remoteError{code: apiErr.ErrorCode(), message: apiErr.ErrorMessage(), err: err}
	}
	return fmt.Errorf("s3 request failed: %w", err)
}
