// Package storage 提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"biosearch-go/internal/config"
	"biosearch-go/pkg/log"
	"context"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectScheme 是对象存储路径的前缀，例如 "minio://ontologies/uberon.json"。
const ObjectScheme = "minio://"

// MinioClient 是一个全局的 MinIO 客户端实例。
var MinioClient *minio.Client

// InitMinIO 初始化 MinIO 客户端。
func InitMinIO(cfg config.MinIOConfig) error {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return errors.Wrap(err, "初始化 MinIO 客户端失败")
	}
	MinioClient = client
	log.Info("MinIO 客户端初始化成功")
	return nil
}

// ParseObjectURI 把 "minio://bucket/object" 拆分为存储桶和对象名。
func ParseObjectURI(uri string) (bucket, object string, ok bool) {
	rest, found := strings.CutPrefix(uri, ObjectScheme)
	if !found {
		return "", "", false
	}
	bucket, object, found = strings.Cut(rest, "/")
	if !found || bucket == "" || object == "" {
		return "", "", false
	}
	return bucket, object, true
}

// ReadObject 读取整个对象的内容。
func ReadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	if MinioClient == nil {
		return nil, errors.New("MinIO 客户端未初始化")
	}
	obj, err := MinioClient.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		log.Errorf("从MinIO下载文件失败, Bucket: %s, Object: %s, Error: %v", bucket, object, err)
		return nil, errors.Wrapf(err, "从 MinIO 下载 %s/%s 失败", bucket, object)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrapf(err, "读取 MinIO 对象 %s/%s 失败", bucket, object)
	}
	log.Infof("从MinIO读取对象成功, Bucket: %s, Object: %s, 大小: %d字节", bucket, object, len(data))
	return data, nil
}
