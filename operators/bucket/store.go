package bucket

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/minio/minio-go"

	"geojoin-go/config"
)

const objectURLPrefix = "s3://"

// openCache opens the cache source: a local file, or an object streamed from
// object storage when the path is an s3://bucket/key URL. Credentials come
// from the store section of the config (filled from the environment).
func openCache(name string, cfg *config.Config) (io.ReadCloser, error) {
	bucketName, key, ok := parseObjectURL(name)
	if !ok {
		return os.Open(name)
	}

	st := cfg.Store
	client, err := minio.New(st.EndpointURL, st.AccessKey, st.SecretKey, st.UseSSL)
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	obj, err := client.GetObject(bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	return obj, nil
}

func parseObjectURL(name string) (bucket, key string, ok bool) {
	if !strings.HasPrefix(name, objectURLPrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(name, objectURLPrefix)
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
