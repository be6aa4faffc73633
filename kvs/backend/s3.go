/*
Copyright (C) 2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/launix-de/kvs"
)

// S3Config is how cmd/kvs-server's --backend s3 flags get plumbed down
// to the AWS SDK.
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
	Bucket          string
	Prefix          string
	ForcePathStyle  bool
}

// S3Store is a LogStore backed by S3 (or an S3-compatible service such as
// MinIO). S3 has no append primitive, so unlike LocalStore each
// generation's object is written whole on Close/Flush, grounded directly on
// storage/persistence-s3.go's buffer-then-PutObject s3WriteCloser.
type S3Store struct {
	cfg    S3Config
	prefix string

	mu     sync.Mutex
	client *s3.Client
}

func NewS3Store(cfg S3Config) *S3Store {
	prefix := strings.TrimSuffix(cfg.Prefix, "/")
	return &S3Store{cfg: cfg, prefix: prefix}
}

func (s *S3Store) ensureClient(ctx context.Context) (*s3.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}

	var opts []func(*config.LoadOptions) error
	if s.cfg.Region != "" {
		opts = append(opts, config.WithRegion(s.cfg.Region))
	}
	if s.cfg.AccessKeyID != "" && s.cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKeyID, s.cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if s.cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(s.cfg.Endpoint) })
	}
	if s.cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	s.client = s3.NewFromConfig(awsCfg, s3Opts...)
	return s.client, nil
}

func (s *S3Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *S3Store) objectKey(generation uint64) string {
	return s.key(strconv.FormatUint(generation, 10) + logSuffix)
}

func (s *S3Store) archiveKey(generation uint64) string {
	return s.key(strconv.FormatUint(generation, 10) + archiveSuffix)
}

func (s *S3Store) ListGenerations() ([]uint64, error) {
	ctx := context.Background()
	client, err := s.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	var gens []uint64
	pfx := s.key("")
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
		Prefix: aws.String(pfx),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects under %s: %w", pfx, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), pfx)
			if !strings.HasSuffix(name, logSuffix) || strings.HasSuffix(name, archiveSuffix) {
				continue
			}
			numPart := strings.TrimSuffix(name, logSuffix)
			gen, err := strconv.ParseUint(numPart, 10, 64)
			if err != nil {
				continue
			}
			gens = append(gens, gen)
		}
	}
	sort.Slice(gens, func(i, j int) bool { return gens[i] < gens[j] })
	return gens, nil
}

func (s *S3Store) Size(generation uint64) (uint64, error) {
	ctx := context.Background()
	client, err := s.ensureClient(ctx)
	if err != nil {
		return 0, err
	}
	out, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.objectKey(generation)),
	})
	if err != nil {
		return 0, nil // treat missing object as empty generation
	}
	return uint64(aws.ToInt64(out.ContentLength)), nil
}

func (s *S3Store) OpenAppend(generation uint64) (kvs.AppendFile, error) {
	return s.openWriterFor(s.objectKey(generation))
}

func (s *S3Store) OpenArchive(generation uint64) (kvs.AppendFile, error) {
	return s.openWriterFor(s.archiveKey(generation))
}

func (s *S3Store) openWriterFor(key string) (kvs.AppendFile, error) {
	ctx := context.Background()
	client, err := s.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	w := &s3AppendFile{client: client, bucket: s.cfg.Bucket, key: key}

	// An append-style backend must start from whatever is already there;
	// S3 objects are immutable, so we pull the current bytes in before the
	// first write and rewrite the whole object on every Flush.
	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr == nil {
			w.buf.Write(data)
		}
	}
	return w, nil
}

func (s *S3Store) OpenReader(generation uint64) (kvs.ReadAtCloser, error) {
	ctx := context.Background()
	client, err := s.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.objectKey(generation)),
	})
	if err != nil {
		return nil, fmt.Errorf("get object for generation %d: %w", generation, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read object for generation %d: %w", generation, err)
	}
	return &bytesReadAtCloser{r: bytes.NewReader(data)}, nil
}

func (s *S3Store) Remove(generation uint64) error {
	ctx := context.Background()
	client, err := s.ensureClient(ctx)
	if err != nil {
		return err
	}
	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.objectKey(generation)),
	})
	if err != nil {
		return fmt.Errorf("delete generation %d: %w", generation, err)
	}
	return nil
}

func (s *S3Store) ReadMarker() (string, error) {
	ctx := context.Background()
	client, err := s.ensureClient(ctx)
	if err != nil {
		return "", err
	}
	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(markerName)),
	})
	if err != nil {
		return "", nil
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read engine marker: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *S3Store) WriteMarker(engine string) error {
	ctx := context.Background()
	client, err := s.ensureClient(ctx)
	if err != nil {
		return err
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(markerName)),
		Body:   bytes.NewReader([]byte(engine)),
	})
	if err != nil {
		return fmt.Errorf("write engine marker: %w", err)
	}
	return nil
}

// s3AppendFile buffers writes in memory and rewrites the whole object on
// Flush, since S3 cannot append. kvs.Writer only ever calls Flush after a
// whole command has been written, so each Flush produces a consistent,
// replayable object.
type s3AppendFile struct {
	client *s3.Client
	bucket string
	key    string
	buf    bytes.Buffer
}

func (w *s3AppendFile) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *s3AppendFile) Flush() error {
	_, err := w.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.key),
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", w.key, err)
	}
	return nil
}

// Sync is a no-op: PutObject in Flush already made the write durable from
// this process's point of view, S3 has no separate fsync concept.
func (w *s3AppendFile) Sync() error { return nil }

func (w *s3AppendFile) Close() error { return w.Flush() }

type bytesReadAtCloser struct {
	r *bytes.Reader
}

func (b *bytesReadAtCloser) ReadAt(p []byte, off int64) (int, error) { return b.r.ReadAt(p, off) }
func (b *bytesReadAtCloser) Close() error                            { return nil }
