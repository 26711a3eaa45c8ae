// Package archive periodically snapshots the sale event log into parquet
// files on S3 for off-platform analytics.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
	"github.com/origins-network/sale-engine/modules/sale/datagateway"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
	"github.com/origins-network/sale-engine/pkg/logger"
	"github.com/origins-network/sale-engine/pkg/logger/slogx"
	"github.com/origins-network/sale-engine/pkg/parquetutils"
	cstream "github.com/planxnx/concurrent-stream"
	"github.com/samber/lo"
)

const (
	defaultInterval  = 15 * time.Minute
	defaultChunkSize = 10_000
	fetchBatchSize   = 1_000

	uploadConcurrency = 4
)

type Config struct {
	Disabled bool `mapstructure:"disabled"`

	// Interval between archive passes. Defaults to 15 minutes.
	Interval time.Duration `mapstructure:"interval"`

	// ChunkSize is the number of events per parquet file.
	ChunkSize int `mapstructure:"chunk_size"`

	Region string `mapstructure:"region"`
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

type Archiver struct {
	config   Config
	saleDg   datagateway.SaleDataGateway
	uploader *manager.Uploader

	// lastSeq is the highest event sequence number already archived.
	lastSeq uint64
}

func New(ctx context.Context, config Config, saleDg datagateway.SaleDataGateway) (*Archiver, error) {
	if config.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}
	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "can't load aws user config")
	}
	s3Client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if config.Region != "" {
			o.Region = config.Region
		}
	})

	if config.Interval <= 0 {
		config.Interval = defaultInterval
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = defaultChunkSize
	}

	return &Archiver{
		config:   config,
		saleDg:   saleDg,
		uploader: manager.NewUploader(s3Client),
	}, nil
}

// Run archives new events on every tick until the context is canceled.
func (a *Archiver) Run(ctx context.Context) error {
	ctx = logger.WithContext(ctx, slogx.String("package", "archive"))
	logger.InfoContext(ctx, "Event archiver started",
		slogx.Duration("interval", a.config.Interval),
		slogx.String("bucket", a.config.Bucket),
	)

	ticker := time.NewTicker(a.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.archiveOnce(ctx); err != nil {
				logger.ErrorContext(ctx, "Archive pass failed", slogx.Error(err))
			}
		}
	}
}

func (a *Archiver) archiveOnce(ctx context.Context) error {
	events, err := a.collectNewEvents(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to collect new events")
	}
	if len(events) == 0 {
		return nil
	}

	chunks := lo.Chunk(events, a.config.ChunkSize)
	out := make(chan error)
	stream := cstream.NewStream(ctx, uploadConcurrency, out)

	go func() {
		defer close(out)
		_ = stream.Wait()
	}()

	go func() {
		defer stream.Close()
		for _, chunk := range chunks {
			chunk := chunk
			stream.Go(func() error {
				return a.uploadChunk(ctx, chunk)
			})
		}
	}()

	var uploadErrs []error
	for err := range out {
		if err != nil {
			uploadErrs = append(uploadErrs, err)
		}
	}
	if len(uploadErrs) > 0 {
		return errors.Wrap(errors.Join(uploadErrs...), "failed to upload archive chunks")
	}

	a.lastSeq = events[len(events)-1].Seq
	logger.InfoContext(ctx, "Archived events",
		slogx.Int("count", len(events)),
		slogx.Uint64("last_seq", a.lastSeq),
	)
	return nil
}

// collectNewEvents pages through the event log starting after the last
// archived sequence number.
func (a *Archiver) collectNewEvents(ctx context.Context) ([]entity.Event, error) {
	var events []entity.Event
	fromSeq := a.lastSeq + 1
	for {
		batch, err := a.saleDg.GetEvents(ctx, datagateway.GetEventsParams{
			FromSeq: fromSeq,
			Limit:   fetchBatchSize,
		})
		if err != nil {
			return nil, errors.WithStack(err)
		}
		events = append(events, batch...)
		if len(batch) < fetchBatchSize {
			return events, nil
		}
		fromSeq = batch[len(batch)-1].Seq + 1
	}
}

func (a *Archiver) uploadChunk(ctx context.Context, events []entity.Event) error {
	records := lo.Map(events, func(e entity.Event, _ int) eventRecord { return recordFromEvent(e) })

	buffer := parquetutils.NewBufferFile()
	if err := parquetutils.WriteAll(buffer, records); err != nil {
		return errors.Wrap(err, "failed to encode parquet file")
	}

	key := a.objectKey(events[0].Seq, events[len(events)-1].Seq)
	if _, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.config.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(buffer.Bytes()),
	}); err != nil {
		return errors.Wrapf(err, "failed to upload %q", key)
	}
	return nil
}

func (a *Archiver) objectKey(firstSeq, lastSeq uint64) string {
	prefix := a.config.Prefix
	if prefix != "" && prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	return fmt.Sprintf("%sevents/events-%012d-%012d.parquet", prefix, firstSeq, lastSeq)
}
