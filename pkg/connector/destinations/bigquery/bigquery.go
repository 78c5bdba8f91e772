// Package bigquery implements the BigQuery destination on
// cloud.google.com/go/bigquery. Every statement runs as a query job against
// one dataset and DML jobs report their affected row count. BigQuery has no
// client-side transactions, so loads run statement by statement.
package bigquery

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/arrowload/pkg/config"
	"github.com/ajitpratap0/arrowload/pkg/connector/base"
	"github.com/ajitpratap0/arrowload/pkg/connector/core"
	"github.com/ajitpratap0/arrowload/pkg/connector/registry"
	"github.com/ajitpratap0/arrowload/pkg/errors"
	"github.com/ajitpratap0/arrowload/pkg/logger"
	stringpool "github.com/ajitpratap0/arrowload/pkg/strings"
)

// Name is the registered destination name
const Name = "bigquery"

// sqlDialect is GoogleSQL: backtick identifiers and backslash escapes in
// string literals, where a doubled quote is not an escape.
type sqlDialect struct {
	*base.StandardDialect
}

var dialect = func() *sqlDialect {
	d := base.DefaultDialect(Name)
	d.Quote = '`'
	d.Types[core.FieldTypeBool] = "BOOL"
	d.Types[core.FieldTypeInt] = "INT64"
	d.Types[core.FieldTypeFloat] = "FLOAT64"
	d.Types[core.FieldTypeVarchar] = "STRING"
	d.Types[core.FieldTypeBlob] = "BYTES"
	// string literals do not coerce to JSON
	d.Types[core.FieldTypeJSON] = "STRING"
	d.NaN = "CAST('nan' AS FLOAT64)"
	d.PosInf = "CAST('inf' AS FLOAT64)"
	d.NegInf = "CAST('-inf' AS FLOAT64)"
	d.BinaryPrefix = "FROM_HEX('"
	d.BinarySuffix = "')"
	return &sqlDialect{StandardDialect: d}
}()

// Dialect returns the BigQuery SQL dialect.
func Dialect() core.Dialect {
	return dialect
}

func (d *sqlDialect) QuoteIdentifier(name string) string {
	return stringpool.BuildString(func(b *stringpool.Builder) {
		b.WriteByte('`')
		for i := 0; i < len(name); i++ {
			if c := name[i]; c == '`' || c == '\\' {
				b.WriteByte('\\')
			}
			b.WriteByte(name[i])
		}
		b.WriteByte('`')
	})
}

func (d *sqlDialect) StringLiteral(s string) string {
	return stringpool.BuildWith(stringpool.SizeFor(len(s)+2), func(b *stringpool.Builder) {
		b.WriteByte('\'')
		for i := 0; i < len(s); i++ {
			switch c := s[i]; c {
			case '\'', '\\':
				b.WriteByte('\\')
				b.WriteByte(c)
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			default:
				b.WriteByte(c)
			}
		}
		b.WriteByte('\'')
	})
}

// Destination is one BigQuery dataset
type Destination struct {
	client   *bigquery.Client
	project  string
	dataset  string
	location string
	timeout  time.Duration
	logger   *zap.Logger
}

var _ core.Destination = (*Destination)(nil)

// Open creates a client for bigquery://project/dataset. Supported query
// parameters are location, endpoint, access_token and credentials_file.
func Open(ctx context.Context, target *registry.Target, cfg *config.BaseConfig) (*Destination, error) {
	if cfg == nil {
		cfg = config.NewBaseConfig("")
	}
	if target.URL == nil || target.URL.Host == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "bigquery destination needs bigquery://project/dataset")
	}
	dataset := strings.Trim(target.URL.Path, "/")
	if dataset == "" || strings.Contains(dataset, "/") {
		return nil, errors.Newf(errors.ErrorTypeConfig, "bigquery destination needs exactly one dataset, got %q", dataset)
	}

	client, err := bigquery.NewClient(ctx, target.URL.Host, ClientOptions(target, cfg)...)
	if err != nil {
		return nil, errors.DestinationOpen(target.Redacted(), err)
	}

	return &Destination{
		client:   client,
		project:  target.URL.Host,
		dataset:  dataset,
		location: target.Option("location"),
		timeout:  cfg.Timeouts.Statement,
		logger: logger.Get().With(
			zap.String("component", "destination"),
			zap.String("destination", Name),
			zap.String("dataset", dataset)),
	}, nil
}

// ClientOptions selects authentication. An endpoint targets an emulator
// without credentials; otherwise an access token, a service account key
// file or Application Default Credentials are used, in that order.
func ClientOptions(target *registry.Target, cfg *config.BaseConfig) []option.ClientOption {
	if endpoint := target.Option("endpoint"); endpoint != "" {
		return []option.ClientOption{option.WithEndpoint(endpoint), option.WithoutAuthentication()}
	}
	if token := target.Option("access_token"); token != "" {
		return []option.ClientOption{option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))}
	}
	file := target.Option("credentials_file")
	if file == "" && cfg != nil {
		file = cfg.Destination.Credentials["credentials_file"]
	}
	if file != "" {
		return []option.ClientOption{option.WithCredentialsFile(file)}
	}
	return nil
}

func (d *Destination) Name() string { return Name }

func (d *Destination) Dialect() core.Dialect { return dialect }

// run executes stmt as a query job and waits for it to finish.
func (d *Destination) run(ctx context.Context, stmt string) (*bigquery.JobStatus, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	q := d.client.Query(stmt)
	q.DefaultProjectID = d.project
	q.DefaultDatasetID = d.dataset
	q.Location = d.location

	job, err := q.Run(ctx)
	if err != nil {
		return nil, err
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if err := status.Err(); err != nil {
		return nil, err
	}
	d.logger.Debug("job finished", zap.String("job_id", job.ID()))
	return status, nil
}

func (d *Destination) ExecDDL(ctx context.Context, stmt string) error {
	_, err := d.run(ctx, stmt)
	return err
}

func (d *Destination) ExecDML(ctx context.Context, stmt string) (int64, error) {
	status, err := d.run(ctx, stmt)
	if err != nil {
		return 0, err
	}
	stats, ok := status.Statistics.Details.(*bigquery.QueryStatistics)
	if !ok {
		return 0, errors.New(errors.ErrorTypeInternal, "query job reported no DML statistics")
	}
	return stats.NumDMLAffectedRows, nil
}

func (d *Destination) SupportsTransactions() bool { return false }

func (d *Destination) BeginTransaction(context.Context) (core.Transaction, error) {
	return nil, errors.New(errors.ErrorTypeCapability, "bigquery destination does not support transactions")
}

// Health reads the dataset metadata.
func (d *Destination) Health(ctx context.Context) error {
	_, err := d.client.Dataset(d.dataset).Metadata(ctx)
	return err
}

func (d *Destination) Close(context.Context) error {
	return d.client.Close()
}

func init() {
	_ = registry.RegisterDestination(core.ConnectorMetadata{
		Name:        Name,
		Description: "Google BigQuery query jobs, multi-row INSERT without transactions",
		Schemes:     []string{"bigquery", "bq"},
	}, func(ctx context.Context, target *registry.Target, cfg *config.BaseConfig) (core.Destination, error) {
		return Open(ctx, target, cfg)
	})
}
