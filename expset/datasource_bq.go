package expset

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/carbocation/pfx"
	"google.golang.org/api/iterator"
	"gopkg.in/guregu/null.v3"
)

// WrappedBigQuery bundles a BigQuery client with the context and dataset it
// operates on.
type WrappedBigQuery struct {
	Context  context.Context
	Client   *bigquery.Client
	Project  string
	Database string
}

// ConnectBigQuery opens a BigQuery client against the named project and
// dataset.
func ConnectBigQuery(ctx context.Context, project, database string) (*WrappedBigQuery, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return &WrappedBigQuery{
		Context:  ctx,
		Client:   client,
		Project:  project,
		Database: database,
	}, nil
}

// AnnotationFromBigQuery loads a sample annotation table from a BigQuery
// table. Every column other than idColumn becomes an annotation column;
// NULL cells load as null. Column order follows the table's schema.
func AnnotationFromBigQuery(wbq *WrappedBigQuery, table, idColumn string) (*Annotation, error) {
	query := wbq.Client.Query(fmt.Sprintf("SELECT * FROM `%s.%s.%s`", wbq.Project, wbq.Database, table))

	itr, err := query.Read(wbq.Context)
	if err != nil {
		return nil, pfx.Err(err)
	}

	var rows []map[string]bigquery.Value
	for {
		var row map[string]bigquery.Value
		err := itr.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, pfx.Err(err)
		}
		rows = append(rows, row)
	}

	// The iterator's schema is populated once rows have been fetched; it
	// preserves the table's column order where the row maps cannot.
	header := make([]string, 0, len(itr.Schema))
	for _, field := range itr.Schema {
		header = append(header, field.Name)
	}

	idIdx := -1
	for i, col := range header {
		if col == idColumn {
			idIdx = i
			break
		}
	}
	if idIdx < 0 {
		return nil, &MissingColumnError{Column: idColumn, Available: header}
	}

	columns := make([]string, 0, len(header)-1)
	for i, col := range header {
		if i == idIdx {
			continue
		}
		columns = append(columns, col)
	}

	ann := NewAnnotation(idColumn, columns)
	for _, row := range rows {
		idVal := row[idColumn]
		if idVal == nil {
			return nil, fmt.Errorf("table %s has a NULL %s", table, idColumn)
		}
		sample := fmt.Sprintf("%v", idVal)
		if ann.HasSample(sample) {
			return nil, fmt.Errorf("table %s has a duplicate %s %q", table, idColumn, sample)
		}
		ann.AddSample(sample)

		for _, col := range columns {
			v := row[col]
			if v == nil {
				ann.SetValue(sample, col, null.NewString("", false))
				continue
			}
			ann.SetValue(sample, col, null.StringFrom(fmt.Sprintf("%v", v)))
		}
	}

	return ann, nil
}
