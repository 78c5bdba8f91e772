package errors

import "unicode/utf8"

// Constructors for the load error kinds. Each attaches the details a caller
// needs to locate the failure without parsing the message.

// SourceOpen reports a missing or unreadable source.
func SourceOpen(path string, cause error) *Error {
	return Wrap(cause, ErrorTypeSourceOpen, "cannot open source").WithDetail("path", path)
}

// SourceFormat reports a source that is not a valid columnar batch stream.
func SourceFormat(path string, cause error) *Error {
	return Wrap(cause, ErrorTypeSourceFormat, "not a columnar batch stream").WithDetail("path", path)
}

// DestinationOpen reports a destination connection failure.
func DestinationOpen(destination string, cause error) *Error {
	return Wrap(cause, ErrorTypeDestinationOpen, "cannot open destination").WithDetail("destination", destination)
}

// SchemaMapping names the column and logical type that has no storage mapping.
func SchemaMapping(column, logicalType string) *Error {
	return Newf(ErrorTypeSchemaMapping, "column %q has unsupported type %s", column, logicalType).
		WithDetail("column", column).
		WithDetail("type", logicalType)
}

// SchemaDrift reports a batch whose schema disagrees with the first batch.
func SchemaDrift(batch int, expected, got string) *Error {
	return Newf(ErrorTypeSchemaDrift, "batch %d schema differs from the first batch", batch).
		WithDetail("batch", batch).
		WithDetail("expected", expected).
		WithDetail("got", got)
}

// TableCreation reports a failed CREATE TABLE.
func TableCreation(table, statement string, cause error) *Error {
	return Wrap(cause, ErrorTypeTableCreation, "create table failed").
		WithDetail("table", table).
		WithDetail("statement", statement)
}

// TableDrop reports a failed DROP TABLE. It is non-fatal.
func TableDrop(table string, cause error) *Error {
	return Wrap(cause, ErrorTypeTableDrop, "drop table failed").WithDetail("table", table)
}

// maxStatementDetail bounds the statement text kept on an error.
const maxStatementDetail = 512

// StatementExecution reports a failed insert statement or append call.
func StatementExecution(batch, chunk int, statement string, cause error) *Error {
	if len(statement) > maxStatementDetail {
		cut := maxStatementDetail
		for cut > 0 && !utf8.RuneStart(statement[cut]) {
			cut--
		}
		statement = statement[:cut] + "..."
	}
	return Wrap(cause, ErrorTypeStatementExecution, "statement failed").
		WithDetail("batch", batch).
		WithDetail("chunk", chunk).
		WithDetail("statement", statement)
}

// PartialInsert reports a shortfall between rows read and rows persisted.
func PartialInsert(observed, inserted int64) *Error {
	return Newf(ErrorTypePartialInsert, "%d of %d rows were not persisted", observed-inserted, observed).
		WithDetail("observed", observed).
		WithDetail("inserted", inserted).
		WithDetail("shortfall", observed-inserted)
}

// InvariantViolation reports more rows persisted than read.
func InvariantViolation(observed, inserted int64) *Error {
	return Newf(ErrorTypeInvariantViolation, "destination reported %d rows inserted but only %d were read", inserted, observed).
		WithDetail("observed", observed).
		WithDetail("inserted", inserted)
}

// Canceled wraps a context error observed between chunks.
func Canceled(cause error) *Error {
	return Wrap(cause, ErrorTypeCanceled, "load canceled")
}
