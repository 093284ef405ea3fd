package models

import "fmt"

// IssueKind classifies a validation finding.
type IssueKind string

const (
	IssueExecutionError     IssueKind = "execution_error"
	IssueTooFewRows         IssueKind = "too_few_rows"
	IssueTooManyRows        IssueKind = "too_many_rows"
	IssueAggregationShape   IssueKind = "aggregation_shape"
	IssueCountyFieldMisuse  IssueKind = "county_field_misuse"
	IssuePriceRangeEncoding IssueKind = "price_range_encoding"
)

// Issue is a single validation finding. Implementations are small value
// types so the corrector can switch on Kind and read structured fields.
type Issue interface {
	Kind() IssueKind
	Describe() string
}

// ExecutionError reports that the database rejected or aborted the query.
type ExecutionError struct {
	Msg string
}

func (e ExecutionError) Kind() IssueKind { return IssueExecutionError }
func (e ExecutionError) Describe() string {
	return fmt.Sprintf("execution failed: %s", e.Msg)
}

// TooFewRows reports a result below the expected cardinality band.
type TooFewRows struct {
	Got int
	Min int
}

func (e TooFewRows) Kind() IssueKind { return IssueTooFewRows }
func (e TooFewRows) Describe() string {
	return fmt.Sprintf("returned %d rows, expected at least %d", e.Got, e.Min)
}

// TooManyRows reports a result above the expected cardinality band.
type TooManyRows struct {
	Got int
	Max int
}

func (e TooManyRows) Kind() IssueKind { return IssueTooManyRows }
func (e TooManyRows) Describe() string {
	return fmt.Sprintf("returned %d rows, expected at most %d", e.Got, e.Max)
}

// AggregationShape reports a mismatch between the requested aggregation
// and the shape of the SQL or its result.
type AggregationShape struct {
	Reason string
}

func (e AggregationShape) Kind() IssueKind  { return IssueAggregationShape }
func (e AggregationShape) Describe() string { return e.Reason }

// CountyFieldMisuse reports a county token filtered through the
// property_type column instead of the address county field.
type CountyFieldMisuse struct {
	County string
}

func (e CountyFieldMisuse) Kind() IssueKind { return IssueCountyFieldMisuse }
func (e CountyFieldMisuse) Describe() string {
	return fmt.Sprintf("county %q filtered via property_type instead of address county", e.County)
}

// PriceRangeEncoding reports a bounded price constraint expressed without
// a BETWEEN clause.
type PriceRangeEncoding struct {
	Reason string
}

func (e PriceRangeEncoding) Kind() IssueKind  { return IssuePriceRangeEncoding }
func (e PriceRangeEncoding) Describe() string { return e.Reason }

// DescribeIssues renders issues as a compact message list for history
// entries and logs.
func DescribeIssues(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.Describe())
	}
	return out
}
