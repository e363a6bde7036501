// Package export writes the derived tables as CSV files with header rows and
// renders the Markdown analysis report.
package export
