// Package output renders contact-cli results.
//
// Every command hands its result to a Formatter chosen by --output:
//
//   - table: aligned columns for Tabular data, KEY/VALUE rows for maps
//   - json: indented JSON
//   - yaml: YAML, with the same keys as the JSON form
package output
