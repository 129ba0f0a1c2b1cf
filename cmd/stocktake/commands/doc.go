// Package commands implements the stocktake command line: summarising an
// item list, exporting it as CSV and counting an area from the terminal.
package commands
