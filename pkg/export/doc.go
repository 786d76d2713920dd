// Package export writes tables and graphs for download.
//
// Tables are written as CSV ([WriteCSV]) or JSON ([WriteJSON]). Graphs are
// loaded with [LoadGraph] and written as JSON, Graphviz DOT ([ToDOT]) or
// SVG ([RenderSVG]).
//
// # Dependencies
//
// SVG rendering uses [github.com/goccy/go-graphviz], which runs Graphviz
// in-process.
package export
