// Package ingest converts uploaded payloads into tables and writes them to a
// store.
//
// Every payload goes through the same stages:
//
//  1. [Decode]: transcode UTF-16, strip a byte order mark, reject invalid UTF-8
//  2. Parse: one adapter per format ([ParseCSV], [ParseD3], [ParseNewick],
//     [ParseNestedJSON]) turns the text into an [Upload]
//  3. [Upload.Validate]: every table is checked with [table.Validate]
//  4. [Uploader]: tables are created and rows inserted
//
// Decode and syntax failures carry [errors.ErrCodeDecode] and are reported
// before any structural check. Structural problems are reported together as
// a [validation.Failed]. Nothing is written unless every table validates.
package ingest
