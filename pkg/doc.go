// Package pkg holds the multinet libraries.
//
// Multinet stores tables and graphs in isolated workspaces. Node tables are
// keyed by "_key"; edge tables carry "_from" and "_to" references of the
// form "table/key"; a graph names one edge table plus the node tables its
// references resolve to.
//
// # Layout
//
//   - [table]: rows, reference parsing, shape validation and typecasting
//   - [ingest]: CSV, D3 JSON, Newick and nested JSON adapters plus the uploader
//   - [graphbuild]: referential checks and graph creation
//   - [metadata]: column types and the cached metadata service
//   - [store]: memory, SQLite and MongoDB backends
//   - [cache]: null, memory, file and Redis caches
//   - [query], [export]: reading and downloading tables and graphs
//   - [api]: the HTTP surface
//   - [validation], [errors]: error types shared by all of the above
//   - [config], [observability], [buildinfo]: ambient plumbing
//
// # Data Flow
//
//	payload bytes
//	     ↓
//	[ingest] Decode → parse → validate → typecast
//	     ↓
//	[store] CreateTable → InsertRows (→ metadata)
//	     ↓
//	[graphbuild] resolve references → CreateGraph
//	     ↓
//	[export] CSV / JSON / DOT / SVG
package pkg
