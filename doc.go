// Package maitre turns extracted restaurant data into chunked,
// relationship-annotated documents ready for RAG consumption.
//
// The root package defines the shared domain types:
//
//   - [Record]: a loosely-typed extraction result (missing key yields a default, never an error)
//   - [Chunk]: the atomic unit of structured output
//   - [ChunkBoundary]: a ranked candidate split point within a text
//   - [Relationship]: a typed, optionally bidirectional edge between chunks
//   - [StructuredResult]: the output envelope of a structuring run
//
// The pipeline lives in subpackages:
//
//	record -> structure.Structurer (chunking strategies)
//	       -> structure.Optimizer  (size/boundary normalization)
//	       -> structure.Enricher   (metadata annotation)
//	       -> structure.Mapper     (relationship graph)
//	       -> export.Manager       (JSON/JSONL/Parquet/CSV/XLSX serialization)
//
// The extract package parses webpage content (HTML, JSON-LD, markdown, PDF)
// into Records; the observer package provides OTEL instrumentation.
//
// Every structuring run is a pure function of (record, configuration): no
// component holds mutable state between calls, so all components are safe
// for concurrent use.
package maitre
