package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for structuring observability spans and metrics.
var (
	AttrRecordName  = attribute.Key("structure.record_name")
	AttrChunkCount  = attribute.Key("structure.chunk_count")
	AttrRelCount    = attribute.Key("structure.relationship_count")
	AttrFieldCount  = attribute.Key("structure.field_count")
	AttrConfidence  = attribute.Key("structure.confidence")
	AttrChunkSize   = attribute.Key("structure.chunk_size")
	AttrOverlapSize = attribute.Key("structure.overlap_size")

	AttrExportFormat  = attribute.Key("export.format")
	AttrExportProfile = attribute.Key("export.profile")
	AttrExportBytes   = attribute.Key("export.bytes")

	AttrExtractType   = attribute.Key("extract.content_type")
	AttrExtractMethod = attribute.Key("extract.method")
	AttrSourceURL     = attribute.Key("extract.source_url")
)
