package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	maitre "github.com/platewise/maitre"
	"github.com/platewise/maitre/export"
	"github.com/platewise/maitre/structure"
)

var (
	structureOut       string
	structureFormat    string
	structureProfile   string
	structureMode      string
	structureOptimize  bool
	structureNoEnrich  bool
	structureSave      bool
	structureHandleGap bool
)

var structureCmd = &cobra.Command{
	Use:   "structure [record.json]",
	Short: "Structure a restaurant record into RAG-ready chunks",
	Long: `Reads a restaurant record from a JSON file (or stdin when the
argument is "-") and produces chunks, metadata, and a relationship graph.

Modes: rag (default), hierarchy, summary, temporal, multimodal.`,
	Args: cobra.ExactArgs(1),
	RunE: runStructure,
}

func init() {
	structureCmd.Flags().StringVarP(&structureOut, "out", "o", "", "output file (default stdout)")
	structureCmd.Flags().StringVarP(&structureFormat, "format", "f", "", "export format: json, jsonl, csv, xlsx, parquet")
	structureCmd.Flags().StringVarP(&structureProfile, "profile", "p", "", "export profile: chatbot, search, analytics")
	structureCmd.Flags().StringVarP(&structureMode, "mode", "m", "rag", "structuring mode")
	structureCmd.Flags().BoolVar(&structureOptimize, "optimize", true, "optimize chunk sizes after structuring")
	structureCmd.Flags().BoolVar(&structureNoEnrich, "no-enrich", false, "skip metadata enrichment")
	structureCmd.Flags().BoolVar(&structureSave, "save", false, "save the result to the configured database")
	structureCmd.Flags().BoolVar(&structureHandleGap, "handle-missing", true, "flag missing expected fields in metadata")
	rootCmd.AddCommand(structureCmd)
}

func runStructure(cmd *cobra.Command, args []string) error {
	record, err := readRecord(args[0])
	if err != nil {
		return err
	}

	s := newStructurer()
	started := time.Now()
	result, err := runMode(cmd, s, record)
	if err != nil {
		return err
	}
	insts.RecordStructureRun(cmd.Context(), result, structureMode, float64(time.Since(started).Milliseconds()))

	if structureOptimize {
		opt := structure.NewOptimizer(
			structure.WithMaxChunkSize(cfg.Optimizer.MaxChunkSize),
			structure.WithMinChunkSize(cfg.Optimizer.MinChunkSize),
			structure.WithOverlapSize(cfg.Optimizer.OverlapSize),
			structure.WithPreserveSentences(cfg.Optimizer.PreserveSentences),
			structure.WithOptimizerLogger(logger),
		)
		result.Chunks = opt.OptimizeChunks(result.Chunks)
	}

	if structureSave {
		sink, err := openSink(cmd)
		if err != nil {
			return err
		}
		defer sink.Close()
		id, err := sink.Save(cmd.Context(), result)
		if err != nil {
			return fmt.Errorf("save result: %w", err)
		}
		logger.Info("result saved", "result_id", id)
	}

	return writeResult(cmd, result)
}

func newStructurer() *structure.Structurer {
	opts := []structure.StructurerOption{
		structure.WithChunkSize(cfg.Structurer.ChunkSize),
		structure.WithStructurerOverlap(cfg.Structurer.OverlapSize),
		structure.WithSummaries(cfg.Structurer.EnableSummaries),
		structure.WithStructurerLogger(logger),
	}
	if tracer != nil {
		opts = append(opts, structure.WithTracer(tracer))
	}
	if !structureNoEnrich {
		opts = append(opts, structure.WithEnricher(structure.NewEnricher(
			structure.WithDomainKeywords(cfg.Enricher.DomainKeywords),
			structure.WithEmbeddingHints(cfg.Enricher.EmbeddingHints),
			structure.WithTemporalMetadata(cfg.Enricher.TemporalMetadata),
			structure.WithEnricherLogger(logger),
		)))
	}
	return structure.NewStructurer(opts...)
}

func runMode(cmd *cobra.Command, s *structure.Structurer, record maitre.Record) (maitre.StructuredResult, error) {
	switch structureMode {
	case "rag":
		opts := []structure.StructureOption{}
		if !structureNoEnrich {
			opts = append(opts, structure.WithMetadataEnrichment())
		}
		if structureHandleGap {
			opts = append(opts, structure.WithMissingDataHandling())
		}
		return s.StructureForRAG(cmd.Context(), record, opts...), nil
	case "hierarchy":
		return s.CreateHierarchy(record), nil
	case "summary":
		return s.GenerateSummary(record), nil
	case "temporal":
		return s.StructureTemporal(record), nil
	case "multimodal":
		return s.StructureMultimodal(record), nil
	default:
		return maitre.StructuredResult{}, fmt.Errorf("unknown mode %q", structureMode)
	}
}

func readRecord(path string) (maitre.Record, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	var record maitre.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	return record, nil
}

func writeResult(cmd *cobra.Command, result maitre.StructuredResult) error {
	format := structureFormat
	if format == "" {
		format = cfg.Export.Format
	}

	mgrOpts := []export.Option{
		export.WithDefaultFormat(format),
		export.WithPrettyPrint(cfg.Export.PrettyPrint),
		export.WithIncludeMetadata(cfg.Export.IncludeMetadata),
		export.WithLogger(logger),
	}
	if tracer != nil {
		mgrOpts = append(mgrOpts, export.WithExportTracer(tracer))
	}
	mgr := export.NewManager(mgrOpts...)

	data := export.FromResult(result)

	var exportOpts []export.ExportOption
	profile := structureProfile
	if profile == "" {
		profile = cfg.Export.Profile
	}
	if profile != "" {
		exportOpts = append(exportOpts, export.WithProfile(profile))
	}

	started := time.Now()
	if structureOut != "" {
		path, err := mgr.SaveToFile(data, structureOut, format, exportOpts...)
		if err != nil {
			return err
		}
		insts.RecordExport(cmd.Context(), format, profile, 0, float64(time.Since(started).Milliseconds()))
		logger.Info("export written", "path", path, "format", format)
		return nil
	}

	out, err := mgr.Export(data, format, exportOpts...)
	if err != nil {
		return err
	}
	insts.RecordExport(cmd.Context(), format, profile, len(out), float64(time.Since(started).Milliseconds()))
	cmd.OutOrStdout().Write(out)
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
