package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/platewise/maitre/export"
)

var (
	exportOut      string
	exportFormat   string
	exportProfile  string
	exportCompress bool
)

var exportCmd = &cobra.Command{
	Use:   "export [result-id]",
	Short: "Export a previously saved structuring result",
	Long: `Loads a structuring result from the configured database by its id
and writes it out in the requested format.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "export format: json, jsonl, csv, xlsx, parquet")
	exportCmd.Flags().StringVarP(&exportProfile, "profile", "p", "", "export profile: chatbot, search, analytics")
	exportCmd.Flags().BoolVar(&exportCompress, "gzip", false, "gzip the output (file export only)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	sink, err := openSink(cmd)
	if err != nil {
		return err
	}
	defer sink.Close()

	result, err := sink.Load(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("load result %s: %w", args[0], err)
	}

	format := exportFormat
	if format == "" {
		format = cfg.Export.Format
	}

	mgrOpts := []export.Option{
		export.WithDefaultFormat(format),
		export.WithPrettyPrint(cfg.Export.PrettyPrint),
		export.WithIncludeMetadata(cfg.Export.IncludeMetadata),
		export.WithLogger(logger),
	}
	if exportCompress {
		mgrOpts = append(mgrOpts, export.WithCompression("gzip"))
	}
	if tracer != nil {
		mgrOpts = append(mgrOpts, export.WithExportTracer(tracer))
	}
	mgr := export.NewManager(mgrOpts...)

	data := export.FromResult(result)

	var exportOpts []export.ExportOption
	profile := exportProfile
	if profile == "" {
		profile = cfg.Export.Profile
	}
	if profile != "" {
		exportOpts = append(exportOpts, export.WithProfile(profile))
	}

	started := time.Now()
	if exportOut != "" {
		path, err := mgr.SaveToFile(data, exportOut, format, exportOpts...)
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
