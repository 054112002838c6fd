package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anime-shed/media-inspector-go/internal/features"
	"github.com/anime-shed/media-inspector-go/internal/media"
	"github.com/anime-shed/media-inspector-go/internal/render"
	"github.com/anime-shed/media-inspector-go/internal/service"
)

var (
	filePath    string
	mediaURL    string
	inlineText  string
	featureList []string
	toggleList  []string
	runAll      bool
	format      string
)

var analyzeCmd = &cobra.Command{
	Use:       "analyze <image|video|audio|text>",
	Short:     "Analyze one file, URL or text",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"image", "video", "audio", "text"},
	RunE: func(cmd *cobra.Command, args []string) error {
		mt, err := features.ParseMediaType(args[0])
		if err != nil {
			return err
		}
		if format != "text" && format != "json" {
			return fmt.Errorf("unsupported format %q (want text or json)", format)
		}

		req := service.Request{
			MediaType: mt,
			URL:       mediaURL,
			Text:      inlineText,
			Toggle:    toggleList,
			RunAll:    runAll,
		}
		if cmd.Flags().Changed("features") {
			req.Features = featureList
		}
		if filePath != "" {
			data, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", filePath, err)
			}
			req.File = &media.File{Name: filepath.Base(filePath), Data: data}
		}

		c, err := openContainer(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.AnalysisService().Analyze(cmd.Context(), req)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if format == "json" {
			data, err := render.ExportJSON(resp.Results)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, string(data))
			return err
		}
		if len(resp.Results) == 0 {
			_, err = fmt.Fprintln(out, "No features selected.")
			return err
		}
		return render.Text(out, mt, resp.Results)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&filePath, "file", "", "local file to upload")
	analyzeCmd.Flags().StringVar(&mediaURL, "url", "", "remote media URL (http, https, gs, s3)")
	analyzeCmd.Flags().StringVar(&inlineText, "text", "", "inline text (text analysis only)")
	analyzeCmd.Flags().StringSliceVar(&featureList, "features", nil,
		"features to enable, e.g. "+strings.Join(features.Names(features.Image), ","))
	analyzeCmd.Flags().StringSliceVar(&toggleList, "toggle", nil, "features to flip on top of the default or --features selection")
	analyzeCmd.Flags().BoolVar(&runAll, "all", false, "enable every feature of the media type")
	analyzeCmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	analyzeCmd.MarkFlagsMutuallyExclusive("file", "url", "text")
}
