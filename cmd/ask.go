package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pdf-chatbot/internal/helper"
	"pdf-chatbot/internal/parser"
	"pdf-chatbot/internal/session"
)

func askCMD(cfgPath *string) *cobra.Command {
	var (
		filePath string
		queries  []string
		lastN    int
		dryRun   bool
	)
	ask := &cobra.Command{
		Use:   "ask",
		Short: "Index a local document and ask questions about it",
		Example: `  pdf-chatbot ask --file report.pdf --query "How many pages are there?"
  pdf-chatbot ask --file report.pdf --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if filePath == "" {
				return errors.New("--file is required")
			}
			if !dryRun && len(queries) == 0 {
				return errors.New("provide at least one --query, or --dry-run to only print chunks")
			}

			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			// local files are not limited to the upload whitelist
			cfg.Server.AllowedExtensions = []string{".pdf", ".docx", ".xlsx", ".xlsm", ".txt"}
			if !parser.IsSupported(filePath, cfg.Server.AllowedExtensions) {
				return fmt.Errorf("unsupported file: %s", filePath)
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if dryRun {
				chunks, err := a.uploader.Preview(filePath)
				if err != nil {
					return err
				}
				helper.PrettyPrint(chunks)
				return nil
			}

			res, err := a.uploader.IngestFile(ctx, filePath)
			if err != nil {
				return err
			}
			log.Info().Int("pages", res.PageCount).Int("chunks", res.NumChunks).Msg(res.Message)

			for _, q := range queries {
				answer, err := a.asker.Ask(ctx, q, lastN)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Q: %s\nA: %s\n(%s, %.2fs)\n\n", q, answer.Answer, answer.Route, answer.Elapsed.Seconds())
			}
			log.Debug().Msg(session.PrintHistory(a.asker.History(0)))
			return nil
		},
	}
	ask.Flags().StringVarP(&filePath, "file", "f", "", "path to the document file")
	ask.Flags().StringArrayVarP(&queries, "query", "q", nil, "question to ask; repeat for a conversation")
	ask.Flags().IntVar(&lastN, "last-n", 30, "number of previous turns given to the reasoning loop")
	ask.Flags().BoolVar(&dryRun, "dry-run", false, "print the chunks without indexing or asking")
	return ask
}
