package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ChatBooks/internal/config"
	"ChatBooks/internal/initial"
	"ChatBooks/pkg/zlog"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newIngestCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Ingest book files into the vector store",
		Long:  "Ingest the given files, or every file in the books directory with --all. Files that already have a processed marker are skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return errors.New("no files given (use --all to scan the books directory)")
			}
			ctx := cmd.Context()
			c, err := initial.NewContainer(ctx, config.GetConfig(), initial.WithoutKafka())
			if err != nil {
				return err
			}
			defer c.Close()

			out := cmd.OutOrStdout()
			if all {
				res, err := c.LibrarySvc.Sync(ctx)
				if err != nil {
					return err
				}
				for _, it := range res.Items {
					fmt.Fprintf(out, "%-12s %s %s\n", it.Status, it.Name, it.Error)
				}
				fmt.Fprintf(out, "ingested %d, failed %d in %dms\n", res.Ingested, res.Failed, res.DurationMs)
				return nil
			}

			failed := 0
			for _, path := range args {
				res, err := c.IngestSvc.Ingest(ctx, path)
				if err != nil {
					failed++
					fmt.Fprintf(out, "%-12s %s %v\n", "failed", path, err)
					continue
				}
				fmt.Fprintf(out, "%-12s %s chunks=%d\n", res.Status, path, res.Chunks)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "ingest every file in the books directory")
	return cmd
}

func newAskCmd() *cobra.Command {
	var showSources bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question against the ingested books and Q&A pairs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := initial.NewContainer(ctx, config.GetConfig(), initial.WithoutKafka())
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.AssistantSvc.Ask(ctx, "", strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Answer)
			if showSources {
				for _, s := range res.Sources {
					fmt.Fprintf(out, "[%s %.3f] %s\n", s.Collection, s.Score, s.Source)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSources, "sources", false, "print retrieved sources")
	return cmd
}

func newQACmd() *cobra.Command {
	qa := &cobra.Command{
		Use:   "qa",
		Short: "Manage the question/answer collection",
	}

	var question, answer string
	add := &cobra.Command{
		Use:   "add",
		Short: "Store a question/answer pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := initial.NewContainer(ctx, config.GetConfig(), initial.WithoutKafka())
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.QASvc.StoreQA(ctx, question, answer)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", res.ID)
			return nil
		},
	}
	add.Flags().StringVarP(&question, "question", "q", "", "question text")
	add.Flags().StringVarP(&answer, "answer", "a", "", "answer text")
	_ = add.MarkFlagRequired("question")
	_ = add.MarkFlagRequired("answer")

	qa.AddCommand(add)
	return qa
}

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume remote ingest requests from Kafka",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conf := config.GetConfig()
			c, err := initial.NewContainer(ctx, conf)
			if err != nil {
				return err
			}
			defer c.Close()

			worker, err := c.NewIngestWorker()
			if err != nil {
				return err
			}
			// Close 会等后台协程，所以 cancel 必须先于 Close 执行
			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			c.Start(runCtx)

			zlog.Info("ingest worker started",
				zap.Strings("brokers", conf.KafkaConfig.Brokers),
				zap.String("topic", conf.KafkaConfig.IngestTopic),
				zap.String("group", conf.KafkaConfig.ConsumerGroupID),
			)
			if err := worker.Run(runCtx); err != nil && runCtx.Err() == nil {
				return err
			}
			return nil
		},
	}
}
