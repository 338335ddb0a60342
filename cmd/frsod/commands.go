package main

import (
	"fmt"

	"github.com/go-sod/frsod/internal/buildinfo"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "frsod",
		Short: "Score query points against a reference dataset with fuzzy-rough neighbour models",
		Long: `frsod fits an NN, FRNN or NND model on a CSV reference file and
writes class scores, classes, probabilities or anomaly scores for a CSV
query file to stdout.`,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newScoreCmd(), newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, %s\n",
				buildinfo.Info.Name(), buildinfo.Info.Time(), buildinfo.Info.Tag())
			return err
		},
	}
}

func newScoreCmd() *cobra.Command {
	opts := scoreOptions{}
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Fit a model on --train and score --query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScore(&opts, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.algorithm, "algorithm", "FRNN", "model: NN, FRNN or NND")
	f.IntVar(&opts.k, "k", 0, "neighbour count, 0 for the algorithm default")
	f.StringVar(&opts.metric, "metric", "EUCLIDEAN", "distance: EUCLIDEAN or MANHATTAN")
	f.StringVar(&opts.tnorm, "tnorm", "MIN", "FRNN t-norm: MIN, PRODUCT or LUKASIEWICZ")
	f.StringVar(&opts.train, "train", "", "reference CSV file")
	f.StringVar(&opts.query, "query", "", "query CSV file")
	f.IntVar(&opts.labelsColumn, "labels-column", -1, "label column of the reference file, negative counts from the end")
	f.StringVar(&opts.output, "output", "", "scores, classes, proba or anomaly (default scores, anomaly for NND)")
	f.BoolVar(&opts.noNormalise, "no-normalise", false, "skip range normalisation")
	f.BoolVar(&opts.header, "header", false, "skip the first line of both files")
	f.IntVar(&opts.workers, "workers", 1, "goroutines per neighbour query")
	_ = cmd.MarkFlagRequired("train")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}
