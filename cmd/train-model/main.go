package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"expensetracker/internal/buildinfo"
	"expensetracker/internal/classifier"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
)

type trainFlags struct {
	data     string
	model    string
	testSize float64
	seed     uint64
	report   string
}

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	defaults := classifier.DefaultTrainOptions()

	var f trainFlags
	rootCmd := &cobra.Command{
		Use:   "train-model",
		Short: "Train the expense category classifier",
		Long: "Train the TF-IDF Naive Bayes classifier on a labelled CSV " +
			"(description,category), print a per-category report for the held-out " +
			"split and save the model artifact used by expense-tracker.",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&f.data, "data", cfg.TrainingDataPath, "labelled training CSV")
	flags.StringVar(&f.model, "model", cfg.ModelPath, "where to write the trained model")
	flags.Float64Var(&f.testSize, "test-size", defaults.TestSize, "fraction of samples held out for evaluation")
	flags.Uint64Var(&f.seed, "seed", defaults.Seed, "seed for the train/test shuffle")
	flags.StringVar(&f.report, "report", "", "also write the evaluation report as YAML to this path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, f trainFlags) error {
	out := cmd.OutOrStdout()
	ok := color.New(color.FgGreen).SprintFunc()
	info := color.New(color.FgCyan).SprintFunc()

	samples, err := classifier.LoadCorpusFile(f.data)
	if err != nil {
		return fmt.Errorf("load training data: %w", err)
	}
	fmt.Fprintf(out, "%s %d samples from %s\n", info("loaded"), len(samples), f.data)

	model, report, err := classifier.Train(samples, classifier.TrainOptions{
		TestSize: f.testSize,
		Seed:     f.seed,
	})
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	fmt.Fprintf(out, "%s %d categories, %d held out\n\n", info("trained"), len(model.Labels()), report.Support)
	fmt.Fprintln(out, report.String())

	if f.report != "" {
		if err := writeReport(f.report, report); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s report to %s\n", ok("wrote"), f.report)
	}

	if err := model.SaveFile(f.model); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	fmt.Fprintf(out, "%s model to %s\n", ok("saved"), f.model)
	return nil
}

func writeReport(path string, r *classifier.Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
