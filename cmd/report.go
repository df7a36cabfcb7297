package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"placement/internal/report"
	"placement/internal/service"
	"placement/internal/textstat"
)

var demoOpts struct {
	name      string
	rollNo    int
	start     float64
	mid       float64
	end       float64
	technical float64
	hr        float64
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Evaluate one student and print the console report",
	Example: `  placement demo
  placement demo --name Ravi --roll 7 --technical 60`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

var freqCmd = &cobra.Command{
	Use:   "freq <text>",
	Short: "Count how often each character occurs in the text",
	Args:  cobra.ExactArgs(1),
	RunE:  runFreq,
}

// runDemo never fails on a broken report; the error is printed instead.
func runDemo(cmd *cobra.Command, args []string) error {
	e, problems := service.BuildEvaluation(service.EvaluateRequest{
		Name:      demoOpts.name,
		RollNo:    demoOpts.rollNo,
		Start:     demoOpts.start,
		Mid:       demoOpts.mid,
		End:       demoOpts.end,
		Technical: demoOpts.technical,
		HR:        demoOpts.hr,
	})
	for _, p := range problems {
		logger.Debug("Marks reset to zero", zap.Int("roll_no", demoOpts.rollNo), zap.Error(p))
	}

	if err := report.Render(cmd.OutOrStdout(), e); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Unexpected Error: %v\n", err)
	}
	return nil
}

func runFreq(cmd *cobra.Command, args []string) error {
	freq := textstat.CountCharFrequencies(args[0])
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "frequencies for '%s':%s\n", args[0], freq)
	return err
}
