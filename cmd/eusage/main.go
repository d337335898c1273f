package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "eusage",
	Short: "eUsage Reports — e-resource usage and cost reporting backend",
	Long:  "eUsage Reports serves usage and cost-per-use reports for electronic resources: COUNTER usage data is ingested per title, joined with agreement purchase lines, and aggregated over calendar-aligned reporting periods.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/eusage.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
