package main

import (
	"fmt"
	"os"

	"github.com/cuemby/zoned/pkg/zonefile"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Parse zone files and report lines that would be ignored",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

var fmtCmd = &cobra.Command{
	Use:   "fmt FILE",
	Short: "Print a zone file in canonical form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %v", err)
		}
		zone, err := zonefile.Parse(string(data), args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), zonefile.Format(zone))
		return nil
	},
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := 0

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			failed++
			continue
		}

		lines, err := zonefile.ParseLines(string(data), path)
		if err != nil {
			fmt.Fprintln(out, err)
			failed++
			continue
		}
		zone, err := zonefile.Parse(string(data), path)
		if err != nil {
			fmt.Fprintln(out, err)
			failed++
			continue
		}

		ignored := 0
		for _, pl := range lines {
			if pl.Kind == zonefile.LineIgnored {
				fmt.Fprintf(out, "%s:%d: ignored: %s\n", path, pl.Line, pl.Text)
				ignored++
			}
		}
		fmt.Fprintf(out, "%s: %s %d records, %d ignored\n", path, zone.Origin, len(zone.Records), ignored)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to parse", failed, len(args))
	}
	return nil
}
