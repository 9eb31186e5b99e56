package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/flare-go/internal/domain"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check for and install new releases",
}

var updateCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether a newer release is published",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		result := rt.updateMgr.Check(context.Background())
		out := cmd.OutOrStdout()
		if result.ErrorKind != domain.ErrorNone {
			return &exitError{code: 1, err: fmt.Errorf("update check failed: %s", result.Message)}
		}

		fmt.Fprintf(out, "Current version: %s\n", result.Current)
		if !result.Available {
			fmt.Fprintln(out, "You are running the latest version")
			return nil
		}

		fmt.Fprintf(out, "Latest version:  %s (%s)\n", result.Manifest.LatestVersion, result.Manifest.Tag)
		if result.Manifest.ReleaseNotes != "" {
			fmt.Fprintf(out, "\n%s\n\n", result.Manifest.ReleaseNotes)
		}
		fmt.Fprintln(out, "Run 'flare update apply' to install it")
		return nil
	},
}

var updateApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Download and install the latest release",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		out := cmd.OutOrStdout()
		result, err := rt.updateMgr.Apply(context.Background())
		if errors.Is(err, domain.ErrNoUpdate) {
			fmt.Fprintln(out, "You are running the latest version")
			return nil
		}
		if err != nil {
			return err
		}

		for _, file := range result.Files {
			switch {
			case file.Updated:
				fmt.Fprintf(out, "  updated   %s\n", file.Name)
			case file.Restored:
				fmt.Fprintf(out, "  restored  %s (%s)\n", file.Name, file.Message)
			default:
				fmt.Fprintf(out, "  failed    %s (%s)\n", file.Name, file.Message)
			}
		}
		fmt.Fprintln(out, result.Summary())

		if !result.Succeeded() {
			return &exitError{code: 1, err: errors.New("update was not fully applied")}
		}
		return nil
	},
}

func init() {
	updateCmd.AddCommand(updateCheckCmd)
	updateCmd.AddCommand(updateApplyCmd)
}
