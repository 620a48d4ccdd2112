package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/kode4food/reflector/internal/gcloud"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(gcloud.NewStdTools()).ExecuteContext(ctx); err != nil {
		// the gcloud tools have already printed a hint for their own errors
		if !errors.Is(err, gcloud.ErrCommandFailed) &&
			!errors.Is(err, gcloud.ErrProjectRequired) {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCmd(tools *gcloud.Tools) *cobra.Command {
	root := &cobra.Command{
		Use:           "cloudcreds",
		Short:         "Manage Google Cloud credentials for local development",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	login := &cobra.Command{
		Use:   "login",
		Short: "Log in to your Google account with the gcloud CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return tools.Login(cmd.Context())
		},
	}

	var project string
	adc := &cobra.Command{
		Use: "use-app-default-creds",
		Short: "Log in to Google and download the application default " +
			"credentials file",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return tools.UseAppDefaultCreds(cmd.Context(), project)
		},
	}
	adc.Flags().StringVar(&project, "project", "",
		"GCP project to use; required")

	root.AddCommand(login, adc)
	return root
}
