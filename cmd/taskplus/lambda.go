package main

import (
	"github.com/spf13/cobra"

	"github.com/abdirisakgelle/taskplus/internal/platform/lambda"
)

// The stuck ticket sweep only runs under serve.
func newLambdaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Serve API Gateway HTTP API events from AWS Lambda",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			a.dispatcher.Inline()
			a.logger.Info(cmd.Context(), "starting lambda handler", "auth_mode", cfg.AuthMode())
			lambda.Start(lambda.NewHandler(a.router))
			return nil
		},
	}
}
