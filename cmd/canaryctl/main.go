// canaryctl is a small operator CLI for a running canary service.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var serviceURL string

func client() *resty.Client {
	return resty.New().
		SetBaseURL(serviceURL).
		SetTimeout(5 * time.Minute).
		SetHeader("Content-Type", "application/json")
}

func main() {
	root := &cobra.Command{
		Use:   "canaryctl",
		Short: "Operator commands for the canary news service",
	}
	root.PersistentFlags().StringVar(&serviceURL, "service-url", envOr("CANARY_SERVICE_URL", "http://localhost:8080"), "base URL of the canary service")

	root.AddCommand(digestCmd(), healthCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func digestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Digest sweep operations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Trigger a digest sweep and print the report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := client().R().
				SetContext(cmd.Context()).
				Post("/api/internal/digest/run")
			if err != nil {
				return err
			}
			if resp.IsError() {
				return fmt.Errorf("service returned %s: %s", resp.Status(), resp.String())
			}
			fmt.Println(resp.String())
			return nil
		},
	})
	return cmd
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check service health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := client().R().
				SetContext(cmd.Context()).
				Get("/api/health")
			if err != nil {
				return err
			}
			fmt.Println(resp.String())
			if resp.IsError() {
				return fmt.Errorf("service unhealthy: %s", resp.Status())
			}
			return nil
		},
	}
}
