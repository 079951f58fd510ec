package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/PrzemekMalak/serverless-image-handler/event"
)

func newInvokeCmd() *cobra.Command {
	var eventFile string

	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Answer one proxy event read from a file and print the response",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(eventFile)
			if err != nil {
				return err
			}

			var ev event.Event
			if err := json.Unmarshal(raw, &ev); err != nil {
				return fmt.Errorf("decoding %s: %w", eventFile, err)
			}

			handler, logger, err := setup(prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer logger.Sync()

			resp, err := handler.Handle(cmd.Context(), ev)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringVar(&eventFile, "event", "", "JSON file holding the proxy event")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}
