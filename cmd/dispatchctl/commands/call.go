package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/antipasta/dispatch/pkg/dispatch"
)

// NewCallCommand creates the call command
func NewCallCommand() *cobra.Command {
	var (
		usePager  bool
		useCursor bool
		maxPages  int
	)

	cmd := &cobra.Command{
		Use:   "call <method> [key=value ...]",
		Short: "Invoke a registry method",
		Long: `Invoke a method by name or alias with key=value arguments.

With --pages or --cursor the call is driven through the matching pagination
protocol and pages are printed until the protocol reports completion.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient()
			if err != nil {
				return err
			}

			callArgs, err := parseCallArgs(args[1:])
			if err != nil {
				return err
			}

			ctx := context.Background()

			if usePager || useCursor {
				return runPaged(ctx, client, args[0], callArgs, useCursor, maxPages)
			}

			payload, err := client.Invoke(ctx, args[0], callArgs)
			if err != nil {
				return err
			}

			return printPayload(payload)
		},
	}

	cmd.Flags().BoolVar(&usePager, "pages", false, "page through results with the page-number protocol")
	cmd.Flags().BoolVar(&useCursor, "cursor", false, "page through results with the cursor protocol")
	cmd.Flags().IntVar(&maxPages, "max-pages", 10, "maximum pages to fetch when paging")

	return cmd
}

// runPaged drives a pagination loop. When both protocols are available the
// cursor protocol is preferred per the engine's caller guidance.
func runPaged(ctx context.Context, client *dispatch.Client, method string, args dispatch.Args, useCursor bool, maxPages int) error {
	def, ok := client.Registry().Lookup(method)
	if !ok {
		return fmt.Errorf("unknown method: %s", method) //nolint:err113 // user-facing CLI message
	}

	var pager dispatch.Pager
	if useCursor {
		pager = dispatch.NewCursorPager(def.ItemsKey)
	} else {
		pager = dispatch.NewPagePager(def.ItemsKey)
	}

	for page := 0; page < maxPages; page++ {
		payload, done, err := client.FetchPage(ctx, method, pager, args)
		if err != nil {
			return err
		}

		if payload != nil {
			if err := printPayload(payload); err != nil {
				return err
			}
		}

		if done {
			return nil
		}
	}

	return nil
}

// printPayload renders a payload in the configured output format.
func printPayload(payload interface{}) error {
	switch viper.GetString("output") {
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)

		return encoder.Encode(payload)
	case "table":
		if printed := tryPrintTable(payload); printed {
			return nil
		}

		fallthrough
	default:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(payload)
	}
}

// tryPrintTable renders a sequence of flat objects as a table. Payloads
// with any other shape fall back to JSON.
func tryPrintTable(payload interface{}) bool {
	items, ok := payload.([]interface{})
	if !ok || len(items) == 0 {
		return false
	}

	first, ok := items[0].(map[string]interface{})
	if !ok {
		return false
	}

	columns := make([]string, 0, len(first))
	for key := range first {
		columns = append(columns, key)
	}

	sort.Strings(columns)

	header := make([]interface{}, len(columns))
	for i, column := range columns {
		header[i] = column
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header(header...)

	for _, item := range items {
		row, ok := item.(map[string]interface{})
		if !ok {
			return false
		}

		cells := make([]interface{}, len(columns))
		for i, column := range columns {
			cells[i] = fmt.Sprint(row[column])
		}

		_ = table.Append(cells...)
	}

	return table.Render() == nil
}
