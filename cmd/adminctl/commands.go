package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/tutor-admin-api/internal/dto"
)

var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "Describe every managed entity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd.OutOrStdout(), services.Records.Catalog())
	},
}

var listCmd = &cobra.Command{
	Use:   "list <entity> [key=value ...]",
	Short: "List records using the same parameters as the HTTP API",
	Long: `List accepts page, page_size, search, sort, fields and any filterable
field as key=value pairs.

Example:
  adminctl list bookings status=PENDING sort=starts_at:desc page_size=50`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(args[1:])
		if err != nil {
			return err
		}
		result, err := services.Records.List(cmd.Context(), args[0], params)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <entity> <id>",
	Short: "Show a record with its version token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("id must be an integer: %w", err)
		}
		detail, err := services.Records.Get(cmd.Context(), args[0], id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), detail)
	},
}

var bulkUpdateCmd = &cobra.Command{
	Use:   "bulk-update <entity> <field> <json-value> <id>...",
	Short: "Set one writable field on many records",
	Long: `bulk-update applies the same value to each id and reports the ids that
could not be updated. The value is parsed as JSON, so strings need quotes.

Example:
  adminctl bulk-update bookings status '"CANCELLED"' 12 13 14 --operator ops-7`,
	Args: cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		if operatorID == "" {
			return fmt.Errorf("--operator is required for mutations")
		}
		var value interface{}
		if err := json.Unmarshal([]byte(args[2]), &value); err != nil {
			return fmt.Errorf("value must be JSON: %w", err)
		}
		ids := make([]int64, 0, len(args)-3)
		for _, raw := range args[3:] {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("id %q must be an integer", raw)
			}
			ids = append(ids, id)
		}
		result, err := services.Bulk.Apply(cmd.Context(), dto.BulkUpdateRequest{
			Entity: args[0],
			IDs:    ids,
			Field:  args[1],
			Value:  value,
		}, operator())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

func parseParams(pairs []string) (url.Values, error) {
	params := url.Values{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		params.Add(key, value)
	}
	return params, nil
}
