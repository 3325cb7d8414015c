package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bimotal/motordata/internal/config"
	"github.com/bimotal/motordata/internal/model"
	"github.com/bimotal/motordata/internal/source"
	"github.com/bimotal/motordata/internal/source/posthog"
)

func fetchCmd(configPath *string) *cobra.Command {
	var (
		personID    string
		sessionID   string
		timestamp   string
		interactive bool
		skipSeries  bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download Motor Data events and merge them into the master table",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, true, nil)
			if err != nil {
				return err
			}
			defer a.close()

			params := a.params(personID, sessionID)
			params.TargetTimestamp = timestamp
			if interactive {
				params = promptParams(params)
			}
			if params.PersonID == "" {
				return errors.New("a person id is required (--person-id or MOTORDATA_PERSON_ID)")
			}

			result, err := a.pipe.Run(cmd.Context(), params, skipSeries)
			var miss *posthog.TimestampMissError
			if errors.As(err, &miss) {
				fmt.Fprintf(os.Stderr, "No event matches timestamp %s. Available timestamps:\n", miss.Target)
				for i, ts := range miss.Available {
					if i == 10 {
						fmt.Fprintf(os.Stderr, "  ... and %d more\n", len(miss.Available)-10)
						break
					}
					fmt.Fprintf(os.Stderr, "  - %s\n", ts)
				}
				return err
			}
			if err != nil {
				return err
			}

			fmt.Printf("Merged %d event(s); master table now holds %d row(s)\n", result.Events, result.TableRows)
			for _, f := range result.SeriesFiles {
				fmt.Printf("  wrote %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&personID, "person-id", "p", "", "person id to fetch Motor Data for")
	cmd.Flags().StringVarP(&sessionID, "session-id", "s", "", "session id filter (optional)")
	cmd.Flags().StringVarP(&timestamp, "timestamp", "t", "", "specific event timestamp (ISO format)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for person and session ids")
	cmd.Flags().BoolVar(&skipSeries, "skip-series", false, "merge into the master table without regenerating series files")
	return cmd
}

func listCmd(configPath *string) *cobra.Command {
	var (
		personID  string
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available Motor Data events with timestamps",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, true, nil)
			if err != nil {
				return err
			}
			defer a.close()

			summaries, err := a.pipe.List(cmd.Context(), a.params(personID, sessionID))
			if err != nil {
				return err
			}
			fmt.Printf("Found %d Motor Data events:\n", len(summaries))
			for i, s := range summaries {
				fmt.Printf("  %d. %s (session: %s, %d properties)\n",
					i+1, s.Timestamp, s.SessionID, s.PropertyCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&personID, "person-id", "p", "", "person id to list events for")
	cmd.Flags().StringVarP(&sessionID, "session-id", "s", "", "session id filter (optional)")
	return cmd
}

func bulkCmd(configPath *string) *cobra.Command {
	var (
		personID string
		count    int
		minProps int
		maxProps int
	)

	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Download many events at once, filtered by the property-count quality band",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, true, func(cfg *config.Config) {
				if cmd.Flags().Changed("min-properties") {
					cfg.Bulk.MinProperties = minProps
				}
				if cmd.Flags().Changed("max-properties") {
					cfg.Bulk.MaxProperties = maxProps
				}
			})
			if err != nil {
				return err
			}
			defer a.close()

			params := a.params(personID, "")
			if params.PersonID == "" {
				return errors.New("a person id is required (--person-id or MOTORDATA_PERSON_ID)")
			}

			result, err := a.pipe.Bulk(cmd.Context(), params, count)
			if err != nil {
				return err
			}
			fmt.Printf("Listed %d events, %d inside the quality band, fetched %d; master table now holds %d row(s)\n",
				result.Listed, result.Selected, result.Fetched, result.TableRows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&personID, "person-id", "p", "", "person id to fetch Motor Data for")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "number of recent quality events to fetch (0 = all)")
	cmd.Flags().IntVar(&minProps, "min-properties", 0, "override the quality band lower bound")
	cmd.Flags().IntVar(&maxProps, "max-properties", 0, "override the quality band upper bound (0 = none)")
	return cmd
}

func seriesCmd(configPath *string) *cobra.Command {
	var (
		summed   bool
		category string
	)

	cmd := &cobra.Command{
		Use:   "series",
		Short: "Regenerate chart series from the current master table",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, false, nil)
			if err != nil {
				return err
			}
			defer a.close()

			var cats []model.Category
			if category != "" {
				cat, ok := model.ParseCategory(category)
				if !ok {
					return fmt.Errorf("unknown category %q", category)
				}
				cats = []model.Category{cat}
			}

			files, err := a.pipe.Series(summed, cats)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Printf("wrote %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&summed, "summed", false, "sum values across all rows instead of using the latest row")
	cmd.Flags().StringVarP(&category, "category", "c", "", "single category to build (default: power, torque, motor_temp, mosfet_temp)")
	return cmd
}

// params applies the configured default person and session ids under any
// flag values.
func (a *app) params(personID, sessionID string) source.Params {
	if personID == "" {
		personID = a.cfg.PostHog.PersonID
	}
	if sessionID == "" {
		sessionID = a.cfg.PostHog.SessionID
	}
	return source.Params{PersonID: personID, SessionID: sessionID}
}

// promptParams asks for person and session ids on stdin, keeping the
// current values on empty input.
func promptParams(params source.Params) source.Params {
	reader := bufio.NewReader(os.Stdin)

	fmt.Printf("Enter Person ID (default: %s): ", params.PersonID)
	if line, err := reader.ReadString('\n'); err == nil {
		if v := strings.TrimSpace(line); v != "" {
			params.PersonID = v
		}
	}

	fmt.Printf("Enter Session ID (optional, default: %s): ", params.SessionID)
	if line, err := reader.ReadString('\n'); err == nil {
		if v := strings.TrimSpace(line); v != "" {
			params.SessionID = v
		}
	}
	return params
}
