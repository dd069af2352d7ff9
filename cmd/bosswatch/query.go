package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/noahxzhu/bosswatch/internal/model"
	"github.com/noahxzhu/bosswatch/internal/resolver"
	"github.com/noahxzhu/bosswatch/internal/schedule"
	"github.com/noahxzhu/bosswatch/internal/worker"
)

// currentOffsets refreshes once; a failed fetch still leaves the fallback table.
func (e *env) currentOffsets(ctx context.Context) []model.ServerOffset {
	p := e.newProvider()
	if err := p.Refresh(ctx); err != nil {
		e.logger.Warn("Using fallback server offsets", "error", err)
	}
	return p.Current()
}

func nextCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next boss spawn",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			now := time.Now().In(e.cfg.Location())
			next := resolver.ResolveNext(now, e.bosses, e.currentOffsets(cmd.Context()))
			if next == nil {
				return fmt.Errorf("no spawn data available")
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), next)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "(%s) %s - %s at %s, in %s\n",
				next.ServerID, next.Boss.Name, next.Boss.Location, next.SpawnTime(),
				worker.FormatRemaining(next.Remaining(now)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func upcomingCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List the next spawns across every server",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			now := time.Now().In(e.cfg.Location())
			upcoming := resolver.Upcoming(now, e.bosses, e.currentOffsets(cmd.Context()), limit)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), upcoming)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SERVER\tBOSS\tTIME\tIN\tLOCATION")
			for _, s := range upcoming {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ServerID, s.Boss.Name, s.SpawnTime(),
					worker.FormatRemaining(s.Remaining(now)), s.Boss.Location)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of spawns to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func bossesCmd() *cobra.Command {
	var (
		drop      string
		hour      int
		sortBy    string
		favorites bool
	)
	cmd := &cobra.Command{
		Use:   "bosses",
		Short: "List bosses, filtered and sorted",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			criteria := schedule.Criteria{DropItem: drop, FavoritesOnly: favorites}
			if cmd.Flags().Changed("hour") {
				if hour < 0 || hour > 23 {
					return fmt.Errorf("hour must be between 0 and 23")
				}
				criteria.Hour = &hour
			}
			if favorites {
				store, err := e.openStore(cmd.Context())
				if err != nil {
					return err
				}
				defer store.Close()
				criteria.IsFavorite = store.IsFavorite
			}

			now := time.Now().In(e.cfg.Location())
			bosses := schedule.Sort(schedule.Filter(e.bosses, criteria), sortBy, now)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "BOSS\tLEVEL\tNEXT\tHOURS\tLOCATION")
			for _, b := range bosses {
				hours := make([]string, len(b.SpawnHours))
				for i, h := range b.SpawnHours {
					hours[i] = fmt.Sprintf("%02d", h)
				}
				next := schedule.NextAppearance(b.SpawnHours, now.Hour()) % 24
				fmt.Fprintf(tw, "%s\t%d\t%02dhXX\t%s\t%s\n", b.Name, b.Level, next, strings.Join(hours, ","), b.Location)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&drop, "drop", "", "Only bosses dropping this item")
	cmd.Flags().IntVar(&hour, "hour", 0, "Only bosses spawning at this hour")
	cmd.Flags().StringVar(&sortBy, "sort", schedule.SortNextSpawn, "next-spawn or a drop item name")
	cmd.Flags().BoolVar(&favorites, "favorites", false, "Only favorite bosses")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
