package main

import (
	"fmt"

	standup "github.com/chimerakang/standup-go"
	"github.com/chimerakang/standup-go/cache"
	"github.com/spf13/cobra"
)

func (a *app) cachePath() string {
	if a.cfg.Cache.Path != "" {
		return a.cfg.Cache.Path
	}
	return cache.DefaultPath()
}

// openCache returns the process-wide store unless the location or TTL is
// configured. release closes only a store opened here.
func (a *app) openCache() (s *cache.Store, release func()) {
	ttl := a.cfg.Cache.TTL
	if a.cfg.Cache.Path == "" && (ttl == 0 || ttl == standup.DefaultCacheTTL) {
		return cache.Default(), func() {}
	}
	s = cache.Open(a.cachePath(),
		cache.WithTTL(ttl),
		cache.WithLogger(a.logger),
		cache.WithMetrics(a.metrics),
	)
	return s, func() { _ = s.Close() }
}

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local activity cache",
	}

	clearCmd := &cobra.Command{
		Use:       "clear [PARTITION...]",
		Short:     "Remove cached entries",
		Long:      "Remove cached entries from the given partitions, or from all of them.",
		ValidArgs: partitionNames(),
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parts := make([]standup.Partition, 0, len(args))
			for _, arg := range args {
				parts = append(parts, standup.Partition(arg))
			}

			s, release := a.openCache()
			defer release()
			out := cmd.OutOrStdout()
			if !s.Persistent() {
				fmt.Fprintln(out, infoFmt("No cache storage available; nothing to clear."))
				return nil
			}
			if err := s.Clear(cmd.Context(), parts...); err != nil {
				return err
			}
			if len(parts) == 0 {
				parts = standup.Partitions
			}
			for _, p := range parts {
				fmt.Fprintf(out, "%s %s\n", okFmt("cleared"), p)
			}
			return nil
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the cache database location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), a.cachePath())
		},
	}

	cmd.AddCommand(clearCmd, pathCmd)
	return cmd
}

func partitionNames() []string {
	out := make([]string, 0, len(standup.Partitions))
	for _, p := range standup.Partitions {
		out = append(out, string(p))
	}
	return out
}
