package main

import (
	"fmt"
	"sort"
	"time"

	"localesync/client"
	"localesync/internal/status"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what a running watcher is doing",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(cfg.Server.Addr)
			st, err := c.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("querying watcher at %s: %w", cfg.Server.Addr, err)
			}

			fmt.Printf("%s (since %s)\n", status.Render(st.Status), st.Status.Since.Format(time.RFC3339))
			fmt.Printf("syncs:      %d\n", st.Status.Syncs)
			if st.Status.LastError != "" {
				fmt.Printf("last error: %s\n", color.RedString(st.Status.LastError))
			}
			fmt.Printf("files:      %d\n", st.Files)
			fmt.Printf("namespaces: %v\n", st.Namespaces)
			for _, l := range st.Locks {
				fmt.Printf("locked:     %s (%s)\n", l.Path, l.AcquiredAt.Format(time.RFC3339Nano))
			}
			return nil
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <namespace> <key>",
		Short: "Print a key's value in every locale",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(cfg.Server.Addr)
			resp, err := c.Key(cmd.Context(), args[0], args[1])
			if client.IsNotFound(err) {
				return fmt.Errorf("%s.%s is not defined in any locale", args[0], args[1])
			}
			if err != nil {
				return fmt.Errorf("querying watcher at %s: %w", cfg.Server.Addr, err)
			}

			locales := make([]string, 0, len(resp.Values))
			for l := range resp.Values {
				locales = append(locales, l)
			}
			sort.Strings(locales)

			bold := color.New(color.Bold).SprintFunc()
			for _, l := range locales {
				fmt.Printf("%s\t%v\n", bold(l), resp.Values[l])
			}
			return nil
		},
	}
}

// newPauseCmd builds "pause" or "resume"
func newPauseCmd(pause bool) *cobra.Command {
	use, short, done := "resume [category]", "Resume event handling", "Resumed"
	if pause {
		use, short, done = "pause [category]", "Stop handling file events until resumed", "Paused"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category := ""
			if len(args) == 1 {
				category = args[0]
			}
			c := client.New(cfg.Server.Addr)
			if err := c.SetDisabled(cmd.Context(), category, pause); err != nil {
				return fmt.Errorf("querying watcher at %s: %w", cfg.Server.Addr, err)
			}
			if category == "" {
				category = "all categories"
			}
			fmt.Printf("%s %s\n", done, category)
			return nil
		},
	}
}

func newCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the translation cache",
	}

	clearCmd := &cobra.Command{
		Use:       "clear [strings|languages]",
		Short:     "Drop cached translations and language lists",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"strings", "languages"},
		RunE: func(cmd *cobra.Command, args []string) error {
			db, stringsKV, langsKV, err := openCache(cfg)
			if err != nil {
				return fmt.Errorf("opening cache (is a watcher running?): %w", err)
			}
			defer db.Close()

			which := "all"
			if len(args) == 1 {
				which = args[0]
			}
			if which == "all" || which == "strings" {
				n, err := stringsKV.Clear()
				if err != nil {
					return err
				}
				fmt.Printf("Removed %d cached translations\n", n)
			}
			if which == "all" || which == "languages" {
				n, err := langsKV.Clear()
				if err != nil {
					return err
				}
				fmt.Printf("Removed %d cached language lists\n", n)
			}
			return nil
		},
	}

	cacheCmd.AddCommand(clearCmd)
	return cacheCmd
}
