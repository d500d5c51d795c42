// Command waycourse is the maintenance CLI for AutoDrive course files:
// inspect, deduplicate, convert and route without opening the editor UI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sanholz/waycourse/pkg/adxml"
	"github.com/sanholz/waycourse/pkg/config"
	"github.com/sanholz/waycourse/pkg/course"
	"github.com/sanholz/waycourse/pkg/session"
)

var (
	headline = color.New(color.FgCyan, color.Bold)
	good     = color.New(color.FgGreen)
	bad      = color.New(color.FgRed)
	subtle   = color.New(color.Faint)
)

var optionsPath string

var rootCmd = &cobra.Command{
	Use:           "waycourse",
	Short:         "Maintenance tooling for AutoDrive waypoint courses",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func loadCourse(path string) (*course.RoadMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rm, err := adxml.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rm, nil
}

var statsCmd = &cobra.Command{
	Use:   "stats <course.xml>",
	Short: "Show course statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rm, err := loadCourse(args[0])
		if err != nil {
			return err
		}
		meta := rm.Meta()
		headline.Printf("%s\n", displayName(meta, args[0]))
		fmt.Printf("  waypoints    %d\n", rm.NodeCount())
		fmt.Printf("  connections  %d\n", rm.ConnectionCount())
		fmt.Printf("  markers      %d\n", rm.MarkerCount())

		var dual, reverse, subprio int
		for _, c := range rm.Connections() {
			switch c.Direction {
			case course.DirDual:
				dual++
			case course.DirReverse:
				reverse++
			}
			if c.Priority == course.PrioSubPrio {
				subprio++
			}
		}
		subtle.Printf("  dual %d, reverse %d, subprio %d\n", dual, reverse, subprio)
		return nil
	},
}

var applyDedup bool

var dedupCmd = &cobra.Command{
	Use:   "dedup <course.xml>",
	Short: "Count near-duplicate waypoints, optionally merging them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := config.Load(optionsPath)
		if err != nil {
			return err
		}
		rm, err := loadCourse(args[0])
		if err != nil {
			return err
		}
		nodes, groups := rm.CountDuplicates(opts.DedupEpsilon)
		if nodes == 0 {
			good.Println("no duplicates found")
			return nil
		}
		fmt.Printf("%d duplicate waypoints in %d groups (epsilon %.3fm)\n", nodes, groups, opts.DedupEpsilon)
		if !applyDedup {
			subtle.Println("rerun with --apply to merge them")
			return nil
		}

		res := rm.Deduplicate(opts.DedupEpsilon)
		good.Printf("merged %d waypoints, rewired %d connections, dropped %d self loops\n",
			len(res.RemovedNodes), res.RemappedConnections, res.RemovedSelfConnections)
		return writeCourse(args[0], rm)
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert <in> <out>",
	Short: "Convert between course XML and session files",
	Long: "Converts by extension: .xml reads or writes the AutoDrive course " +
		"format, anything else the binary session format.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, out := args[0], args[1]
		var rm *course.RoadMap
		var err error
		if strings.HasSuffix(strings.ToLower(in), ".xml") {
			rm, err = loadCourse(in)
		} else {
			rm, err = session.LoadFile(in)
		}
		if err != nil {
			return err
		}
		if strings.HasSuffix(strings.ToLower(out), ".xml") {
			err = writeCourse(out, rm)
		} else {
			err = session.SaveFile(out, rm)
		}
		if err != nil {
			return err
		}
		good.Printf("wrote %s (%d waypoints)\n", out, rm.NodeCount())
		return nil
	},
}

var routeCmd = &cobra.Command{
	Use:   "route <course.xml> <from-id> <to-id>",
	Short: "Find the shortest drivable route between two waypoints",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		rm, err := loadCourse(args[0])
		if err != nil {
			return err
		}
		from, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("bad waypoint id %q", args[1])
		}
		to, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("bad waypoint id %q", args[2])
		}
		path, ok := rm.ShortestPath(from, to)
		if !ok {
			return fmt.Errorf("no route from %d to %d", from, to)
		}
		good.Printf("route with %d waypoints:\n", len(path))
		ids := make([]string, len(path))
		for i, id := range path {
			ids[i] = strconv.FormatUint(id, 10)
		}
		fmt.Println("  " + strings.Join(ids, " -> "))
		return nil
	},
}

func writeCourse(path string, rm *course.RoadMap) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := adxml.Write(f, rm, nil); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func displayName(meta course.Meta, fallback string) string {
	if meta.MapName != "" {
		return meta.MapName
	}
	return fallback
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	rootCmd.PersistentFlags().StringVar(&optionsPath, "options", "waycourse.yaml", "editor options file")
	dedupCmd.Flags().BoolVar(&applyDedup, "apply", false, "merge duplicates and rewrite the file")
	rootCmd.AddCommand(statsCmd, dedupCmd, convertCmd, routeCmd)

	if err := rootCmd.Execute(); err != nil {
		bad.Fprintf(os.Stderr, "waycourse: %v\n", err)
		os.Exit(1)
	}
}
