package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"labreserve/internal/export"
	"labreserve/internal/fetch"
	"labreserve/internal/model"
	"labreserve/internal/planner"
	"labreserve/internal/reconcile"
	"labreserve/internal/selection"
)

func runWeek(ctx context.Context, a *app, args []string) error {
	flagSet := pflag.NewFlagSet("week", pflag.ContinueOnError)
	start := flagSet.String("start", time.Now().Format(model.DateLayout), "first date of the window (YYYY-MM-DD)")
	weeks := flagSet.Int("weeks", 1, "number of weeks to load")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	from, err := model.ParseDate(*start)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	if *weeks < 1 {
		*weeks = 1
	}
	to := from.AddDate(0, 0, 7*(*weeks)-1)

	view := a.fetcher.Range(ctx, from, to)
	reportFailures(a, view)

	bookings := view.Bookings()
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].StartTime != bookings[j].StartTime {
			return bookings[i].StartTime < bookings[j].StartTime
		}
		return bookings[i].ID < bookings[j].ID
	})

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDEVICE\tSTART\tEND\tSTATUS\tOWNER")
	for _, b := range bookings {
		device := model.Device{ID: b.DeviceID, Type: b.DeviceType, Name: b.DeviceName}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", b.ID, device.Label(), b.StartTime, b.EndTime, b.Status, b.OwnerUsername)
	}
	return tw.Flush()
}

func runGroups(ctx context.Context, a *app, args []string) error {
	flagSet := pflag.NewFlagSet("groups", pflag.ContinueOnError)
	userID := flagSet.Int64("user", 0, "user id whose sessions to list")
	asJSON := flagSet.Bool("json", false, "print merged sessions as JSON")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if *userID <= 0 {
		return fmt.Errorf("--user is required")
	}

	groups, err := a.userGroups(ctx, *userID)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSTATUS\tDATES\tDEVICES\tOWNER\tCOLLABORATORS")
	for _, g := range groups {
		var labels []string
		dates := ""
		if g.Summary != nil {
			labels, dates = g.Summary.DeviceLabels, g.Summary.DateLabel
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			g.GroupedBookingID, g.Status, dates, strings.Join(labels, ", "), g.OwnerUsername, strings.Join(g.Collaborators, ", "))
	}
	return tw.Flush()
}

func (a *app) userGroups(ctx context.Context, userID int64) ([]model.GroupedBooking, error) {
	raw, err := a.client.UserGroups(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load groups for user %d: %w", userID, err)
	}
	return reconcile.Merge(raw), nil
}

func runPlan(ctx context.Context, a *app, args []string) error {
	flagSet := pflag.NewFlagSet("plan", pflag.ContinueOnError)
	doSubmit := flagSet.Bool("submit", false, "submit the plan when it has no conflicts")
	escalate := flagSet.Bool("escalate", false, "submit despite conflicts, marking ranges CONFLICTING")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("plan takes exactly one plan file")
	}

	plan, err := planner.LoadPlanFile(flagSet.Arg(0))
	if err != nil {
		return err
	}

	p := planner.New(planner.Options{
		Actor:     plan.ActorOf(),
		Day:       a.cfg.Schedule,
		Devices:   a.devices,
		Submitter: a.submitter,
		Users:     a.users,
		Bus:       a.bus,
		Logger:    a.logger,
	})
	store := p.Apply(func(selection.Store) selection.Store { return plan.Store() })
	if store.Len() == 0 {
		return fmt.Errorf("plan has no valid picks")
	}

	from, to, _ := planner.Window(store)
	view := a.fetcher.Range(ctx, from, to)
	reportFailures(a, view)
	p.SetBookings(view.Bookings())

	for _, name := range plan.Collaborators {
		if _, err := p.AddCollaborator(ctx, name); err != nil {
			return err
		}
	}

	ranges, skipped := p.Preview()
	for _, id := range skipped {
		fmt.Printf("skipped unknown device %d\n", id)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tSTART\tEND")
	for _, r := range ranges {
		fmt.Fprintf(tw, "%s - %s\t%s\t%s\n", r.DeviceType, r.DeviceName, r.StartTime, r.EndTime)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	explain := p.Explain()
	for _, key := range p.Conflicts().Keys() {
		var owners []string
		for _, b := range explain[key] {
			owners = append(owners, fmt.Sprintf("#%d %s", b.ID, b.OwnerUsername))
		}
		fmt.Printf("conflict %s: %s\n", key, strings.Join(owners, ", "))
	}

	if !*doSubmit {
		return nil
	}
	if p.Conflicts().Len() > 0 && !*escalate && !plan.Escalate {
		return fmt.Errorf("%d picks conflict; rerun with --escalate to submit anyway", p.Conflicts().Len())
	}

	res, err := p.Submit(ctx, planner.SubmitOptions{
		Message:          plan.Message,
		Escalate:         *escalate || plan.Escalate,
		GroupedBookingID: plan.GroupedBookingID,
		Progress:         func(pct int) { a.logger.Debug().Int("progress", pct).Msg("submitting") },
	})
	if err != nil {
		return err
	}
	fmt.Printf("confirmed=%d conflicts=%d session=%s\n", res.Confirmed, res.Conflicts, res.GroupedBookingID)
	if len(res.Errors) > 0 {
		return res.Errors[0]
	}
	return nil
}

func runExport(ctx context.Context, a *app, args []string) error {
	flagSet := pflag.NewFlagSet("export", pflag.ContinueOnError)
	userID := flagSet.Int64("user", 0, "export the user's sessions")
	start := flagSet.String("start", "", "export committed bookings of the week starting here instead")
	weeks := flagSet.Int("weeks", 1, "number of weeks with --start")
	out := flagSet.StringP("out", "o", "labreserve.xlsx", "output file")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()

	switch {
	case *start != "":
		from, err := model.ParseDate(*start)
		if err != nil {
			return fmt.Errorf("--start: %w", err)
		}
		view := a.fetcher.Range(ctx, from, from.AddDate(0, 0, 7*max(*weeks, 1)-1))
		reportFailures(a, view)
		err = export.Bookings(f, view.Bookings())
		if err != nil {
			return err
		}
	case *userID > 0:
		groups, err := a.userGroups(ctx, *userID)
		if err != nil {
			return err
		}
		if err := export.Groups(f, groups); err != nil {
			return err
		}
	default:
		return fmt.Errorf("one of --user or --start is required")
	}

	a.logger.Info().Str("path", *out).Msg("export written")
	return f.Close()
}

func reportFailures(a *app, view fetch.RangeView) {
	for _, week := range view.Failed() {
		a.logger.Warn().Str("week", week).Msg("week could not be loaded; conflicts may be incomplete")
	}
}
