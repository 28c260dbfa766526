package cmd

import (
	"bufio"
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"prema-client/internal/discovery"
	"prema-client/internal/format"
	"prema-client/internal/models"

	"github.com/spf13/cobra"
)

func newBrowseCmd(a *app) *cobra.Command {
	var minAge, maxAge, maxDistance int
	var interactive bool
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Show candidates; with -i, like or pass them one by one",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireLogin(ctx); err != nil {
				return err
			}

			feed := discovery.NewFeed(a.client, a.session, a.store, a.cfg.Discovery)
			defer feed.Close()
			filters := feed.RestoreFilters(ctx)

			flags := cmd.Flags()
			if flags.Changed("min-age") || flags.Changed("max-age") || flags.Changed("max-distance") {
				if flags.Changed("min-age") {
					filters.MinAge = minAge
				}
				if flags.Changed("max-age") {
					filters.MaxAge = maxAge
				}
				if flags.Changed("max-distance") {
					filters.MaxDistance = maxDistance
				}
				// Persist only; the explicit Load below replaces the debounced one.
				feed.SetFilters(ctx, filters)
				feed.Close()
			}

			if err := feed.Load(ctx); err != nil {
				return err
			}
			if !interactive {
				for _, u := range feed.Users() {
					a.printCandidate(u)
				}
				return nil
			}
			return a.swipe(ctx, cmd, feed)
		},
	}
	cmd.Flags().IntVar(&minAge, "min-age", discovery.DefaultMinAge, "Minimum age")
	cmd.Flags().IntVar(&maxAge, "max-age", discovery.DefaultMaxAge, "Maximum age")
	cmd.Flags().IntVar(&maxDistance, "max-distance", discovery.DefaultMaxDistance, "Maximum distance in miles")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Like (l) or pass (p) each candidate, q to quit")
	return cmd
}

func (a *app) swipe(ctx context.Context, cmd *cobra.Command, feed *discovery.Feed) error {
	feed.OnMatch = func(r discovery.LikeResult) {
		a.printf("It's a match! You and %s liked each other.\n", r.Candidate.Name)
	}
	in := bufio.NewReader(cmd.InOrStdin())
	for {
		u, ok := feed.Current()
		if !ok {
			a.printf("No more profiles. Check back later!\n")
			return nil
		}
		a.printCandidate(u)

		answer, err := promptFrom(in, a.out, "[l]ike / [p]ass / [q]uit: ")
		if err != nil {
			return nil
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "l", "like":
			if _, err := feed.Like(ctx); err != nil {
				a.printf("%s\n", err)
			}
		case "p", "pass":
			if err := feed.Pass(ctx); err != nil {
				a.printf("%s\n", err)
			}
		case "q", "quit":
			return nil
		}
	}
}

func (a *app) printCandidate(u models.UserProfile) {
	line := u.Name + ", " + strconv.Itoa(u.Age)
	if d := format.Distance(u.DistanceKm); d != "" {
		line += " · " + d
	}
	a.printf("#%d %s\n", u.ID, line)
	if u.Bio != nil && *u.Bio != "" {
		a.printf("    %s\n", *u.Bio)
	}
	if len(u.Photos) > 0 {
		a.printf("    %s\n", format.PhotoURL(a.cfg.API.BaseURL, u.Photos[0]))
	}
}

func parseUserID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("user id must be a positive number")
	}
	return id, nil
}

func (a *app) printLike(r discovery.LikeResult) {
	if r.Matched {
		name := r.Candidate.Name
		if name == "" {
			name = r.Interaction.TargetUserName
		}
		a.printf("It's a match! You and %s liked each other.\n", name)
		return
	}
	a.printf("Liked!\n")
}

func newLikeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "like USER_ID",
		Short: "Like a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.requireLogin(ctx); err != nil {
				return err
			}
			res, err := discovery.NewLikesInbox(a.client, a.session).LikeBack(ctx, id)
			if err != nil {
				return err
			}
			a.printLike(res)
			return nil
		},
	}
}

func newPassCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pass USER_ID",
		Short: "Pass on a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.requireLogin(ctx); err != nil {
				return err
			}
			if err := discovery.NewLikesInbox(a.client, a.session).Pass(ctx, id); err != nil {
				return err
			}
			a.printf("Passed\n")
			return nil
		},
	}
}

func newLikesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "likes",
		Short: "List people who liked you",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireLogin(ctx); err != nil {
				return err
			}
			inbox := discovery.NewLikesInbox(a.client, a.session)
			if err := inbox.Load(ctx); err != nil {
				return err
			}
			if inbox.Count() == 0 {
				a.printf("No likes yet\n")
				return nil
			}
			a.printf("%s people like you\n", format.UnreadBadge(inbox.Count()))
			for _, u := range inbox.Users() {
				a.printCandidate(u)
			}
			return nil
		},
	}
}

func newMatchesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "matches",
		Short: "List your matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireLogin(ctx); err != nil {
				return err
			}
			list := discovery.NewMatchesList(a.client, a.session, a.session.Tasks())
			if err := list.Load(ctx); err != nil {
				return err
			}
			list.Tasks().Wait()

			if n := list.LikesCount(); n > 0 {
				a.printf("%s new likes waiting\n", format.UnreadBadge(n))
			}
			matches := list.Matches()
			if len(matches) == 0 {
				a.printf("No matches yet\n")
				return nil
			}
			now := time.Now()
			for _, m := range matches {
				a.printf("#%d %s, %d · matched %s\n", m.ID, m.Name, m.Age, format.MatchTime(m.MatchedAt.Time, now))
			}
			return nil
		},
	}
}

func newUnmatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unmatch USER_ID",
		Short: "Remove a match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.requireLogin(ctx); err != nil {
				return err
			}
			list := discovery.NewMatchesList(a.client, a.session, a.session.Tasks())
			if err := list.Load(ctx); err != nil {
				return err
			}
			msg, err := list.Unmatch(ctx, id)
			if err != nil {
				return err
			}
			a.printf("%s\n", msg)
			return nil
		},
	}
}

func newSpinCmd(a *app) *cobra.Command {
	var like, pass bool
	cmd := &cobra.Command{
		Use:   "spin",
		Short: "Spin the slot machine for a random profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if like && pass {
				return errors.New("--like and --pass are mutually exclusive")
			}
			ctx := cmd.Context()
			if err := a.requireLogin(ctx); err != nil {
				return err
			}
			slot := discovery.NewSlotMachine(a.client, a.session)
			if _, err := slot.Status(ctx); err != nil {
				return err
			}

			u, err := slot.Spin(ctx)
			if err != nil {
				return err
			}
			a.printCandidate(u)
			a.printf("%d spins left today\n", slot.SpinsRemaining())

			switch {
			case like:
				res, err := slot.Like(ctx)
				if err != nil {
					return err
				}
				a.printLike(res)
			case pass:
				if err := slot.Pass(ctx); err != nil {
					return err
				}
				a.printf("Passed\n")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&like, "like", false, "Like the drawn profile")
	cmd.Flags().BoolVar(&pass, "pass", false, "Pass on the drawn profile")
	return cmd
}
