package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	userstack "github.com/jdziat/userstack-go"
	"github.com/jdziat/userstack-go/pkg/sessiontoken"
)

func (a *app) identifyCmd() *cobra.Command {
	var creds userstack.Credentials
	var data string

	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Exchange credentials for a session token and store it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.ready() {
				return nil
			}
			v, err := parseData(data)
			if err != nil {
				return err
			}
			creds.Data = v

			if err := a.client.Identify(cmd.Context(), creds); err != nil {
				if idErr, ok := userstack.AsIdentificationError(err); ok {
					return fmt.Errorf("identify rejected (%d): %s", idErr.StatusCode, idErr.Message)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "identified")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&creds.UserID, "user-id", "", "application user id")
	f.StringVar(&creds.Email, "email", "", "user email")
	f.StringVar(&creds.Name, "name", "", "user display name")
	f.StringVar(&creds.Picture, "picture", "", "user avatar URL")
	f.StringVar(&creds.GoogleToken, "google-token", "", "Google OAuth token")
	f.StringVar(&creds.FirebaseToken, "firebase-token", "", "Firebase ID token")
	f.StringVar(&data, "data", "", "extra metadata as JSON")
	return cmd
}

func (a *app) trackCmd() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "track <feature> [event]",
		Short: "Report a feature event for the stored session",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.ready() {
				return nil
			}
			v, err := parseData(data)
			if err != nil {
				return err
			}
			var event string
			if len(args) == 2 {
				event = args[1]
			}
			return a.report(cmd, a.client.TrackContext(cmd.Context(), args[0], event, v))
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "event payload as JSON")
	return cmd
}

func (a *app) pageviewCmd() *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "pageview <url-or-path>",
		Short: "Report a pageview, resolving route params given with --param",
		Example: `  userstack pageview '/users/42/posts/7?tab=1' --param userId=42 --param postId=7
  # route: /users/[userId]/posts/[postId]`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.ready() {
				return nil
			}
			u, err := url.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid location: %w", err)
			}
			resolved, err := parseParams(params)
			if err != nil {
				return err
			}
			return a.report(cmd, a.client.TrackPageview(userstack.LocationFromURL(u, resolved)))
		},
	}
	cmd.Flags().StringArrayVar(&params, "param", nil, "route param as name=value (repeatable)")
	return cmd
}

func (a *app) forgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget",
		Short: "Remove the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.ready() {
				return nil
			}
			if err := a.client.Forget(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "session forgotten")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the claims of the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.ready() {
				return nil
			}
			out := cmd.OutOrStdout()

			info, err := sessiontoken.FromClient(cmd.Context(), a.client)
			switch {
			case errors.Is(err, sessiontoken.ErrNoSession):
				fmt.Fprintln(out, "not signed in")
				return nil
			case err != nil:
				return err
			}

			subject := info.Subject
			if subject == "" {
				subject = "(none)"
			}
			fmt.Fprintf(out, "subject: %s\n", subject)
			if info.Issuer != "" {
				fmt.Fprintf(out, "issuer:  %s\n", info.Issuer)
			}
			now := time.Now()
			switch {
			case info.ExpiresAt.IsZero():
				fmt.Fprintln(out, "expires: never")
			case info.Expired(now):
				fmt.Fprintf(out, "expires: %s (expired)\n", info.ExpiresAt.Format(time.RFC3339))
			default:
				fmt.Fprintf(out, "expires: %s (in %s)\n", info.ExpiresAt.Format(time.RFC3339), info.Remaining(now).Round(time.Second))
			}
			return nil
		},
	}
}

// report waits for a track result and prints its outcome.
func (a *app) report(cmd *cobra.Command, p *userstack.Pending) error {
	if err := p.Wait(cmd.Context()); err != nil {
		return err
	}
	if p.Dropped() {
		fmt.Fprintln(cmd.OutOrStdout(), "not signed in: event dropped")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "sent")
	return nil
}

func parseParams(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--param %q must be name=value", pair)
		}
		params[name] = value
	}
	return params, nil
}
