package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jrsteele09/go-auth-client/api"
	"github.com/jrsteele09/go-auth-client/guard"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func loginCmd(c config.Config) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			email = prompt(cmd.OutOrStdout(), in, "Email", email)
			password = prompt(cmd.OutOrStdout(), in, "Password", password)
			return withApp(cmd, c, func(ctx context.Context, a *app) error {
				identity, err := a.service.Login(ctx, email, password)
				if err != nil {
					return err
				}
				if identity == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Signed in")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", identity.DisplayName(), identity.Role)
				fmt.Fprintf(cmd.OutOrStdout(), "Dashboard: %s\n", guard.DashboardFor(identity.Role))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password, read from stdin when empty")
	return cmd
}

func registerCmd(c config.Config) *cobra.Command {
	var req api.RegisterRequest
	var role string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			req.Email = prompt(cmd.OutOrStdout(), in, "Email", req.Email)
			req.Password = prompt(cmd.OutOrStdout(), in, "Password", req.Password)
			req.Role = users.RoleType(strings.ToLower(strings.TrimSpace(role)))
			return withApp(cmd, c, func(ctx context.Context, a *app) error {
				result, err := a.service.Register(ctx, req)
				if err != nil {
					return err
				}
				switch r := result.(type) {
				case api.Authenticated:
					if r.User != nil {
						fmt.Fprintf(cmd.OutOrStdout(), "Account active, signed in as %s\n", r.User.DisplayName())
						return nil
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Account active, signed in")
				case api.PendingApproval:
					msg := r.Message
					if msg == "" {
						msg = "Account created, waiting for approval"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s)\n", msg, r.Email, r.Role)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "Account password, read from stdin when empty")
	cmd.Flags().StringVarP(&req.FullName, "name", "n", "", "Full name")
	cmd.Flags().StringVarP(&role, "role", "r", string(users.RoleStudent), "One of admin, teacher, student, parent")
	return cmd
}

func whoamiCmd(c config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Validate the session and print the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, c, func(ctx context.Context, a *app) error {
				if err := a.service.ValidateToken(ctx); err != nil {
					return errors.Wrap(err, "session is not valid, run login")
				}
				identity, ok := a.store.Identity()
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Session kept, backend unreachable")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\nRole: %s\nActive: %t\n",
					identity.DisplayName(), identity.Email, identity.Role, identity.IsActive)
				return nil
			})
		},
	}
}

func statusCmd(c config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the local session state without calling the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, c, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "State: %s\n", a.store.State())
				credential, ok := a.store.Credential()
				if !ok {
					return nil
				}
				fmt.Fprintf(out, "Expires: %s\n", credential.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
				fmt.Fprintf(out, "Refreshable: %t\n", credential.RefreshToken != "")
				if identity, ok := a.store.Identity(); ok {
					fmt.Fprintf(out, "User: %s (%s)\n", identity.DisplayName(), identity.Role)
				}
				claims, err := token.Peek(credential.Token)
				if err != nil {
					fmt.Fprintln(out, "Token: opaque")
					return nil
				}
				fmt.Fprintf(out, "Token subject: %s\n", claims.Subject)
				if len(claims.Roles) > 0 {
					fmt.Fprintf(out, "Token roles: %s\n", strings.Join(claims.Roles, ", "))
				}
				return nil
			})
		},
	}
}

func openCmd(c config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Run the route guards for a path and print the decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			route, ok := guard.Lookup(args[0])
			if !ok {
				return errors.Errorf("no route declared for %s", args[0])
			}
			return withApp(cmd, c, func(ctx context.Context, a *app) error {
				decision := a.authorizer.Navigate(ctx, route)
				if decision.Admitted() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: admitted\n", route.Path)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s\n", route.Path, decision.Outcome, decision.Location())
				return nil
			})
		},
	}
}

func logoutCmd(c config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, c, func(ctx context.Context, a *app) error {
				a.service.Logout(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "Signed out, next: %s\n", a.navigated)
				return nil
			})
		},
	}
}

// prompt reads a value from in when current is empty
func prompt(out io.Writer, in *bufio.Reader, label, current string) string {
	if current != "" {
		return current
	}
	if f, ok := out.(*os.File); ok && f == os.Stdout {
		fmt.Fprintf(out, "%s: ", label)
	}
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}
