package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"prema-client/internal/format"
	"prema-client/internal/models"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			if password == "" {
				p, err := prompt(cmd.InOrStdin(), a.out, "Password: ")
				if err != nil {
					return err
				}
				password = p
			}
			if err := a.session.Login(ctx, email, password); err != nil {
				return err
			}
			a.printf("Logged in as %s\n", a.session.User().Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email (required)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var data models.RegisterData
	var bio string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			if bio != "" {
				data.Bio = &bio
			}
			if data.Password == "" {
				p, err := prompt(cmd.InOrStdin(), a.out, "Password: ")
				if err != nil {
					return err
				}
				data.Password = p
			}
			if err := a.session.Register(ctx, data); err != nil {
				return err
			}
			a.printf("Welcome, %s!\n", a.session.User().Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&data.Email, "email", "e", "", "Account email (required)")
	cmd.Flags().StringVarP(&data.Password, "password", "p", "", "Password (prompted when omitted)")
	cmd.Flags().StringVarP(&data.Name, "name", "n", "", "Display name (required)")
	cmd.Flags().IntVar(&data.Age, "age", 0, "Age (required)")
	cmd.Flags().StringVar(&data.Gender, "gender", "", "Gender (required)")
	cmd.Flags().StringVar(&data.SeekingGender, "seeking", "both", "Gender to be shown")
	cmd.Flags().StringVar(&bio, "bio", "", "Profile bio")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			a.session.Logout(ctx)
			a.printf("Logged out\n")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(cmd.Context()); err != nil {
				return err
			}
			u := a.session.User()
			a.printf("%s (%s) #%d\n", u.Name, format.Initials(u.Name), u.ID)
			a.printf("  email:   %s\n", u.Email)
			a.printf("  age:     %d\n", u.Age)
			a.printf("  gender:  %s, seeking %s\n", u.Gender, u.SeekingGender)
			if u.Bio != nil && *u.Bio != "" {
				a.printf("  bio:     %s\n", *u.Bio)
			}
			if u.LocationLatitude != nil && u.LocationLongitude != nil {
				a.printf("  located: %.4f, %.4f\n", *u.LocationLatitude, *u.LocationLongitude)
			}
			for i, p := range u.Photos {
				a.printf("  photo %d: %s\n", i+1, format.PhotoURL(a.cfg.API.BaseURL, p))
			}
			if !u.CreatedAt.IsZero() {
				a.printf("  member since %s\n", format.MemberSince(u.CreatedAt.Time))
			}
			return nil
		},
	}
}

func newForgotPasswordCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password EMAIL",
		Short: "Request a password reset link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			if err := a.session.ForgotPassword(ctx, args[0]); err != nil {
				return err
			}
			a.printf("If an account exists for %s, a reset link is on its way.\n", args[0])
			return nil
		},
	}
}

func newResetPasswordCmd(a *app) *cobra.Command {
	var token, password, confirm string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with a reset token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			if password == "" {
				in := bufio.NewReader(cmd.InOrStdin())
				var err error
				if password, err = promptFrom(in, a.out, "New password: "); err != nil {
					return err
				}
				if confirm, err = promptFrom(in, a.out, "Confirm password: "); err != nil {
					return err
				}
			}
			if err := a.session.ResetPassword(ctx, token, password, confirm); err != nil {
				return err
			}
			a.printf("Password updated. You can now log in.\n")
			return nil
		},
	}
	cmd.Flags().StringVarP(&token, "token", "t", "", "Reset token from the email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "New password (prompted when omitted)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "New password again")
	return cmd
}

func prompt(in io.Reader, out io.Writer, label string) (string, error) {
	return promptFrom(bufio.NewReader(in), out, label)
}

func promptFrom(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
