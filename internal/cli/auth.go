// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kkamji/weasel-tui/internal/api"
	"github.com/kkamji/weasel-tui/internal/attach"
)

// =============================================================================
// LOGIN / REGISTER / LOGOUT
// =============================================================================

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				out := cmd.OutOrStdout()
				p := newPrompter(cmd.InOrStdin(), out)

				if email == "" {
					prompt := "Email: "
					if a.cfg.Auth.LastEmail != "" {
						prompt = fmt.Sprintf("Email [%s]: ", a.cfg.Auth.LastEmail)
					}
					line, err := p.Line(prompt)
					if err != nil {
						return err
					}
					email = line
					if email == "" {
						email = a.cfg.Auth.LastEmail
					}
				}
				password, err := p.Secret("Password: ")
				if err != nil {
					return err
				}

				if err := a.client.Login(cmd.Context(), email, password); err != nil {
					return err
				}
				a.rememberEmail(email)
				fmt.Fprintln(out, SuccessStyle.Render("Signed in as "+email))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (prompted when omitted)")
	return cmd
}

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var email, photo string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in with it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				out := cmd.OutOrStdout()
				p := newPrompter(cmd.InOrStdin(), out)

				password, err := p.Secret("Password: ")
				if err != nil {
					return err
				}
				if p.terminal() != nil {
					again, err := p.Secret("Repeat password: ")
					if err != nil {
						return err
					}
					if again != password {
						return fmt.Errorf("passwords do not match")
					}
				}
				if err := api.ValidateCredentials(email, password); err != nil {
					return err
				}

				var img *attach.Image
				if photo != "" {
					img, err = attach.Load(photo)
					if err != nil {
						return err
					}
				}

				if err := a.client.Register(cmd.Context(), email, password, img); err != nil {
					return err
				}
				if err := a.client.Login(cmd.Context(), email, password); err != nil {
					return fmt.Errorf("account created but sign-in failed: %w", err)
				}
				a.rememberEmail(email)
				fmt.Fprintln(out, SuccessStyle.Render("Registered and signed in as "+email))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&photo, "photo", "", "profile photo file")
	cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget its cookies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				out := cmd.OutOrStdout()
				if err := a.ctrl.Logout(cmd.Context()); err != nil {
					a.logger.Warn("server logout failed", "err", err)
					fmt.Fprintln(out, WarningStyle.Render("Signed out locally; the server did not confirm: "+err.Error()))
					return nil
				}
				fmt.Fprintln(out, SuccessStyle.Render("Signed out"))
				return nil
			})
		},
	}
}

// =============================================================================
// PROFILE
// =============================================================================

func newProfileCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				p, err := a.client.ViewProfile(cmd.Context())
				if err != nil {
					return err
				}
				printProfile(cmd, p)
				return nil
			})
		},
	}
	cmd.AddCommand(newProfileUpdateCmd(opts))
	return cmd
}

func newProfileUpdateCmd(opts *rootOptions) *cobra.Command {
	var changePassword bool
	var photo string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change the password and/or the profile photo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				out := cmd.OutOrStdout()

				var u api.ProfileUpdate
				if changePassword {
					pw, err := newPrompter(cmd.InOrStdin(), out).Secret("New password: ")
					if err != nil {
						return err
					}
					u.Password = pw
				}
				if photo != "" {
					img, err := attach.Load(photo)
					if err != nil {
						return err
					}
					u.Photo = img
				}

				url, err := a.client.UpdateProfile(cmd.Context(), u)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, SuccessStyle.Render("Profile updated"))
				if url != "" {
					fmt.Fprintln(out, RenderLabel("Photo", url))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&changePassword, "password", false, "prompt for a new password")
	cmd.Flags().StringVar(&photo, "photo", "", "new profile photo file")
	return cmd
}

func printProfile(cmd *cobra.Command, p *api.Profile) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, TitleStyle.Render("Profile"))
	fmt.Fprintln(out, RenderLabel("Email", p.Email))
	fmt.Fprintln(out, RenderLabel("ID", p.ID))
	photo := strings.TrimSpace(p.PhotoURL)
	if photo == "" {
		photo = DimStyle.Render("(none)")
	}
	fmt.Fprintln(out, RenderLabel("Photo", photo))
}
