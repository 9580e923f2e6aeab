package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/output"
	"github.com/taskdeck/taskdeck/internal/state"
)

var loginCmd = &cobra.Command{
	Use:     "login",
	GroupID: "account",
	Short:   "Log in and cache the session token",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newAnonApp()
		if err != nil {
			fatalf("%v", err)
		}

		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if email == "" || password == "" {
			form := huh.NewForm(huh.NewGroup(
				huh.NewInput().Title("Email").Value(&email),
				huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&password),
			))
			if err := form.Run(); err != nil {
				fatalf("%v", err)
			}
		}

		resp, err := a.api.Login(context.Background(), strings.TrimSpace(email), password)
		if err != nil {
			fatalf("login failed: %v", err)
		}
		if err := a.state.SaveSession(state.Session{Token: resp.Token, User: resp.User}); err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("%s Logged in as %s <%s>\n", output.RenderPass("✓"), resp.User.Name, resp.User.Email)
		if !resp.User.EmailVerified {
			fmt.Println(output.RenderWarn("⚠") + " Email not verified. Check your inbox or run 'taskdeck resend-verification'.")
		}
	},
}

var registerCmd = &cobra.Command{
	Use:     "register",
	GroupID: "account",
	Short:   "Create an account",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newAnonApp()
		if err != nil {
			fatalf("%v", err)
		}

		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if name == "" || email == "" || password == "" {
			var confirm string
			form := huh.NewForm(huh.NewGroup(
				huh.NewInput().Title("Name").Value(&name),
				huh.NewInput().Title("Email").Value(&email),
				huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&password),
				huh.NewInput().Title("Confirm password").EchoMode(huh.EchoModePassword).Value(&confirm),
			))
			if err := form.Run(); err != nil {
				fatalf("%v", err)
			}
			if password != confirm {
				fatalf("passwords do not match")
			}
		}

		resp, err := a.api.Register(context.Background(), strings.TrimSpace(name), strings.TrimSpace(email), password)
		if err != nil {
			fatalf("registration failed: %v", err)
		}
		if err := a.state.SaveSession(state.Session{Token: resp.Token, User: resp.User}); err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("%s Account created for %s\n", output.RenderPass("✓"), resp.User.Email)
		fmt.Println("A verification link was sent to your email.")
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	GroupID: "account",
	Short:   "Discard the cached session token",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newAnonApp()
		if err != nil {
			fatalf("%v", err)
		}
		if err := a.state.ClearSession(); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Logged out\n", output.RenderPass("✓"))
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	GroupID: "account",
	Short:   "Show the logged-in account",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatalf("%v", err)
		}

		user, err := a.api.Me(context.Background())
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s <%s>\n", user.Name, user.Email)
		if user.EmailVerified {
			fmt.Println(output.RenderPass("✓") + " Email verified")
		} else {
			fmt.Println(output.RenderWarn("⚠") + " Email not verified")
		}
	},
}

var resendVerificationCmd = &cobra.Command{
	Use:     "resend-verification",
	GroupID: "account",
	Short:   "Request another verification email",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatalf("%v", err)
		}

		wait, err := a.state.ResendWait()
		if err != nil {
			fatalf("%v", err)
		}
		if wait > 0 {
			fatalf("please wait %s before requesting another email", wait.Round(time.Second))
		}

		if err := a.api.ResendVerification(context.Background(), a.session.User.Email); err != nil {
			fatalf("%v", err)
		}
		if err := a.state.MarkResend(); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Verification email sent to %s\n", output.RenderPass("✓"), a.session.User.Email)
	},
}

var passwdCmd = &cobra.Command{
	Use:     "passwd",
	GroupID: "account",
	Short:   "Change the account password",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatalf("%v", err)
		}

		var current, next, confirm string
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Current password").EchoMode(huh.EchoModePassword).Value(&current),
			huh.NewInput().Title("New password").EchoMode(huh.EchoModePassword).Value(&next),
			huh.NewInput().Title("Confirm new password").EchoMode(huh.EchoModePassword).Value(&confirm),
		))
		if err := form.Run(); err != nil {
			fatalf("%v", err)
		}
		if next != confirm {
			fatalf("passwords do not match")
		}

		if err := a.api.ChangePassword(context.Background(), current, next); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Password changed\n", output.RenderPass("✓"))
	},
}

func init() {
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password")
	registerCmd.Flags().String("name", "", "display name")
	registerCmd.Flags().String("email", "", "account email")
	registerCmd.Flags().String("password", "", "account password")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(resendVerificationCmd)
	rootCmd.AddCommand(passwdCmd)
}
