package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"taskdeck/internal/idp"
)

func newLoginCommand() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if email == "" {
				email, err = promptLine("Email: ")
				if err != nil {
					return err
				}
			}
			if password == "" {
				password, err = promptLine("Password: ")
				if err != nil {
					return err
				}
			}

			sess, err := a.provider.SignIn(cmd.Context(), email, password)
			if err != nil {
				switch {
				case errors.Is(err, idp.ErrInvalidCredentials):
					return fmt.Errorf("invalid email or password")
				case errors.Is(err, idp.ErrEmailNotConfirmed):
					return fmt.Errorf("confirm your email address before signing in")
				}
				return err
			}

			fmt.Printf("Signed in as %s\n", sess.UserEmail)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newRegisterCommand() *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if email == "" {
				email, err = promptLine("Email: ")
				if err != nil {
					return err
				}
			}
			if password == "" {
				password, err = promptLine("Password: ")
				if err != nil {
					return err
				}
			}

			var fullName *string
			if name != "" {
				fullName = &name
			}

			sess, confirmationRequired, err := a.provider.SignUp(cmd.Context(), email, password, fullName)
			if err != nil {
				if errors.Is(err, idp.ErrEmailTaken) {
					return fmt.Errorf("that email is already registered")
				}
				return err
			}

			if confirmationRequired {
				fmt.Println("Account created. Confirm your email address, then run `taskdeck login`.")
				return nil
			}

			fmt.Printf("Account created; signed in as %s\n", sess.UserEmail)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and discard stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			a.store.SignOut(cmd.Context())
			fmt.Println("Signed out.")
			return nil
		},
	}
}

func newWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			a.boot(cmd.Context())

			state := a.store.Snapshot()
			if state.User == nil {
				fmt.Println("Not signed in.")
				return nil
			}

			fmt.Printf("Signed in as %s (%s)\n", state.User.Email, state.User.ID)
			if state.Profile != nil && state.Profile.FullName != nil {
				fmt.Printf("Name: %s\n", *state.Profile.FullName)
			}
			return nil
		},
	}
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
