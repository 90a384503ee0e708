package cli

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkgindex/internal/domain"
)

func newUserCmd(dbPath *string) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var password string
	createCmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*dbPath)
			if err != nil {
				return err
			}
			defer e.close()

			if password == "" {
				password, err = promptPassword("Password (empty for none): ")
				if err != nil {
					return err
				}
			}
			u, err := e.services.User.Create(cmd.Context(), e.caller, args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", u.Username, u.ID)
			return nil
		},
	}
	createCmd.Flags().StringVar(&password, "password", "", "initial password (prompted when omitted)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(*dbPath)
			if err != nil {
				return err
			}
			defer e.close()

			users, err := e.services.User.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, u := range users {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", u.ID, u.Username)
			}
			return nil
		},
	}

	userCmd.AddCommand(createCmd, listCmd)
	return userCmd
}

func newGroupCmd(dbPath *string) *cobra.Command {
	groupCmd := &cobra.Command{
		Use:   "group",
		Short: "Manage groups",
	}

	var displayName string
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*dbPath)
			if err != nil {
				return err
			}
			defer e.close()

			g, err := e.services.Group.Create(cmd.Context(), e.caller, args[0], displayName)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created group %s (%s)\n", g.Name, g.ID)
			return nil
		},
	}
	createCmd.Flags().StringVar(&displayName, "display-name", "", "human-readable group name")

	addMemberCmd := &cobra.Command{
		Use:   "add-member <group> <member-type> <member-id>",
		Short: "Add a user or token to a group",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*dbPath)
			if err != nil {
				return err
			}
			defer e.close()

			g, err := e.services.Group.Lookup(cmd.Context(), "name", args[0])
			if err != nil {
				return err
			}
			if err := e.services.Group.AddMember(cmd.Context(), e.caller, g, args[1], args[2]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s %s to %s\n", args[1], args[2], g.Name)
			return nil
		},
	}

	groupCmd.AddCommand(createCmd, addMemberCmd)
	return groupCmd
}

func newTokenCmd(dbPath *string) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
	}

	var description string
	mintCmd := &cobra.Command{
		Use:   "mint <username>",
		Short: "Mint an access token linked to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*dbPath)
			if err != nil {
				return err
			}
			defer e.close()

			owner, err := e.services.Identity.Lookup(cmd.Context(), "name", args[0])
			if err != nil {
				return err
			}
			user, ok := owner.(*domain.User)
			if !ok {
				return fmt.Errorf("tokens can only be minted for users")
			}
			tok, err := e.services.Token.Create(cmd.Context(), user, description)
			if err != nil {
				return err
			}
			// The secret is shown once and never stored in recoverable form
			// by the caller.
			fmt.Fprintf(cmd.OutOrStdout(), "token %s\nsecret: %s\n", tok.ID, tok.Secret)
			return nil
		},
	}
	mintCmd.Flags().StringVar(&description, "description", "", "what the token is for")

	tokenCmd.AddCommand(mintCmd)
	return tokenCmd
}

func newGrantCmd(dbPath *string) *cobra.Command {
	var project string
	grantCmd := &cobra.Command{
		Use:   "grant <target-type> <target-name> <permission>",
		Short: "Grant a permission to a user or group",
		Long: `Grant a permission to a user or group. Package permissions require
--project; meta permissions forbid it.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*dbPath)
			if err != nil {
				return err
			}
			defer e.close()

			var target domain.GrantTarget
			switch args[0] {
			case "user":
				p, err := e.services.Identity.Lookup(cmd.Context(), "name", args[1])
				if err != nil {
					return err
				}
				target, err = domain.TargetOfPrincipal(p)
				if err != nil {
					return err
				}
			case "group":
				g, err := e.services.Group.Lookup(cmd.Context(), "name", args[1])
				if err != nil {
					return err
				}
				target = domain.TargetOfGroup(g)
			default:
				return fmt.Errorf("target type must be user or group, got %q", args[0])
			}

			spec := domain.PermissionSpec{Permission: domain.Permission(args[2])}
			if project != "" {
				spec.Project = &project
			}
			effective, err := e.services.Permission.Add(cmd.Context(), e.caller, target, spec)
			if err != nil {
				return err
			}
			for _, s := range effective {
				if s.Project != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.Permission, *s.Project)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\n", s.Permission)
				}
			}
			return nil
		},
	}
	grantCmd.Flags().StringVar(&project, "project", "", "project the permission applies to")
	return grantCmd
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}
