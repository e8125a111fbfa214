package musecli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRemoteCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Manage the set of tracked remotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := findRepoRoot()
			if err != nil {
				return notARepoError(err)
			}

			cfg, err := LoadConfig(root)
			if err != nil {
				return internalError(err)
			}

			for name, remote := range cfg.Remotes {
				if verbose {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s/%s\n", name, remote.URL, remote.RepoID)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show remote URLs")

	cmd.AddCommand(
		newRemoteAddCommand(),
		newRemoteRemoveCommand(),
		newRemoteRenameCommand(),
		newRemoteSetURLCommand(),
	)

	return cmd
}

func newRemoteAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Add a new remote",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := findRepoRoot()
			if err != nil {
				return notARepoError(err)
			}

			cfg, err := LoadConfig(root)
			if err != nil {
				return internalError(err)
			}

			name, rawURL := args[0], args[1]

			if _, ok := cfg.Remotes[name]; ok {
				return userError(fmt.Errorf("remote %q already exists", name))
			}

			baseURL, repoID, err := splitRemoteURL(rawURL)
			if err != nil {
				return userError(err)
			}

			cfg.SetRemote(name, baseURL, repoID)

			if err := cfg.Persist(); err != nil {
				return internalError(err)
			}

			return nil
		},
	}
}

func newRemoteRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a remote",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := findRepoRoot()
			if err != nil {
				return notARepoError(err)
			}

			cfg, err := LoadConfig(root)
			if err != nil {
				return internalError(err)
			}

			name := args[0]

			if _, ok := cfg.Remotes[name]; !ok {
				return userError(fmt.Errorf("no such remote: %s", name))
			}

			cfg.RemoveRemote(name)

			if err := cfg.Persist(); err != nil {
				return internalError(err)
			}

			return nil
		},
	}
}

func newRemoteRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a remote",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := findRepoRoot()
			if err != nil {
				return notARepoError(err)
			}

			cfg, err := LoadConfig(root)
			if err != nil {
				return internalError(err)
			}

			oldName, newName := args[0], args[1]

			remote, ok := cfg.Remotes[oldName]
			if !ok {
				return userError(fmt.Errorf("no such remote: %s", oldName))
			}

			if _, ok := cfg.Remotes[newName]; ok {
				return userError(fmt.Errorf("remote %q already exists", newName))
			}

			cfg.SetRemote(newName, remote.URL, remote.RepoID)

			for branch, up := range cfg.Upstream {
				if up.Remote == oldName {
					cfg.SetUpstream(branch, newName, up.Branch)
				}
			}

			cfg.RemoveRemote(oldName)

			if err := cfg.Persist(); err != nil {
				return internalError(err)
			}

			return nil
		},
	}
}

func newRemoteSetURLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-url <name> <url>",
		Short: "Change a remote's URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := findRepoRoot()
			if err != nil {
				return notARepoError(err)
			}

			cfg, err := LoadConfig(root)
			if err != nil {
				return internalError(err)
			}

			name, rawURL := args[0], args[1]

			if _, ok := cfg.Remotes[name]; !ok {
				return userError(fmt.Errorf("no such remote: %s", name))
			}

			baseURL, repoID, err := splitRemoteURL(rawURL)
			if err != nil {
				return userError(err)
			}

			cfg.SetRemote(name, baseURL, repoID)

			if err := cfg.Persist(); err != nil {
				return internalError(err)
			}

			return nil
		},
	}
}
