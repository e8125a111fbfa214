package musecli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cgcardona/maestro/internal/musehub"
)

func newPushCommand() *cobra.Command {
	var (
		force          bool
		forceWithLease bool
		pushTags       bool
		setUpstream    bool
		remoteName     string
	)

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push the current branch to a remote",
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

			remote, err := cfg.Remote(remoteName)
			if err != nil {
				return userError(err)
			}

			if cfg.Auth.Token == "" {
				return userError(fmt.Errorf("not logged in: .muse/config.toml has no [auth] token"))
			}

			branch, err := ReadHead(root)
			if err != nil {
				return internalError(fmt.Errorf("reading HEAD: %w", err))
			}

			headCommitID, err := ReadBranchHead(root, branch)
			if err != nil {
				return internalError(err)
			}

			if headCommitID == "" {
				return userError(fmt.Errorf("branch %q has no commits", branch))
			}

			localDB, err := OpenLocalDB(root)
			if err != nil {
				return internalError(err)
			}
			defer localDB.Close()

			commitIDs, err := localDB.CommitsOnBranch(branch)
			if err != nil {
				return internalError(err)
			}

			commits := make([]musehub.Commit, 0, len(commitIDs))

			for _, id := range commitIDs {
				c, err := localDB.GetCommit(id)
				if err != nil {
					return internalError(err)
				}

				commits = append(commits, c)
			}

			expectedRemoteHead, err := ReadRemoteBranchHead(root, remoteOf(remoteName), branch)
			if err != nil {
				return internalError(err)
			}

			if !force && !forceWithLease && expectedRemoteHead != "" && expectedRemoteHead == headCommitID {
				fmt.Fprintf(cmd.OutOrStdout(), "Everything up-to-date\n")
				return nil
			}

			client := NewClient(remote.URL, cfg.Auth.Token)

			res, err := client.Push(cmd.Context(), remote.RepoID, musehub.PushRequest{
				Branch:             branch,
				HeadCommitID:       headCommitID,
				Commits:            commits,
				Force:              force,
				ForceWithLease:     forceWithLease,
				ExpectedRemoteHead: expectedRemoteHead,
			})
			if err != nil {
				return userError(fmt.Errorf("push rejected: %w", err))
			}

			if err := WriteRemoteBranchHead(root, remoteOf(remoteName), branch, res.HeadID); err != nil {
				return internalError(err)
			}

			if setUpstream {
				cfg.SetUpstream(branch, remoteOf(remoteName), branch)

				if err := cfg.Persist(); err != nil {
					return internalError(err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "To %s\n   %s -> %s\n", remote.URL, branch, res.HeadID)

			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite the remote branch unconditionally")
	cmd.Flags().BoolVar(&forceWithLease, "force-with-lease", false, "overwrite only if the remote head matches the last fetched value")
	cmd.Flags().BoolVar(&pushTags, "tags", false, "accepted but ignored: tags are not pushed")
	cmd.Flags().BoolVar(&setUpstream, "set-upstream", false, "record the remote/branch as this branch's upstream")
	cmd.Flags().StringVar(&remoteName, "remote", "", "remote to push to (default: origin)")

	return cmd
}

func remoteOf(name string) string {
	if name == "" {
		return "origin"
	}

	return name
}
