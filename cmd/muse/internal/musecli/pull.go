package musecli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cgcardona/maestro/internal/musehub"
)

func newPullCommand() *cobra.Command {
	var (
		rebase bool
		ffOnly bool
	)

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Fetch and integrate the current branch's upstream",
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

			branch, err := ReadHead(root)
			if err != nil {
				return internalError(fmt.Errorf("reading HEAD: %w", err))
			}

			upstream, ok := cfg.Upstream[branch]
			if !ok {
				return userError(fmt.Errorf("branch %q has no upstream; push with --set-upstream first", branch))
			}

			remote, err := cfg.Remote(upstream.Remote)
			if err != nil {
				return userError(err)
			}

			localDB, err := OpenLocalDB(root)
			if err != nil {
				return internalError(err)
			}
			defer localDB.Close()

			haveCommits, err := localDB.CommitsOnBranch(branch)
			if err != nil {
				return internalError(err)
			}

			haveObjects, err := localDB.KnownObjectIDs()
			if err != nil {
				return internalError(err)
			}

			client := NewClient(remote.URL, cfg.Auth.Token)

			res, err := client.Pull(cmd.Context(), remote.RepoID, musehub.PullRequestParams{
				Branch:      upstream.Branch,
				HaveCommits: haveCommits,
				HaveObjects: haveObjects,
				Rebase:      rebase,
				FFOnly:      ffOnly,
			})
			if err != nil {
				return internalError(fmt.Errorf("pulling: %w", err))
			}

			if res.Diverged && ffOnly {
				return userError(fmt.Errorf("branch %q has diverged from %s/%s; refusing non-fast-forward with --ff-only", branch, upstream.Remote, upstream.Branch))
			}

			for _, c := range res.Commits {
				if err := localDB.PutCommit(c); err != nil {
					return internalError(err)
				}
			}

			for _, o := range res.Objects {
				if err := localDB.PutObject(o); err != nil {
					return internalError(err)
				}
			}

			if err := WriteBranchHead(root, branch, res.RemoteHead); err != nil {
				return internalError(err)
			}

			if err := WriteRemoteBranchHead(root, upstream.Remote, upstream.Branch, res.RemoteHead); err != nil {
				return internalError(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Updating %s: %d new commit(s)\n", branch, len(res.Commits))

			return nil
		},
	}

	cmd.Flags().BoolVar(&rebase, "rebase", false, "sent to the server with the pull request; no local rebase or merge is done, the branch is set to the upstream head")
	cmd.Flags().BoolVar(&ffOnly, "ff-only", false, "refuse to pull unless the merge can be resolved as a fast-forward")

	return cmd
}
