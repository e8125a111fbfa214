package musecli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFetchCommand() *cobra.Command {
	var (
		all        bool
		prune      bool
		branchArgs []string
		remoteName string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Update remote-tracking refs without touching local branches",
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

			branches := branchArgs
			if all {
				branches = nil
			}

			client := NewClient(remote.URL, cfg.Auth.Token)

			results, err := client.Fetch(cmd.Context(), remote.RepoID, branches)
			if err != nil {
				return internalError(fmt.Errorf("fetching: %w", err))
			}

			fetched := make(map[string]bool, len(results))

			for _, r := range results {
				previous, err := ReadRemoteBranchHead(root, remoteOf(remoteName), r.Branch)
				if err != nil {
					return internalError(err)
				}

				if err := WriteRemoteBranchHead(root, remoteOf(remoteName), r.Branch, r.HeadCommitID); err != nil {
					return internalError(err)
				}

				fetched[r.Branch] = true

				status := "new branch"
				if previous != "" {
					if previous == r.HeadCommitID {
						status = "up to date"
					} else {
						status = previous[:minInt(7, len(previous))] + ".." + r.HeadCommitID[:minInt(7, len(r.HeadCommitID))]
					}
				}

				fmt.Fprintf(cmd.OutOrStdout(), " * %s -> %s/%s  %s\n", r.Branch, remoteOf(remoteName), r.Branch, status)
			}

			if prune {
				if err := pruneStaleRemoteBranches(root, remoteOf(remoteName), fetched); err != nil {
					return internalError(err)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "fetch every branch")
	cmd.Flags().BoolVar(&prune, "prune", false, "remove remote-tracking refs for branches deleted on the remote")
	cmd.Flags().StringArrayVar(&branchArgs, "branch", nil, "fetch only this branch (repeatable)")
	cmd.Flags().StringVar(&remoteName, "remote", "", "remote to fetch from (default: origin)")

	return cmd
}

func pruneStaleRemoteBranches(root, remote string, fetched map[string]bool) error {
	existing, err := listRemoteBranches(root, remote)
	if err != nil {
		return err
	}

	for _, branch := range existing {
		if !fetched[branch] {
			if err := removeRemoteBranchHead(root, remote, branch); err != nil {
				return err
			}
		}
	}

	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}
