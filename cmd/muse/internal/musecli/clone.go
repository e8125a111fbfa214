package musecli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cgcardona/maestro/internal/musehub"
)

func newCloneCommand() *cobra.Command {
	var (
		depth       int
		branch      string
		singleTrack string
		noCheckout  bool
	)

	cmd := &cobra.Command{
		Use:   "clone <url> [dir]",
		Short: "Clone a repo into a new local directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseURL, repoID, err := splitRemoteURL(args[0])
			if err != nil {
				return userError(err)
			}

			dir := "."
			if len(args) == 2 {
				dir = args[1]
			} else if idx := strings.LastIndex(repoID, "/"); idx >= 0 {
				dir = repoID[idx+1:]
			}

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return internalError(fmt.Errorf("creating %s: %w", dir, err))
			}

			root, err := filepath.Abs(dir)
			if err != nil {
				return internalError(err)
			}

			if err := InitRefsLayout(root); err != nil {
				return internalError(err)
			}

			cfg, err := LoadConfig(root)
			if err != nil {
				return internalError(err)
			}

			client := NewClient(baseURL, cfg.Auth.Token)

			res, err := client.Clone(cmd.Context(), repoID, musehub.CloneRequest{
				Branch:      branch,
				Depth:       depth,
				SingleTrack: singleTrack,
			})
			if err != nil {
				return internalError(fmt.Errorf("cloning: %w", err))
			}

			localDB, err := OpenLocalDB(root)
			if err != nil {
				return internalError(err)
			}
			defer localDB.Close()

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

			headBranch := branch
			if headBranch == "" {
				headBranch = res.DefaultBranch
			}

			if err := WriteHead(root, headBranch); err != nil {
				return internalError(err)
			}

			if err := WriteBranchHead(root, headBranch, res.RemoteHead); err != nil {
				return internalError(err)
			}

			if err := WriteRemoteBranchHead(root, "origin", headBranch, res.RemoteHead); err != nil {
				return internalError(err)
			}

			cfg.SetRemote("origin", baseURL, repoID)
			cfg.SetUpstream(headBranch, "origin", headBranch)

			if err := cfg.Persist(); err != nil {
				return internalError(err)
			}

			if !noCheckout {
				if err := os.MkdirAll(filepath.Join(root, "muse-work"), 0o755); err != nil {
					return internalError(err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cloned %s into %s (%d commits)\n", repoID, root, len(res.Commits))

			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 0, "shallow clone depth (0 = full history)")
	cmd.Flags().StringVar(&branch, "branch", "", "branch to check out (default: repo's default branch)")
	cmd.Flags().StringVar(&singleTrack, "single-track", "", "fetch only one track's history")
	cmd.Flags().BoolVar(&noCheckout, "no-checkout", false, "skip populating muse-work/")

	return cmd
}
