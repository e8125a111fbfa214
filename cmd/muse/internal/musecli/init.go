package musecli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newInitCommand() *cobra.Command {
	var (
		serverURL  string
		visibility string
	)

	cmd := &cobra.Command{
		Use:   "init <owner>/<slug> [dir]",
		Short: "Create a new repo on the server and initialize a local working copy",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerSlug := args[0]

			dir := "."
			if len(args) == 2 {
				dir = args[1]
			}

			owner, slug, err := splitOwnerSlug(ownerSlug)
			if err != nil {
				return userError(err)
			}

			if serverURL == "" {
				return userError(fmt.Errorf("--server is required"))
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

			client := NewClient(serverURL, cfg.Auth.Token)

			repo, err := client.CreateRepo(cmd.Context(), owner, slug, visibility, "main")
			if err != nil {
				return internalError(fmt.Errorf("creating repo on server: %w", err))
			}

			cfg.SetRemote("origin", serverURL, repo.RepoID)

			if err := cfg.Persist(); err != nil {
				return internalError(err)
			}

			if err := WriteHead(root, repo.DefaultBranch); err != nil {
				return internalError(err)
			}

			if _, err := OpenLocalDB(root); err != nil {
				return internalError(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Initialized empty muse repository %s in %s/.muse/\n", repo.RepoID, root)

			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "maestro server base URL")
	cmd.Flags().StringVar(&visibility, "visibility", "private", "repo visibility: public or private")

	return cmd
}

func splitOwnerSlug(s string) (owner, slug string, err error) {
	for i := range s {
		if s[i] == '/' {
			return s[:i], s[i+1:], nil
		}
	}

	return "", "", fmt.Errorf("expected <owner>/<slug>, got %q", s)
}
