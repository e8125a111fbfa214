package musecli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// findRepoRoot walks up from the working directory looking for a .muse
// directory, mirroring how a real VCS porcelain locates its repository
// root regardless of the caller's current subdirectory.
func findRepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if info, err := os.Stat(filepath.Join(dir, configDirName)); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a muse repository (or any parent up to /)")
		}

		dir = parent
	}
}

func refsDir(root string) string    { return filepath.Join(root, configDirName, "refs") }
func headsDir(root string) string   { return filepath.Join(refsDir(root), "heads") }
func tagsDir(root string) string    { return filepath.Join(refsDir(root), "tags") }
func remotesDir(root string) string { return filepath.Join(root, configDirName, "remotes") }
func headPath(root string) string   { return filepath.Join(root, configDirName, "HEAD") }

// InitRefsLayout creates the empty refs/heads, refs/tags, and remotes
// directories a fresh repository needs.
func InitRefsLayout(root string) error {
	for _, dir := range []string{headsDir(root), tagsDir(root), remotesDir(root)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return nil
}

// ReadHead returns the branch name HEAD currently points at.
func ReadHead(root string) (string, error) {
	b, err := os.ReadFile(headPath(root))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(b)), nil
}

// WriteHead points HEAD at branch.
func WriteHead(root, branch string) error {
	return os.WriteFile(headPath(root), []byte(branch+"\n"), 0o644)
}

// ReadBranchHead returns the commit id a local branch ref points at, or
// "" if the branch has no commits yet.
func ReadBranchHead(root, branch string) (string, error) {
	b, err := os.ReadFile(filepath.Join(headsDir(root), branch))
	if os.IsNotExist(err) {
		return "", nil
	}

	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(b)), nil
}

// WriteBranchHead updates a local branch ref to point at commitID.
func WriteBranchHead(root, branch, commitID string) error {
	path := filepath.Join(headsDir(root), branch)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(commitID+"\n"), 0o644)
}

// WriteTag writes a static ref pointing at commitID.
func WriteTag(root, name, commitID string) error {
	path := filepath.Join(tagsDir(root), name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(commitID+"\n"), 0o644)
}

// ReadRemoteBranchHead returns the last-known remote head recorded for
// remote/branch by fetch/pull, or "" if never fetched.
func ReadRemoteBranchHead(root, remote, branch string) (string, error) {
	b, err := os.ReadFile(filepath.Join(remotesDir(root), remote, branch))
	if os.IsNotExist(err) {
		return "", nil
	}

	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(b)), nil
}

// WriteRemoteBranchHead records the remote's head for remote/branch,
// the client-side mirror of the server's ref that fetch/pull refresh.
func WriteRemoteBranchHead(root, remote, branch, commitID string) error {
	path := filepath.Join(remotesDir(root), remote, branch)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(commitID+"\n"), 0o644)
}

// listRemoteBranches returns every branch with a remote-tracking ref
// under remotes/<remote>/.
func listRemoteBranches(root, remote string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(remotesDir(root), remote))
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}

	return names, nil
}

// removeRemoteBranchHead deletes a stale remote-tracking ref, used by
// fetch --prune.
func removeRemoteBranchHead(root, remote, branch string) error {
	err := os.Remove(filepath.Join(remotesDir(root), remote, branch))
	if os.IsNotExist(err) {
		return nil
	}

	return err
}
