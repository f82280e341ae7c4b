package security

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrPathTraversal means a user-influenced path resolved outside the
// download root. The request is rejected before any filesystem access on
// the target.
var ErrPathTraversal = errors.New("path escapes download root")

// PathValidator anchors all user-influenced filesystem paths to the
// configured download root.
type PathValidator struct {
	root string
}

func NewPathValidator(root string) (*PathValidator, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	// Resolve the root itself so symlinked download dirs compare correctly.
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return &PathValidator{root: abs}, nil
}

func (p *PathValidator) Root() string {
	return p.root
}

// Resolve turns name (a bare file name or a full path, both possibly
// attacker-influenced) into an absolute path and verifies it is a
// descendant of the root. Symlinks are followed so a link pointing
// outside the root is caught even though its own path is contained.
func (p *PathValidator) Resolve(name string) (string, error) {
	var candidate string
	if filepath.IsAbs(name) {
		candidate = filepath.Clean(name)
	} else {
		candidate = filepath.Join(p.root, name)
	}

	if !p.contains(candidate) {
		log.Warn().Str("path", name).Msg("blocked path traversal attempt")
		return "", ErrPathTraversal
	}

	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		if os.IsNotExist(err) {
			// Target absent: containment already checked lexically.
			return candidate, nil
		}
		return "", err
	}
	if !p.contains(resolved) {
		log.Warn().Str("path", name).Msg("blocked symlink escape")
		return "", ErrPathTraversal
	}
	return resolved, nil
}

func (p *PathValidator) contains(path string) bool {
	if path == p.root {
		return true
	}
	return strings.HasPrefix(path, p.root+string(os.PathSeparator))
}
