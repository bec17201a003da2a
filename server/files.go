package server

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/switchboard/pkg/llm"
)

var (
	// ErrAttachmentsDisabled is returned when a request names files but the
	// server was started without a file root.
	ErrAttachmentsDisabled = errors.New("file attachments are disabled on this server")

	// ErrAttachmentOutsideRoot is returned when an attachment path does not
	// resolve under the file root.
	ErrAttachmentOutsideRoot = errors.New("file attachment is outside the allowed root")
)

// resolveAttachments confines every attachment in conv to root. Relative
// paths are taken relative to root and symlinks are resolved before the
// check. It returns a copy of conv with the resolved paths; conv itself is
// not modified.
func resolveAttachments(root string, conv llm.Conversation) (llm.Conversation, error) {
	if !conv.HasFiles() {
		return conv, nil
	}
	if root == "" {
		return nil, ErrAttachmentsDisabled
	}

	realRoot, err := realPath(root)
	if err != nil {
		return nil, fmt.Errorf("resolving file root: %w", err)
	}

	out := make(llm.Conversation, len(conv))
	for i, t := range conv {
		out[i] = t
		if len(t.Files) == 0 {
			continue
		}
		out[i].Files = make([]string, len(t.Files))
		for j, f := range t.Files {
			p := f
			if !filepath.IsAbs(p) {
				p = filepath.Join(realRoot, p)
			}
			resolved, err := realPath(p)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f, ErrAttachmentOutsideRoot)
			}
			if !within(realRoot, resolved) {
				return nil, fmt.Errorf("%s: %w", f, ErrAttachmentOutsideRoot)
			}
			out[i].Files[j] = resolved
		}
	}
	return out, nil
}

func realPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
