package email

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/emersion/go-mbox"
)

// Archive appends found test messages to an mbox file.
type Archive struct {
	Path string
}

// NewArchive returns an archive writing to path.
func NewArchive(path string) *Archive {
	return &Archive{Path: path}
}

// Append writes msg as one mbox entry, creating the file if needed.
func (a *Archive) Append(msg *Message, received time.Time) error {
	if err := os.MkdirAll(filepath.Dir(a.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	f, err := os.OpenFile(a.Path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	from := msg.From.Email
	if from == "" {
		from = "MAILER-DAEMON"
	}

	mw := mbox.NewWriter(f)
	w, err := mw.CreateMessage(from, received)
	if err != nil {
		return fmt.Errorf("failed to create archive entry: %w", err)
	}
	if _, err := w.Write(msg.Raw); err != nil {
		return fmt.Errorf("failed to write archive entry: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to close archive entry: %w", err)
	}
	return f.Close()
}
