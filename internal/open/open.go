package open

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	cerrors "github.com/Zuo-Peng/chatdash/internal/errors"
	"github.com/Zuo-Peng/chatdash/internal/index"
)

// OpenTranscript opens the source file of a cached transcript at the line
// of message hitSeq (first line when hitSeq < 0).
func OpenTranscript(db *index.DB, key string, hitSeq int) error {
	t, err := db.GetTranscript(key)
	if err != nil {
		return fmt.Errorf("get transcript: %w", err)
	}
	if t == nil {
		return cerrors.NotFound("transcript " + key)
	}

	if _, err := os.Stat(t.FilePath); err != nil {
		return cerrors.NotFound("file " + t.FilePath)
	}

	lineNum := 1
	if hitSeq >= 0 {
		msgs, _, _, _, err := db.GetMessagesWindow(key, hitSeq, 0, time.Local)
		if err == nil && len(msgs) == 1 && msgs[0].Seq == hitSeq {
			lineNum = msgs[0].Line
		}
	}

	return OpenFile(t.FilePath, lineNum)
}

// OpenFile runs $EDITOR (less if unset) on path at lineNum.
func OpenFile(path string, lineNum int) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "less"
	}
	cmd := EditorCommand(editor, path, lineNum)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// EditorCommand builds the command line that jumps to lineNum for the
// editors that support it.
func EditorCommand(editor, filePath string, lineNum int) *exec.Cmd {
	if lineNum < 1 {
		lineNum = 1
	}
	fields := strings.Fields(editor)
	name, args := fields[0], fields[1:]

	switch {
	case strings.Contains(name, "vim") || strings.Contains(name, "nano") || strings.Contains(name, "emacs"):
		args = append(args, fmt.Sprintf("+%d", lineNum), filePath)
	case strings.Contains(name, "code") || strings.Contains(name, "subl"):
		args = append(args, "--goto", filePath+":"+strconv.Itoa(lineNum))
	case strings.Contains(name, "less"):
		args = append(args, "+"+strconv.Itoa(lineNum), filePath)
	default:
		args = append(args, filePath)
	}
	return exec.Command(name, args...)
}
