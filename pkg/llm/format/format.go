// Package format converts a provider-agnostic llm.Conversation into the
// logical message list a backend expects: a history of prior messages and a
// separate query message to answer.
//
// The formatter only assembles parts. How an upload is encoded on the wire
// (inline base64, multipart, a files API) is left to each adapter.
package format

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/papercomputeco/switchboard/pkg/llm"
)

// Vocabulary maps conversation roles onto a backend's two-role vocabulary.
type Vocabulary struct {
	// User is the backend name for user turns.
	User string

	// Other is the backend name for every non-user turn.
	Other string
}

var (
	// GeminiVocabulary is the Gemini "user"/"model" pair.
	GeminiVocabulary = Vocabulary{User: "user", Other: "model"}

	// ChatVocabulary is the "user"/"assistant" pair used by OpenAI-compatible,
	// Anthropic, and Ollama chat APIs.
	ChatVocabulary = Vocabulary{User: "user", Other: "assistant"}
)

// Map returns the backend role for r. Only llm.RoleUser maps to User; any
// other role, including an empty or unknown one, maps to Other.
func (v Vocabulary) Map(r llm.Role) string {
	if r == llm.RoleUser {
		return v.User
	}
	return v.Other
}

// Upload is the raw content of an attached file.
type Upload struct {
	// Path is the original file path, used by backends as a filename hint.
	Path string

	Data     []byte
	MimeType string
}

// Name returns the base name of the upload's path.
func (u *Upload) Name() string {
	return filepath.Base(u.Path)
}

// Part is a single piece of a message: either text or an upload.
type Part struct {
	Text   string
	Upload *Upload
}

// IsUpload returns true if the part carries file content.
func (p Part) IsUpload() bool {
	return p.Upload != nil
}

// Message is one formatted turn in backend vocabulary.
type Message struct {
	Role  string
	Parts []Part
}

// Text returns the concatenated text parts of the message.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if !p.IsUpload() {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// Uploads returns the upload parts of the message in order.
func (m Message) Uploads() []*Upload {
	var uploads []*Upload
	for _, p := range m.Parts {
		if p.IsUpload() {
			uploads = append(uploads, p.Upload)
		}
	}
	return uploads
}

// Formatter builds formatted messages for one backend vocabulary. It is safe
// for concurrent use.
type Formatter struct {
	fs    afero.Fs
	vocab Vocabulary
}

// New creates a Formatter that reads attachments from fs. A nil fs reads from
// the OS filesystem.
func New(fs afero.Fs, vocab Vocabulary) *Formatter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Formatter{fs: fs, vocab: vocab}
}

// Format converts conv into history and query. The last turn becomes the
// query and preceding turns form history, in their original order. A
// single-turn conversation has an empty, non-nil history.
//
// Every attachment is read in full on each call. If any file cannot be read,
// Format returns a *llm.FileReadError and no messages.
func (f *Formatter) Format(ctx context.Context, conv llm.Conversation) ([]Message, Message, error) {
	if err := conv.Validate(); err != nil {
		return nil, Message{}, err
	}

	formatted := make([]Message, 0, len(conv))
	for _, turn := range conv {
		msg, err := f.formatTurn(ctx, turn)
		if err != nil {
			return nil, Message{}, err
		}
		formatted = append(formatted, msg)
	}

	last := len(formatted) - 1
	return formatted[:last:last], formatted[last], nil
}

func (f *Formatter) formatTurn(ctx context.Context, turn llm.Turn) (Message, error) {
	msg := Message{Role: f.vocab.Map(turn.Role)}

	if len(turn.Files) == 0 {
		msg.Parts = []Part{{Text: turn.Content}}
		return msg, nil
	}

	msg.Parts = make([]Part, 0, len(turn.Files)+1)
	msg.Parts = append(msg.Parts, Part{Text: turn.Content})
	for _, path := range turn.Files {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}

		upload, err := f.readUpload(path)
		if err != nil {
			return Message{}, err
		}
		msg.Parts = append(msg.Parts, Part{Upload: upload})
	}

	return msg, nil
}

func (f *Formatter) readUpload(path string) (*Upload, error) {
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		return nil, &llm.FileReadError{Path: path, Err: err}
	}

	return &Upload{
		Path:     path,
		Data:     data,
		MimeType: DetectMimeType(path, data),
	}, nil
}

// DetectMimeType returns the MIME type for an attachment, preferring the file
// extension and falling back to content sniffing.
func DetectMimeType(path string, data []byte) string {
	if ext := filepath.Ext(path); ext != "" {
		if t := mime.TypeByExtension(strings.ToLower(ext)); t != "" {
			mediaType, _, err := mime.ParseMediaType(t)
			if err == nil {
				return mediaType
			}
			return t
		}
	}

	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(data))
	if err != nil {
		return "application/octet-stream"
	}
	return mediaType
}

// String implements fmt.Stringer for log output without dumping file bytes.
func (u *Upload) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", u.Name(), u.MimeType, len(u.Data))
}
