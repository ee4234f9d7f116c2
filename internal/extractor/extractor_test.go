package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dangvu0502/homework-pinecone/internal/pkg/logger"
)

type fakeVision struct {
	text        string
	err         error
	instruction string
	mimeType    string
	data        []byte
}

func (f *fakeVision) CompleteVision(_ context.Context, instruction, mimeType string, data []byte) (string, error) {
	f.instruction = instruction
	f.mimeType = mimeType
	f.data = data
	return f.text, f.err
}

func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestExtract_PlainText(t *testing.T) {
	e := New(nil, logger.NewNop())
	path := writeTempFile(t, "note.txt", []byte("  hello from a text file\n"))

	text, err := e.Extract(context.Background(), path, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "hello from a text file", text)
}

func TestExtract_CSV(t *testing.T) {
	e := New(nil, logger.NewNop())
	path := writeTempFile(t, "data.csv", []byte("name,age\nalice,30\nbob,25\n"))

	text, err := e.Extract(context.Background(), path, "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "name,age\nalice,30\nbob,25", text)
}

func TestExtract_UnsupportedContentType(t *testing.T) {
	e := New(nil, logger.NewNop())
	path := writeTempFile(t, "app.bin", []byte{0x00, 0x01})

	_, err := e.Extract(context.Background(), path, "application/octet-stream")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedContentType)
	assert.Contains(t, err.Error(), "application/octet-stream")
}

func TestExtract_MissingFile(t *testing.T) {
	e := New(nil, logger.NewNop())
	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "gone.txt"), "text/plain")
	assert.Error(t, err)
}

func TestExtract_Image(t *testing.T) {
	vision := &fakeVision{text: " transcribed image text \n"}
	e := New(vision, logger.NewNop())
	raw := []byte{0x89, 0x50, 0x4e, 0x47}
	path := writeTempFile(t, "scan.png", raw)

	text, err := e.Extract(context.Background(), path, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "transcribed image text", text)
	assert.Equal(t, "image/png", vision.mimeType)
	assert.Equal(t, raw, vision.data)
	assert.NotEmpty(t, vision.instruction)
}

func TestExtract_ImageVisionFailure(t *testing.T) {
	vision := &fakeVision{err: errors.New("model unavailable")}
	e := New(vision, logger.NewNop())
	path := writeTempFile(t, "scan.jpg", []byte{0xff, 0xd8})

	_, err := e.Extract(context.Background(), path, "image/jpeg")
	assert.Error(t, err)
}

func TestExtract_BrokenPDFReturnsPlaceholder(t *testing.T) {
	e := New(nil, logger.NewNop())
	path := writeTempFile(t, "broken.pdf", []byte("this is not a pdf"))

	text, err := e.Extract(context.Background(), path, "application/pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "Unable to extract text from PDF")
	assert.Contains(t, text, "broken.pdf")
}
