package desktop

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBrowser_EmptyURL(t *testing.T) {
	err := Browser{}.OpenURL("")
	assert.EqualError(t, err, "cannot open browser: empty URL provided")
}

func TestWriterOrDiscard(t *testing.T) {
	assert.Equal(t, io.Discard, writerOrDiscard(nil))

	var buf bytes.Buffer
	assert.Equal(t, &buf, writerOrDiscard(&buf))
}
