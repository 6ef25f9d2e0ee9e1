package utils

import (
	"io"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/logger"
)

// maxDrain bounds how much of an unread body is consumed before closing.
const maxDrain = 4 << 10

// Close closes c and ignores any error.
// Use for best-effort cleanup in defer where error handling is not critical.
func Close(c io.Closer) {
	_ = c.Close()
}

// CloseLogged closes c and logs any error under what.
func CloseLogged(c io.Closer, what string, log logger.Logger) {
	if err := c.Close(); err != nil {
		log.Warn("failed to close", logger.String("what", what), logger.Error(err))
	}
}

// DrainClose discards what is left of an HTTP body (up to a small limit) and
// closes it so the connection can be reused.
func DrainClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxDrain))
	_ = body.Close()
}
