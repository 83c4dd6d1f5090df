package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "http://x/storage/comprobantes/1_ab.png", PublicURL("http://x/", "comprobantes", "1_ab.png"))
	assert.Equal(t, "http://x/storage/comprobantes/mi%20recibo.png", PublicURL("http://x", "comprobantes", "mi recibo.png"))
}
